// Package docrag is a document chunking and retrieval toolkit for
// retrieval-augmented generation in Go.
//
// It loads plain-text and PDF documents, splits them into bounded
// overlapping chunks, stores them under content-addressed identifiers in a
// vector store, and retrieves the chunks closest to a query together with a
// quality signal that a chat layer can use to decide whether to trust the
// context.
//
// # Quick Start
//
//	emb := hashing.New(384)
//	index := sqlite.New("docrag.db")
//	_ = index.Init(ctx)
//	store := docrag.NewCollection(index, emb)
//
//	pipeline := ingest.NewPipeline(store)
//	n, err := pipeline.Ingest(ctx, "handbook.pdf")
//
//	retriever := docrag.NewRetriever(store)
//	rc, err := retriever.RetrieveContext(ctx, "how many vacation days?")
//	fmt.Println(rc.FormattedContext, rc.IsSuccess)
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [EmbeddingProvider]: text-to-vector embedding
//   - [Index]: vector persistence and nearest-neighbour search
//   - [VectorStore]: text-level store that embeds on write and on query
//   - [Tracer]: optional span creation for ingest and retrieval
//
// # Included Implementations
//
// Embedding: provider/openaicompat (OpenAI-compatible APIs), provider/hashing (offline).
// Storage: store/sqlite (local), store/postgres (pgvector), store/qdrant, store/memory.
// Ingestion: ingest (loader, splitters, pipeline, directory ingestor, watcher).
//
// See cmd/docrag for the reference command-line application.
package docrag
