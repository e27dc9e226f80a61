package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for ingestion and retrieval spans and metrics.
var (
	AttrEmbedProvider   = attribute.Key("embedding.provider")
	AttrEmbedModel      = attribute.Key("embedding.model")
	AttrEmbedTextCount  = attribute.Key("embedding.text_count")
	AttrEmbedDimensions = attribute.Key("embedding.dimensions")

	AttrStoreOp    = attribute.Key("store.op")
	AttrChunkCount = attribute.Key("store.chunk_count")

	AttrRetrievalK  = attribute.Key("retrieval.k")
	AttrResultCount = attribute.Key("retrieval.results")
	AttrAvgDistance = attribute.Key("retrieval.avg_distance")
	AttrQueryLength = attribute.Key("retrieval.query_length")

	AttrStatus = attribute.Key("status")
)
