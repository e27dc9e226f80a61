// Package postgres implements docrag.Index using PostgreSQL with pgvector
// for native vector similarity search.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/docrag"
)

// Store implements docrag.Index backed by PostgreSQL with pgvector.
// Vector search uses an HNSW index with cosine distance.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

// pgConfig holds store configuration set via Option functions.
type pgConfig struct {
	table              string
	embeddingDimension int // 0 = untyped vector
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
	hnswEFSearch       int // 0 = pgvector default (40)
	logger             *slog.Logger
}

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// WithTable sets the chunks table name (default "docrag_chunks").
func WithTable(name string) Option {
	return func(c *pgConfig) { c.table = name }
}

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, enabling
// better index optimization and catching dimension mismatches at insert time.
// Only affects new table creation (no ALTER on existing tables).
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node).
// Only affects index creation (CREATE INDEX IF NOT EXISTS).
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter (build-time
// candidate list size). Only affects index creation.
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

// WithEFSearch sets the HNSW ef_search parameter (query-time candidate list
// size). Higher values improve recall at the cost of latency. Applied to
// each search transaction via SET LOCAL.
func WithEFSearch(ef int) Option {
	return func(c *pgConfig) { c.hnswEFSearch = ef }
}

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(c *pgConfig) { c.logger = l }
}

var _ docrag.Index = (*Store)(nil)
var _ docrag.Counter = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	cfg := pgConfig{table: "docrag_chunks", logger: docrag.NopLogger()}
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

// vectorType returns "vector" or "vector(N)" depending on config.
func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

// hnswWithClause returns the WITH (...) clause for HNSW index creation,
// or an empty string if no tuning params are set.
func (s *Store) hnswWithClause() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// table returns the quoted table name.
func (s *Store) table() string {
	return pgx.Identifier{s.cfg.table}.Sanitize()
}

// Init creates the pgvector extension, the chunks table, and its indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	t := s.table()
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding %s NOT NULL,
			updated_at BIGINT NOT NULL
		)`, t, s.vectorType()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s(source)`,
			pgx.Identifier{s.cfg.table + "_source_idx"}.Sanitize(), t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)%s`,
			pgx.Identifier{s.cfg.table + "_embedding_idx"}.Sanitize(), t, s.hnswWithClause()),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// Upsert writes chunks in one transaction, replacing rows with the same ID.
func (s *Store) Upsert(ctx context.Context, chunks []docrag.Chunk) error {
	start := time.Now()
	q := fmt.Sprintf(`INSERT INTO %s (id, source, content, metadata, embedding, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5::vector, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   source = EXCLUDED.source,
		   content = EXCLUDED.content,
		   metadata = EXCLUDED.metadata,
		   embedding = EXCLUDED.embedding,
		   updated_at = EXCLUDED.updated_at`, s.table())

	now := docrag.NowUnix()
	batch := &pgx.Batch{}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("postgres: chunk %s has no embedding", c.ID)
		}
		var metaJSON *string
		if len(c.Metadata) > 0 {
			data, _ := json.Marshal(c.Metadata)
			v := string(data)
			metaJSON = &v
		}
		batch.Queue(q, c.ID, c.Source(), c.Content, metaJSON, serializeEmbedding(c.Embedding), now)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	br := tx.SendBatch(ctx, batch)
	for i := range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("postgres: upsert chunk %s: %w", chunks[i].ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	s.cfg.logger.Debug("postgres: upsert ok", "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

// Search returns the topK nearest chunks by pgvector cosine distance (<=>),
// nearest first.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int) ([]docrag.RetrievalResult, error) {
	start := time.Now()
	if topK <= 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT id, content, metadata, embedding <=> $1::vector AS distance
		 FROM %s
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`, s.table())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if s.cfg.hnswEFSearch > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", s.cfg.hnswEFSearch)); err != nil {
			return nil, fmt.Errorf("postgres: set ef_search: %w", err)
		}
	}

	rows, err := tx.Query(ctx, q, serializeEmbedding(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search chunks: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (docrag.RetrievalResult, error) {
		var r docrag.RetrievalResult
		var metaJSON []byte
		if err := row.Scan(&r.ID, &r.Content, &metaJSON, &r.Distance); err != nil {
			return r, err
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &r.Metadata)
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan chunk: %w", err)
	}
	s.cfg.logger.Debug("postgres: search ok", "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table())).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count chunks: %w", err)
	}
	return n, nil
}

// Close is a no-op. The caller owns the pool and manages its lifecycle.
func (s *Store) Close() error {
	return nil
}

// serializeEmbedding converts []float32 to a string like "[0.1,0.2,0.3]"
// suitable for pgvector's text input format.
func serializeEmbedding(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
