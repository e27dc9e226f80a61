// Package qdrant implements docrag.Index on a Qdrant collection over gRPC.
//
// Chunk IDs must be UUIDs (docrag.ChunkID produces them). The chunk text is
// kept in the "content" payload field and metadata entries become string
// payload fields. Distance is reported as 1 - cosine score.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nevindra/docrag"
)

const contentField = "content"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements docrag.Index using a Qdrant collection.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	logger      *slog.Logger
}

var _ docrag.Index = (*Store)(nil)
var _ docrag.Counter = (*Store)(nil)

// New dials Qdrant's gRPC endpoint at host:port. The connection is lazy;
// call Init to create the collection and surface connectivity errors.
func New(host string, port int, collection string, opts ...Option) (*Store, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	s := &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		logger:      docrag.NopLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Init creates the collection with cosine distance and the given vector
// size if it does not exist yet.
func (s *Store) Init(ctx context.Context, dimensions int) error {
	resp, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: s.collection})
	if err != nil {
		return fmt.Errorf("qdrant: collection exists: %w", err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     uint64(dimensions),
			Distance: pb.Distance_Cosine,
		}}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", s.collection, err)
	}
	s.logger.Info("qdrant: created collection", "collection", s.collection, "dimensions", dimensions)
	return nil
}

// Upsert writes chunks and waits for Qdrant to apply them.
func (s *Store) Upsert(ctx context.Context, chunks []docrag.Chunk) error {
	start := time.Now()
	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = toPoint(c)
	}
	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert: %w", err)
	}
	s.logger.Debug("qdrant: upsert ok", "points", len(points), "duration", time.Since(start))
	return nil
}

// Search returns the topK nearest points, nearest first.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int) ([]docrag.RetrievalResult, error) {
	start := time.Now()
	if topK <= 0 {
		return nil, nil
	}
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}
	results := make([]docrag.RetrievalResult, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		results[i] = fromScored(pt)
	}
	s.logger.Debug("qdrant: search ok", "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// Count returns the exact number of points in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: s.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func toPoint(c docrag.Chunk) *pb.PointStruct {
	payload := map[string]*pb.Value{
		contentField: {Kind: &pb.Value_StringValue{StringValue: c.Content}},
	}
	for k, v := range c.Metadata {
		if k == contentField {
			continue
		}
		payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	return &pb.PointStruct{
		Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: c.ID}},
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: c.Embedding}}},
		Payload: payload,
	}
}

func fromScored(pt *pb.ScoredPoint) docrag.RetrievalResult {
	r := docrag.RetrievalResult{
		ID:       pt.GetId().GetUuid(),
		Distance: 1 - float64(pt.GetScore()),
	}
	for k, v := range pt.GetPayload() {
		if k == contentField {
			r.Content = v.GetStringValue()
			continue
		}
		if r.Metadata == nil {
			r.Metadata = make(map[string]string)
		}
		r.Metadata[k] = v.GetStringValue()
	}
	return r
}
