// Package qdrant stores the corpus as points in a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
)

// DefaultCollection is used when Config.Collection is empty.
const DefaultCollection = "rag_collection"

const payloadText = "text"

// upsertBatch bounds the points sent in one Upsert call.
const upsertBatch = 100

// Config holds the Qdrant gRPC endpoint.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Index implements corpus.Index with Qdrant. Point IDs are corpus positions.
type Index struct {
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	name        string
	conn        *grpc.ClientConn
}

// Dial connects to Qdrant and returns an Index bound to the configured collection.
func Dial(cfg Config) (*Index, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", addr, err)
	}

	x := New(qdrant.NewCollectionsClient(conn), qdrant.NewPointsClient(conn), cfg.Collection)
	x.conn = conn
	return x, nil
}

// New builds an Index from existing gRPC clients.
func New(collections qdrant.CollectionsClient, points qdrant.PointsClient, collection string) *Index {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Index{collections: collections, points: points, name: collection}
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption,
	) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close releases the gRPC connection when the Index owns one.
func (x *Index) Close() error {
	if x.conn == nil {
		return nil
	}
	return x.conn.Close()
}

// Upsert creates the collection sized to the first entry, then writes points in batches.
func (x *Index) Upsert(ctx context.Context, entries []corpus.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	dim := len(entries[0].Embedding)
	stored, err := x.dimension(ctx)
	if err != nil {
		return err
	}
	switch {
	case stored == 0:
		if err := x.create(ctx, dim); err != nil {
			return err
		}
	case stored != dim:
		return fmt.Errorf("entries have dimension %d, collection has %d: %w", dim, stored, domain.ErrVectorDimMismatch)
	}

	points := make([]*qdrant.PointStruct, 0, min(len(entries), upsertBatch))
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return fmt.Errorf("position %d: dimension %d, want %d: %w",
				e.Document.Position, len(e.Embedding), dim, domain.ErrVectorDimMismatch)
		}
		points = append(points, toPoint(e))

		if len(points) == upsertBatch || i == len(entries)-1 {
			wait := true
			_, err := x.points.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: x.name,
				Wait:           &wait,
				Points:         points,
			})
			if err != nil {
				return fmt.Errorf("upsert %d points into %s: %w", len(points), x.name, err)
			}
			points = points[:0]
		}
	}
	return nil
}

// Search runs a cosine search and re-sorts so ties favour the smaller position.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]corpus.Hit, error) {
	if k <= 0 {
		return []corpus.Hit{}, nil
	}

	dim, err := x.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []corpus.Hit{}, nil
	}
	if len(query) != dim {
		return nil, fmt.Errorf("query dimension %d, collection has %d: %w", len(query), dim, domain.ErrVectorDimMismatch)
	}

	return corpus.TopK(ctx, k, func(ctx context.Context, n int) ([]corpus.Hit, error) {
		return x.search(ctx, query, n)
	})
}

func (x *Index) search(ctx context.Context, query []float32, n int) ([]corpus.Hit, error) {
	resp, err := x.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: x.name,
		Vector:         query,
		Limit:          uint64(n),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Include{
				Include: &qdrant.PayloadIncludeSelector{Fields: []string{payloadText}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", x.name, err)
	}

	hits := make([]corpus.Hit, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		hits = append(hits, fromScoredPoint(p))
	}
	return hits, nil
}

// Stats counts points exactly. A missing collection is an empty corpus.
func (x *Index) Stats(ctx context.Context) (corpus.Stats, error) {
	dim, err := x.dimension(ctx)
	if err != nil {
		return corpus.Stats{}, err
	}
	if dim == 0 {
		return corpus.Stats{}, nil
	}

	exact := true
	resp, err := x.points.Count(ctx, &qdrant.CountPoints{CollectionName: x.name, Exact: &exact})
	if err != nil {
		return corpus.Stats{}, fmt.Errorf("count %s: %w", x.name, err)
	}
	n := int(resp.GetResult().GetCount())
	return corpus.Stats{Documents: n, Dimension: dim, Embeddings: n}, nil
}

// Reset deletes the collection; the next Upsert recreates it.
func (x *Index) Reset(ctx context.Context) error {
	exists, err := x.exists(ctx)
	if err != nil || !exists {
		return err
	}
	if _, err := x.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: x.name}); err != nil {
		return fmt.Errorf("delete collection %s: %w", x.name, err)
	}
	return nil
}

func (x *Index) exists(ctx context.Context) (bool, error) {
	resp, err := x.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	for _, c := range resp.GetCollections() {
		if c.GetName() == x.name {
			return true, nil
		}
	}
	return false, nil
}

func (x *Index) create(ctx context.Context, dim int) error {
	_, err := x.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: x.name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dim),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", x.name, err)
	}
	return nil
}

// dimension returns the configured vector size; 0 when the collection does not exist.
func (x *Index) dimension(ctx context.Context) (int, error) {
	exists, err := x.exists(ctx)
	if err != nil || !exists {
		return 0, err
	}
	info, err := x.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: x.name})
	if err != nil {
		return 0, fmt.Errorf("collection info %s: %w", x.name, err)
	}
	size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	return int(size), nil
}

func toPoint(e corpus.Entry) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id: &qdrant.PointId{
			PointIdOptions: &qdrant.PointId_Num{Num: uint64(e.Document.Position)},
		},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vector{
				Vector: &qdrant.Vector{Data: e.Embedding},
			},
		},
		Payload: map[string]*qdrant.Value{
			payloadText: {Kind: &qdrant.Value_StringValue{StringValue: e.Document.Content}},
		},
	}
}

func fromScoredPoint(p *qdrant.ScoredPoint) corpus.Hit {
	var text string
	if v, ok := p.GetPayload()[payloadText]; ok {
		text = v.GetStringValue()
	}

	score := float64(p.GetScore())
	if math.IsNaN(score) || math.IsInf(score, 0) {
		score = 0
	}
	return corpus.Hit{
		Document: corpus.Document{Position: int(p.GetId().GetNum()), Content: text},
		Score:    score,
	}
}
