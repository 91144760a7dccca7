package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/syncbrain/syncbrain/internal/content"
)

// QdrantConfig holds connection settings for the Qdrant gRPC client.
// Port is the gRPC port (6334), not the HTTP REST port.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	Dimension  int
	UseTLS     bool
}

// Qdrant implements Index against a Qdrant collection. Tenant isolation uses
// payload filtering: every point carries an owner field and every query
// includes a must-match condition on it.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

// NewQdrant connects to Qdrant and ensures the collection exists with the
// configured dimensionality and cosine distance.
func NewQdrant(ctx context.Context, cfg QdrantConfig, logger *slog.Logger) (*Qdrant, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", content.ErrStore, err)
	}

	q := &Qdrant{client: client, collection: cfg.Collection, logger: logger}

	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("%w: checking collection %q: %v", content.ErrStore, cfg.Collection, err)
	}
	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(cfg.Dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: creating collection %q: %v", content.ErrStore, cfg.Collection, err)
		}
		logger.Info("created qdrant collection", "collection", cfg.Collection, "dimension", cfg.Dimension)
	}

	return q, nil
}

// ownerCondition builds the payload filter scoping a query to one owner.
func ownerCondition(owner string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: "owner",
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: owner},
				},
			},
		},
	}
}

func metadataPayload(m content.VectorMetadata) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"owner":      {Kind: &qdrant.Value_StringValue{StringValue: m.Owner}},
		"title":      {Kind: &qdrant.Value_StringValue{StringValue: m.Title}},
		"kind":       {Kind: &qdrant.Value_StringValue{StringValue: m.Kind}},
		"created_at": {Kind: &qdrant.Value_StringValue{StringValue: m.CreatedAt}},
		"snippet":    {Kind: &qdrant.Value_StringValue{StringValue: m.Snippet}},
	}
	if m.Thumbnail != "" {
		payload["thumbnail"] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: m.Thumbnail}}
	}
	return payload
}

// Upsert writes points with wait=true so a subsequent query sees them.
func (q *Qdrant) Upsert(ctx context.Context, points ...Point) error {
	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, pt := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pt.ID),
			Vectors: qdrant.NewVectors(pt.Embedding...),
			Payload: metadataPayload(pt.Metadata),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: upserting %d vectors: %v", content.ErrStore, len(points), err)
	}

	q.logger.Debug("upserted vectors", "count", len(points))
	return nil
}

// Query returns the topK nearest neighbors filtered to owner.
func (q *Qdrant) Query(ctx context.Context, embedding []float32, owner string, topK int) ([]Match, error) {
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{ownerCondition(owner)}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %v", content.ErrStore, err)
	}

	matches := make([]Match, 0, len(results))
	for _, sp := range results {
		matches = append(matches, Match{
			ID:    sp.GetId().GetUuid(),
			Score: float64(sp.GetScore()),
		})
	}
	return matches, nil
}

// Has reports whether a point exists for id.
func (q *Qdrant) Has(ctx context.Context, id string) (bool, error) {
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
	})
	if err != nil {
		return false, fmt.Errorf("%w: checking vector %q: %v", content.ErrStore, id, err)
	}
	return len(points) > 0, nil
}

// DeleteOne removes the point for id; missing ids are a no-op in Qdrant.
func (q *Qdrant) DeleteOne(ctx context.Context, id string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewIDUUID(id)}},
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting vector %q: %v", content.ErrStore, id, err)
	}
	return nil
}

var _ Index = (*Qdrant)(nil)
