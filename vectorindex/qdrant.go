// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package vectorindex

import (
	"context"

	"github.com/qdrant/go-client/qdrant"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/resilience"
)

// Config configures the connection to the backing Qdrant instance.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	Dimension  int

	// RetryConfig and TimeoutConfig override the defaults used for every
	// network call. Nil means resilience's own defaults.
	RetryConfig   *resilience.RetryConfig
	TimeoutConfig *resilience.TimeoutConfig
}

// Index wraps a Qdrant collection as the vector index adapter.
type Index struct {
	client     *qdrant.Client
	collection string
	retry      *resilience.RetryConfig
	timeout    *resilience.TimeoutConfig
}

// Open dials Qdrant and returns an Index bound to cfg.Collection.
func Open(cfg Config) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, vesperrors.ErrConnectionRefused.Wrap(err)
	}
	return &Index{
		client:     client,
		collection: cfg.Collection,
		retry:      cfg.RetryConfig,
		timeout:    cfg.TimeoutConfig,
	}, nil
}

// Close releases the underlying gRPC connection.
func (ix *Index) Close() error {
	return ix.client.Close()
}

// Ping satisfies health.Pinger by confirming the server is reachable
// and knows about the configured collection.
func (ix *Index) Ping(ctx context.Context) error {
	return ix.call(ctx, func(ctx context.Context) error {
		if _, err := ix.client.CollectionExists(ctx, ix.collection); err != nil {
			return vesperrors.ErrConnectionRefused.Wrap(err)
		}
		return nil
	})
}

// call wraps fn with the adapter's retry and timeout policy, so every
// network failure surfaces as a pkg/errors value.
func (ix *Index) call(ctx context.Context, fn func(ctx context.Context) error) error {
	return resilience.WithTimeout(ctx, ix.timeout, func(ctx context.Context) error {
		return resilience.Retry(ctx, ix.retry, fn)
	})
}

// InitializeCollection creates the collection if it does not already
// exist, sized to dimension with cosine distance.
func (ix *Index) InitializeCollection(ctx context.Context, dimension int) error {
	return ix.call(ctx, func(ctx context.Context) error {
		exists, err := ix.client.CollectionExists(ctx, ix.collection)
		if err != nil {
			return vesperrors.ErrConnectionRefused.Wrap(err)
		}
		if exists {
			return nil
		}
		err = ix.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: ix.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return vesperrors.ErrStorageConnection.Wrap(err)
		}
		return nil
	})
}

// UpsertMemory writes id's vector and payload, waiting for the write to
// commit before returning, so a retrieve call that starts after the
// store call returns always observes it.
func (ix *Index) UpsertMemory(ctx context.Context, id string, vector []float32, payload map[string]interface{}) error {
	wait := true
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(payload),
	}
	return ix.call(ctx, func(ctx context.Context) error {
		_, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: ix.collection,
			Points:         []*qdrant.PointStruct{point},
			Wait:           &wait,
		})
		if err != nil {
			return vesperrors.ErrStorageConnection.Wrap(err)
		}
		return nil
	})
}

// DenseSearch runs an ANN query against the collection's vectors,
// optionally scoped to namespace, and returns the top k hits.
func (ix *Index) DenseSearch(ctx context.Context, namespace string, vector []float32, k int) ([]types.VectorHit, error) {
	limit := uint64(k)
	query := &qdrant.QueryPoints{
		CollectionName: ix.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         namespaceFilter(namespace),
	}

	var hits []types.VectorHit
	err := ix.call(ctx, func(ctx context.Context) error {
		points, err := ix.client.Query(ctx, query)
		if err != nil {
			return vesperrors.ErrStorageConnection.Wrap(err)
		}
		hits = scoredPointsToHits(points)
		return nil
	})
	return hits, err
}

// SparseSearch emulates a keyword search by matching `keyword` against
// the `content` payload field. The pinned qdrant-go-client version has
// no native BM25/full-text index, so this is a deliberate
// simplification rather than true sparse retrieval: it returns every
// point whose content payload contains the keyword, ranked only by
// Qdrant's default scroll order, then truncated to k.
func (ix *Index) SparseSearch(ctx context.Context, namespace string, keyword string, k int) ([]types.VectorHit, error) {
	limit := uint32(k)
	filter := namespaceFilter(namespace)
	if filter == nil {
		filter = &qdrant.Filter{}
	}
	filter.Must = append(filter.Must, qdrant.NewMatchText("content", keyword))

	var hits []types.VectorHit
	err := ix.call(ctx, func(ctx context.Context) error {
		points, err := ix.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: ix.collection,
			Filter:         filter,
			Limit:          &limit,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return vesperrors.ErrStorageConnection.Wrap(err)
		}
		hits = make([]types.VectorHit, 0, len(points))
		for _, p := range points {
			hits = append(hits, types.VectorHit{
				ID:      pointIDToString(p.GetId()),
				Score:   1.0,
				Payload: payloadToMap(p.GetPayload()),
			})
		}
		return nil
	})
	return hits, err
}

// DeleteByID removes a single point from the collection.
func (ix *Index) DeleteByID(ctx context.Context, id string) error {
	return ix.call(ctx, func(ctx context.Context) error {
		_, err := ix.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: ix.collection,
			Points:         qdrant.NewPointsSelectorIDs([]*qdrant.PointId{qdrant.NewID(id)}),
		})
		if err != nil {
			return vesperrors.ErrStorageConnection.Wrap(err)
		}
		return nil
	})
}

// GetCollectionStats reports the collection's point count and status.
func (ix *Index) GetCollectionStats(ctx context.Context) (types.CollectionStats, error) {
	var stats types.CollectionStats
	err := ix.call(ctx, func(ctx context.Context) error {
		info, err := ix.client.GetCollectionInfo(ctx, ix.collection)
		if err != nil {
			return vesperrors.ErrStorageConnection.Wrap(err)
		}
		if info.GetPointsCount() != 0 {
			stats.PointsCount = info.GetPointsCount()
		}
		stats.Status = info.GetStatus().String()
		return nil
	})
	return stats, err
}

// namespaceFilter builds the payload filter scoping a query to a single
// namespace, or nil when namespace is empty (no scoping, used only by
// maintenance paths — every tool-facing call passes a namespace).
func namespaceFilter(namespace string) *qdrant.Filter {
	if namespace == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("namespace", namespace),
		},
	}
}

func scoredPointsToHits(points []*qdrant.ScoredPoint) []types.VectorHit {
	hits := make([]types.VectorHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, types.VectorHit{
			ID:      pointIDToString(p.GetId()),
			Score:   float64(p.GetScore()),
			Payload: payloadToMap(p.GetPayload()),
		})
	}
	return hits
}

func pointIDToString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return itoa64(id.GetNum())
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]interface{} {
	if payload == nil {
		return nil
	}
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = valueToInterface(v)
	}
	return out
}

func valueToInterface(v *qdrant.Value) interface{} {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}

func itoa64(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
