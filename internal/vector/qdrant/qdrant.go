// Package qdrant implements vector.Repository using Qdrant over gRPC.
package qdrant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/quarrylabs/quarry/internal/vector"
)

const scrollPageSize = 256

// Repository is a Qdrant-backed vector.Repository. The collection is
// created with cosine distance on first use if it does not exist.
type Repository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimension   uint64
}

// New connects to Qdrant and ensures the collection exists.
func New(ctx context.Context, host string, port int, collection string, dimension int) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	r := &Repository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dimension:   uint64(dimension),
	}
	if err := r.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureCollection(ctx context.Context) error {
	exists, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: r.collection,
	})
	if err != nil {
		return fmt.Errorf("qdrant collection check: %w", err)
	}
	if exists.GetResult().GetExists() {
		return nil
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     r.dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

func (r *Repository) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	wait := true
	points := make([]*pb.PointStruct, len(entries))
	for i, e := range entries {
		payload := map[string]*pb.Value{
			"content":  {Kind: &pb.Value_StringValue{StringValue: e.Content}},
			"chunk_id": {Kind: &pb.Value_StringValue{StringValue: e.ID}},
		}
		for k, v := range e.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			// Qdrant point ids must be UUIDs or integers; derive a stable
			// UUID from the chunk id so re-upserting replaces the entry.
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: deterministicUUID(e.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Vector}}},
			Payload: payload,
		}
	}

	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         points,
	})
	return err
}

func (r *Repository) Search(ctx context.Context, vec []float32, topK int, filter vector.Filter, threshold float32) ([]vector.SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vec,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if threshold > 0 {
		req.ScoreThreshold = &threshold
	}
	if cond := filterConditions(filter); len(cond) > 0 {
		req.Filter = &pb.Filter{Must: cond}
	}

	resp, err := r.points.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	results := make([]vector.SearchResult, len(resp.Result))
	for i, pt := range resp.Result {
		content, id, meta := splitPayload(pt.Payload)
		results[i] = vector.SearchResult{
			ID:       id,
			Score:    pt.Score,
			Content:  content,
			Metadata: meta,
		}
	}
	return results, nil
}

func (r *Repository) FindByPath(ctx context.Context, path string) ([]vector.PathEntry, error) {
	var (
		found  []vector.PathEntry
		offset *pb.PointId
		limit  = uint32(scrollPageSize)
	)
	for {
		resp, err := r.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: r.collection,
			Filter:         &pb.Filter{Must: []*pb.Condition{matchKeyword("path", path)}},
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, err
		}
		for _, pt := range resp.Result {
			_, id, meta := splitPayload(pt.Payload)
			found = append(found, vector.PathEntry{ID: id, ModTime: meta["mtime"]})
		}
		if resp.NextPageOffset == nil {
			return found, nil
		}
		offset = resp.NextPageOffset
	}
}

func (r *Repository) DeleteByPath(ctx context.Context, path string) error {
	wait := true
	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{Must: []*pb.Condition{matchKeyword("path", path)}},
			},
		},
	})
	return err
}

func (r *Repository) Count(ctx context.Context) (uint64, error) {
	exact := true
	resp, err := r.points.Count(ctx, &pb.CountPoints{
		CollectionName: r.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, err
	}
	return resp.GetResult().GetCount(), nil
}

func (r *Repository) Close() error {
	return r.conn.Close()
}

func filterConditions(f vector.Filter) []*pb.Condition {
	var cond []*pb.Condition
	if f.Language != "" {
		cond = append(cond, matchKeyword("language", f.Language))
	}
	if f.DocumentType != "" {
		cond = append(cond, matchKeyword("document_type", f.DocumentType))
	}
	return cond
}

func matchKeyword(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func splitPayload(payload map[string]*pb.Value) (content, id string, meta map[string]string) {
	meta = make(map[string]string, len(payload))
	for k, v := range payload {
		switch k {
		case "content":
			content = v.GetStringValue()
		case "chunk_id":
			id = v.GetStringValue()
		default:
			meta[k] = v.GetStringValue()
		}
	}
	return content, id, meta
}

// deterministicUUID maps a chunk id onto a stable UUID-formatted string.
func deterministicUUID(id string) string {
	sum := sha256.Sum256([]byte(id))
	b := sum[:16]
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	var out [36]byte
	hex.Encode(out[0:8], b[0:4])
	out[8] = '-'
	hex.Encode(out[9:13], b[4:6])
	out[13] = '-'
	hex.Encode(out[14:18], b[6:8])
	out[18] = '-'
	hex.Encode(out[19:23], b[8:10])
	out[23] = '-'
	hex.Encode(out[24:36], b[10:16])
	return string(out[:])
}

var _ vector.Repository = (*Repository)(nil)
