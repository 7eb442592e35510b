// Package semantic implements the vector store adapter. It validates
// inputs, delegates embedding to an Embedder and storage/search to Qdrant,
// and normalizes results and errors. Records are owned by the engine; the
// adapter caches nothing.
package semantic

import (
	"context"
	"strings"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/semcache/semcache/engine/domain"
)

// Payload keys owned by the adapter. "text" holds the document text,
// "metadata" holds the caller's mapping as a nested struct.
const (
	payloadText = "text"
	payloadMeta = "metadata"
)

// Embedder converts text to a fixed-length numeric vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is an optional upgrade for embedders that can handle a
// whole batch in one call. The store falls back to per-text Embed calls
// when the embedder does not implement it.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// pointsAPI is the slice of pb.PointsClient the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Get(ctx context.Context, in *pb.GetPoints, opts ...grpc.CallOption) (*pb.GetResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
	SetPayload(ctx context.Context, in *pb.SetPayloadPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
}

// collectionsAPI is the slice of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	dims        int
	embedder    Embedder
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr, collection string, dims int, embedder Embedder) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, domain.Enginef("connect", err, "dial qdrant %s", addr)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dims:        dims,
		embedder:    embedder,
	}, nil
}

// NewWithClients creates a VectorStore from explicit clients. Used by tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string, dims int, embedder Embedder) *VectorStore {
	return &VectorStore{
		points:      points,
		collections: collections,
		collection:  collection,
		dims:        dims,
		embedder:    embedder,
	}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return domain.Enginef("ensure_collection", err, "list collections")
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}
	return v.createCollection(ctx)
}

func (v *VectorStore) createCollection(ctx context.Context) error {
	_, err := v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(v.dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return domain.Enginef("create_collection", err, "create collection %s", v.collection)
	}
	return nil
}

// Add embeds text and stores it with the given metadata. A missing id is
// generated. Returns the stored id.
func (v *VectorStore) Add(ctx context.Context, text string, metadata domain.Metadata, id string) (string, error) {
	const op = "add"
	if strings.TrimSpace(text) == "" {
		return "", domain.Validationf(op, "text cannot be empty")
	}
	if id == "" {
		id = uuid.NewString()
	}

	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return "", domain.Enginef(op, err, "embed text")
	}

	if err := v.upsert(ctx, []*pb.PointStruct{point(id, vec, text, metadata)}); err != nil {
		return "", domain.Enginef(op, err, "upsert point")
	}
	return id, nil
}

// AddBatch embeds and stores multiple texts. Embeddings are generated one
// text at a time, order preserved; ids are returned in input order. When
// metadatas is nil no per-item metadata is supplied and each record stores
// an empty mapping.
func (v *VectorStore) AddBatch(ctx context.Context, texts []string, metadatas []domain.Metadata, ids []string) ([]string, error) {
	const op = "add_batch"
	if len(texts) == 0 {
		return nil, domain.Validationf(op, "texts list cannot be empty")
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, domain.Validationf(op, "text at index %d is empty", i)
		}
	}
	if ids == nil {
		ids = make([]string, len(texts))
		for i := range ids {
			ids[i] = uuid.NewString()
		}
	} else if len(ids) != len(texts) {
		return nil, domain.Validationf(op, "got %d ids for %d texts", len(ids), len(texts))
	}
	if metadatas != nil {
		if len(metadatas) != len(texts) {
			return nil, domain.Validationf(op, "got %d metadatas for %d texts", len(metadatas), len(texts))
		}
		for i, m := range metadatas {
			if m == nil {
				return nil, domain.Validationf(op, "metadata at index %d is missing", i)
			}
		}
	}

	vecs, err := v.embedAll(ctx, texts)
	if err != nil {
		return nil, domain.Enginef(op, err, "embed %d texts", len(texts))
	}

	points := make([]*pb.PointStruct, len(texts))
	for i, t := range texts {
		var meta domain.Metadata
		if metadatas != nil {
			meta = metadatas[i]
		}
		points[i] = point(ids[i], vecs[i], t, meta)
	}

	if err := v.upsert(ctx, points); err != nil {
		return nil, domain.Enginef(op, err, "upsert %d points", len(points))
	}
	return ids, nil
}

// Search embeds the query and returns up to topK hits ordered by ascending
// distance. Both filters apply as a logical AND. An empty collection yields
// an empty list, not an error.
func (v *VectorStore) Search(ctx context.Context, query string, topK int, where, whereDocument domain.Metadata) ([]domain.Hit, error) {
	const op = "search"
	if strings.TrimSpace(query) == "" {
		return nil, domain.Validationf(op, "query cannot be empty")
	}
	if topK <= 0 {
		return nil, domain.Validationf(op, "top_k must be greater than 0")
	}
	filter, err := buildFilter(where, whereDocument)
	if err != nil {
		return nil, err
	}

	vec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.Enginef(op, err, "embed query")
	}

	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vec,
		Limit:          uint64(topK),
		Filter:         filter,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, domain.Enginef(op, err, "query collection")
	}

	hits := make([]domain.Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		text, meta := decodePayload(r.GetPayload())
		hits[i] = domain.Hit{
			ID:       r.GetId().GetUuid(),
			Text:     text,
			Metadata: meta,
			// Qdrant reports cosine similarity; flip to a distance so the
			// best match carries the smallest value.
			Distance: 1 - r.GetScore(),
		}
	}
	return hits, nil
}

// GetByID returns the record with the given id, or (nil, nil) when no such
// record exists.
func (v *VectorStore) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	const op = "get_by_id"
	if strings.TrimSpace(id) == "" {
		return nil, domain.Validationf(op, "id cannot be empty")
	}

	resp, err := v.points.Get(ctx, &pb.GetPoints{
		CollectionName: v.collection,
		Ids:            []*pb.PointId{pointID(id)},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, domain.Enginef(op, err, "get point %s", id)
	}
	if len(resp.GetResult()) == 0 {
		return nil, nil
	}

	text, meta := decodePayload(resp.GetResult()[0].GetPayload())
	return &domain.Document{ID: id, Text: text, Metadata: meta}, nil
}

// Update replaces text and/or metadata of an existing record. Providing
// text regenerates the embedding; metadata replacement is a full overwrite,
// never a merge.
func (v *VectorStore) Update(ctx context.Context, id string, text *string, metadata domain.Metadata) error {
	const op = "update"
	if strings.TrimSpace(id) == "" {
		return domain.Validationf(op, "id cannot be empty")
	}
	if text == nil && metadata == nil {
		return domain.Validationf(op, "must provide text or metadata")
	}
	if text != nil && strings.TrimSpace(*text) == "" {
		return domain.Validationf(op, "text cannot be empty")
	}

	existing, err := v.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.NotFoundf(op, "no document with id %s", id)
	}

	if text == nil {
		// Metadata-only update: overwrite the metadata key, leave the
		// text and vector untouched.
		wait := true
		_, err := v.points.SetPayload(ctx, &pb.SetPayloadPoints{
			CollectionName: v.collection,
			Wait:           &wait,
			Payload:        map[string]*pb.Value{payloadMeta: encodeMetadata(metadata)},
			PointsSelector: idSelector(id),
		})
		if err != nil {
			return domain.Enginef(op, err, "set payload for %s", id)
		}
		return nil
	}

	vec, err := v.embedder.Embed(ctx, *text)
	if err != nil {
		return domain.Enginef(op, err, "embed text")
	}
	meta := metadata
	if meta == nil {
		meta = existing.Metadata
	}
	if err := v.upsert(ctx, []*pb.PointStruct{point(id, vec, *text, meta)}); err != nil {
		return domain.Enginef(op, err, "upsert point %s", id)
	}
	return nil
}

// Delete removes a record after confirming it exists.
func (v *VectorStore) Delete(ctx context.Context, id string) error {
	const op = "delete"
	if strings.TrimSpace(id) == "" {
		return domain.Validationf(op, "id cannot be empty")
	}

	existing, err := v.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.NotFoundf(op, "no document with id %s", id)
	}

	if err := v.deleteIDs(ctx, []string{id}); err != nil {
		return domain.Enginef(op, err, "delete point %s", id)
	}
	return nil
}

// DeleteBatch removes multiple records. Unlike Delete it does not pre-check
// that every id exists; missing ids are ignored by the engine.
func (v *VectorStore) DeleteBatch(ctx context.Context, ids []string) error {
	const op = "delete_batch"
	if len(ids) == 0 {
		return domain.Validationf(op, "ids list cannot be empty")
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return domain.Validationf(op, "id at index %d is empty", i)
		}
	}

	if err := v.deleteIDs(ctx, ids); err != nil {
		return domain.Enginef(op, err, "delete %d points", len(ids))
	}
	return nil
}

// Count returns the total number of stored records.
func (v *VectorStore) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := v.points.Count(ctx, &pb.CountPoints{
		CollectionName: v.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, domain.Enginef("count", err, "count points")
	}
	return int(resp.GetResult().GetCount()), nil
}

// Clear removes every record by dropping and recreating the collection.
// Irreversible.
func (v *VectorStore) Clear(ctx context.Context) error {
	const op = "clear"
	if _, err := v.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: v.collection}); err != nil {
		return domain.Enginef(op, err, "delete collection %s", v.collection)
	}
	return v.createCollection(ctx)
}

// --- engine plumbing ---

// embedAll embeds every text in input order, in one call when the
// embedder supports batching.
func (v *VectorStore) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if be, ok := v.embedder.(BatchEmbedder); ok {
		return be.EmbedBatch(ctx, texts)
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := v.embedder.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (v *VectorStore) upsert(ctx context.Context, points []*pb.PointStruct) error {
	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	return err
}

func (v *VectorStore) deleteIDs(ctx context.Context, ids []string) error {
	pointIDs := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	return err
}

func point(id string, vec []float32, text string, meta domain.Metadata) *pb.PointStruct {
	return &pb.PointStruct{
		Id: pointID(id),
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: vec},
			},
		},
		Payload: map[string]*pb.Value{
			payloadText: {Kind: &pb.Value_StringValue{StringValue: text}},
			payloadMeta: encodeMetadata(meta),
		},
	}
}

func pointID(id string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
}

func idSelector(id string) *pb.PointsSelector {
	return &pb.PointsSelector{
		PointsSelectorOneOf: &pb.PointsSelector_Points{
			Points: &pb.PointsIdsList{Ids: []*pb.PointId{pointID(id)}},
		},
	}
}
