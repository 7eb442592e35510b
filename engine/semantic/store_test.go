package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/semcache/semcache/engine/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	vecs  map[string][]float32
	err   error
	calls []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls = append(m.calls, text)
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vecs[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

type mockPoints struct {
	upsertReq  *pb.UpsertPoints
	upsertErr  error
	getResp    *pb.GetResponse
	getErr     error
	getCalls   int
	deleteReq  *pb.DeletePoints
	deleteErr  error
	searchReq  *pb.SearchPoints
	searchResp *pb.SearchResponse
	searchErr  error
	countResp  *pb.CountResponse
	countErr   error
	setReq     *pb.SetPayloadPoints
	setErr     error
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upsertReq = in
	return &pb.PointsOperationResponse{}, m.upsertErr
}
func (m *mockPoints) Get(_ context.Context, _ *pb.GetPoints, _ ...grpc.CallOption) (*pb.GetResponse, error) {
	m.getCalls++
	if m.getResp == nil {
		return &pb.GetResponse{}, m.getErr
	}
	return m.getResp, m.getErr
}
func (m *mockPoints) Delete(_ context.Context, in *pb.DeletePoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.deleteReq = in
	return &pb.PointsOperationResponse{}, m.deleteErr
}
func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.searchReq = in
	if m.searchResp == nil {
		return &pb.SearchResponse{}, m.searchErr
	}
	return m.searchResp, m.searchErr
}
func (m *mockPoints) Count(_ context.Context, _ *pb.CountPoints, _ ...grpc.CallOption) (*pb.CountResponse, error) {
	if m.countResp == nil {
		return &pb.CountResponse{}, m.countErr
	}
	return m.countResp, m.countErr
}
func (m *mockPoints) SetPayload(_ context.Context, in *pb.SetPayloadPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.setReq = in
	return &pb.PointsOperationResponse{}, m.setErr
}

type mockCollections struct {
	listResp   *pb.ListCollectionsResponse
	listErr    error
	createReq  *pb.CreateCollection
	createErr  error
	deleteReq  *pb.DeleteCollection
	deleteErr  error
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	if m.listResp == nil {
		return &pb.ListCollectionsResponse{}, m.listErr
	}
	return m.listResp, m.listErr
}
func (m *mockCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.createReq = in
	return &pb.CollectionOperationResponse{Result: true}, m.createErr
}
func (m *mockCollections) Delete(_ context.Context, in *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.deleteReq = in
	return &pb.CollectionOperationResponse{Result: true}, m.deleteErr
}

func newStore(points *mockPoints, cols *mockCollections, emb *mockEmbedder) *VectorStore {
	if points == nil {
		points = &mockPoints{}
	}
	if cols == nil {
		cols = &mockCollections{}
	}
	if emb == nil {
		emb = &mockEmbedder{}
	}
	return NewWithClients(points, cols, "test", 3, emb)
}

func existingPoint(id, text string, meta domain.Metadata) *pb.GetResponse {
	return &pb.GetResponse{
		Result: []*pb.RetrievedPoint{{
			Id:      pointID(id),
			Payload: point(id, []float32{1, 0, 0}, text, meta).Payload,
		}},
	}
}

// --- Add ---

func TestAdd_EmptyTextFails(t *testing.T) {
	emb := &mockEmbedder{}
	vs := newStore(nil, nil, emb)

	for _, text := range []string{"", "   "} {
		_, err := vs.Add(context.Background(), text, nil, "")
		if !domain.IsValidation(err) {
			t.Fatalf("text %q: expected validation error, got %v", text, err)
		}
	}
	if len(emb.calls) != 0 {
		t.Fatalf("embedder should not be called on invalid input, got %d calls", len(emb.calls))
	}
}

func TestAdd_GeneratesID(t *testing.T) {
	points := &mockPoints{}
	vs := newStore(points, nil, nil)

	id, err := vs.Add(context.Background(), "hello", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}
	got := points.upsertReq.GetPoints()[0].GetId().GetUuid()
	if got != id {
		t.Fatalf("stored id %q != returned id %q", got, id)
	}
}

func TestAdd_UsesSuppliedID(t *testing.T) {
	vs := newStore(nil, nil, nil)
	id, err := vs.Add(context.Background(), "hello", nil, "custom-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "custom-id" {
		t.Fatalf("expected custom-id, got %q", id)
	}
}

func TestAdd_StoresTextAndMetadata(t *testing.T) {
	points := &mockPoints{}
	vs := newStore(points, nil, nil)

	_, err := vs.Add(context.Background(), "hello", domain.Metadata{"tag": "x"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := points.upsertReq.GetPoints()[0].GetPayload()
	if payload[payloadText].GetStringValue() != "hello" {
		t.Fatal("text not stored in payload")
	}
	fields := payload[payloadMeta].GetStructValue().GetFields()
	if fields["tag"].GetStringValue() != "x" {
		t.Fatal("metadata not stored in payload")
	}
}

func TestAdd_NilMetadataStoresEmptyMapping(t *testing.T) {
	points := &mockPoints{}
	vs := newStore(points, nil, nil)

	if _, err := vs.Add(context.Background(), "hello", nil, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meta := points.upsertReq.GetPoints()[0].GetPayload()[payloadMeta]
	if meta.GetStructValue() == nil {
		t.Fatal("expected empty metadata struct, got nothing")
	}
	if len(meta.GetStructValue().GetFields()) != 0 {
		t.Fatal("expected empty metadata")
	}
}

func TestAdd_EmbedFailureIsEngineError(t *testing.T) {
	emb := &mockEmbedder{err: errors.New("model offline")}
	vs := newStore(nil, nil, emb)

	_, err := vs.Add(context.Background(), "hello", nil, "")
	if domain.KindOf(err) != domain.KindEngine {
		t.Fatalf("expected engine error, got %v", err)
	}
}

func TestAdd_UpsertFailureIsEngineError(t *testing.T) {
	points := &mockPoints{upsertErr: errors.New("rpc fail")}
	vs := newStore(points, nil, nil)

	_, err := vs.Add(context.Background(), "hello", nil, "")
	if domain.KindOf(err) != domain.KindEngine {
		t.Fatalf("expected engine error, got %v", err)
	}
}

// --- AddBatch ---

func TestAddBatch_Validations(t *testing.T) {
	vs := newStore(nil, nil, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		texts []string
		metas []domain.Metadata
		ids   []string
	}{
		{"empty list", nil, nil, nil},
		{"blank entry", []string{"a", " "}, nil, nil},
		{"id count mismatch", []string{"a", "b", "c"}, nil, []string{"x", "y"}},
		{"metadata count mismatch", []string{"a", "b"}, []domain.Metadata{{"k": "v"}}, nil},
		{"missing metadata entry", []string{"a", "b"}, []domain.Metadata{{"k": "v"}, nil}, nil},
	}
	for _, tc := range cases {
		if _, err := vs.AddBatch(ctx, tc.texts, tc.metas, tc.ids); !domain.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestAddBatch_OrderPreserved(t *testing.T) {
	points := &mockPoints{}
	emb := &mockEmbedder{vecs: map[string][]float32{
		"a": {1, 0, 0}, "b": {0, 1, 0}, "c": {0, 0, 1},
	}}
	vs := newStore(points, nil, emb)

	ids, err := vs.AddBatch(context.Background(), []string{"a", "b", "c"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" || seen[id] {
			t.Fatalf("ids must be non-empty and distinct, got %v", ids)
		}
		seen[id] = true
	}

	pts := points.upsertReq.GetPoints()
	if len(pts) != 3 {
		t.Fatalf("expected 3 points, got %d", len(pts))
	}
	for i, want := range []string{"a", "b", "c"} {
		if pts[i].GetPayload()[payloadText].GetStringValue() != want {
			t.Fatalf("point %d: text out of order", i)
		}
		if pts[i].GetId().GetUuid() != ids[i] {
			t.Fatalf("point %d: id misaligned with returned ids", i)
		}
	}
	// One vector per text, aligned positionally.
	if pts[1].GetVectors().GetVector().GetData()[1] != 1 {
		t.Fatal("embedding not aligned with its text")
	}
}

func TestAddBatch_SuppliedIDs(t *testing.T) {
	vs := newStore(nil, nil, nil)
	ids, err := vs.AddBatch(context.Background(), []string{"a", "b"}, nil, []string{"id1", "id2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids[0] != "id1" || ids[1] != "id2" {
		t.Fatalf("expected ids in input order, got %v", ids)
	}
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls [][]string
	batchErr   error
}

func (m *mockBatchEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls = append(m.batchCalls, texts)
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vecs[t]; ok {
			vecs[i] = v
		} else {
			vecs[i] = []float32{1, 0, 0}
		}
	}
	return vecs, nil
}

func TestAddBatch_UsesBatchEmbedder(t *testing.T) {
	points := &mockPoints{}
	emb := &mockBatchEmbedder{mockEmbedder: mockEmbedder{vecs: map[string][]float32{
		"a": {1, 0, 0}, "b": {0, 1, 0},
	}}}
	vs := NewWithClients(points, &mockCollections{}, "test", 3, emb)

	ids, err := vs.AddBatch(context.Background(), []string{"a", "b"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emb.batchCalls) != 1 || len(emb.batchCalls[0]) != 2 {
		t.Fatalf("expected one batch call with both texts, got %v", emb.batchCalls)
	}
	if len(emb.calls) != 0 {
		t.Fatalf("per-text embed must not run when batching is available, got %v", emb.calls)
	}
	pts := points.upsertReq.GetPoints()
	if len(pts) != 2 || pts[0].GetId().GetUuid() != ids[0] {
		t.Fatal("batch-embedded points misaligned with returned ids")
	}
	if pts[1].GetVectors().GetVector().GetData()[1] != 1 {
		t.Fatal("batch embedding not aligned with its text")
	}
}

func TestAddBatch_BatchEmbedFailureIsEngineError(t *testing.T) {
	emb := &mockBatchEmbedder{batchErr: errors.New("model offline")}
	vs := NewWithClients(&mockPoints{}, &mockCollections{}, "test", 3, emb)

	_, err := vs.AddBatch(context.Background(), []string{"a", "b"}, nil, nil)
	if domain.KindOf(err) != domain.KindEngine {
		t.Fatalf("expected engine error, got %v", err)
	}
}

// --- Search ---

func TestSearch_Validations(t *testing.T) {
	vs := newStore(nil, nil, nil)
	ctx := context.Background()

	if _, err := vs.Search(ctx, "", 5, nil, nil); !domain.IsValidation(err) {
		t.Fatalf("empty query: expected validation error, got %v", err)
	}
	if _, err := vs.Search(ctx, "q", 0, nil, nil); !domain.IsValidation(err) {
		t.Fatalf("top_k=0: expected validation error, got %v", err)
	}
}

func TestSearch_EmptyCollectionReturnsEmptyList(t *testing.T) {
	points := &mockPoints{searchResp: &pb.SearchResponse{}}
	vs := newStore(points, nil, nil)

	hits, err := vs.Search(context.Background(), "q", 5, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected empty result, got %d hits", len(hits))
	}
}

func TestSearch_FormatsHits(t *testing.T) {
	points := &mockPoints{searchResp: &pb.SearchResponse{
		Result: []*pb.ScoredPoint{
			{
				Id:      pointID("id1"),
				Score:   0.9,
				Payload: point("id1", nil, "doc one", domain.Metadata{"tag": "x"}).Payload,
			},
			{
				Id:      pointID("id2"),
				Score:   0.4,
				Payload: point("id2", nil, "doc two", nil).Payload,
			},
		},
	}}
	vs := newStore(points, nil, nil)

	hits, err := vs.Search(context.Background(), "q", 2, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "id1" || hits[0].Text != "doc one" {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if hits[0].Metadata["tag"] != "x" {
		t.Fatal("metadata missing from hit")
	}
	if hits[1].Metadata == nil {
		t.Fatal("metadata must be an empty mapping, not nil")
	}
	// Distance ascends: best match first.
	if !(hits[0].Distance < hits[1].Distance) {
		t.Fatalf("expected ascending distance, got %v then %v", hits[0].Distance, hits[1].Distance)
	}
	if points.searchReq.GetLimit() != 2 {
		t.Fatalf("expected limit 2, got %d", points.searchReq.GetLimit())
	}
}

func TestSearch_BuildsFilters(t *testing.T) {
	points := &mockPoints{}
	vs := newStore(points, nil, nil)

	_, err := vs.Search(context.Background(), "q", 5,
		domain.Metadata{"tag": "x"},
		domain.Metadata{"contains": "motor"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	must := points.searchReq.GetFilter().GetMust()
	if len(must) != 2 {
		t.Fatalf("expected 2 AND conditions, got %d", len(must))
	}
	keys := map[string]bool{}
	for _, c := range must {
		keys[c.GetField().GetKey()] = true
	}
	if !keys["metadata.tag"] || !keys[payloadText] {
		t.Fatalf("unexpected filter keys: %v", keys)
	}
}

func TestSearch_UnsupportedDocumentFilterFails(t *testing.T) {
	vs := newStore(nil, nil, nil)
	_, err := vs.Search(context.Background(), "q", 5, nil, domain.Metadata{"regex": ".*"})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearch_EngineFailure(t *testing.T) {
	points := &mockPoints{searchErr: errors.New("rpc fail")}
	vs := newStore(points, nil, nil)

	_, err := vs.Search(context.Background(), "q", 5, nil, nil)
	if domain.KindOf(err) != domain.KindEngine {
		t.Fatalf("expected engine error, got %v", err)
	}
}

// --- GetByID ---

func TestGetByID_EmptyIDFails(t *testing.T) {
	vs := newStore(nil, nil, nil)
	if _, err := vs.GetByID(context.Background(), " "); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetByID_AbsentReturnsNil(t *testing.T) {
	vs := newStore(&mockPoints{getResp: &pb.GetResponse{}}, nil, nil)
	doc, err := vs.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("absent id must not be an error, got %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil document, got %+v", doc)
	}
}

func TestGetByID_Found(t *testing.T) {
	points := &mockPoints{getResp: existingPoint("id1", "hello", domain.Metadata{"tag": "x"})}
	vs := newStore(points, nil, nil)

	doc, err := vs.GetByID(context.Background(), "id1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "id1" || doc.Text != "hello" || doc.Metadata["tag"] != "x" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

// --- Update ---

func TestUpdate_Validations(t *testing.T) {
	vs := newStore(nil, nil, nil)
	ctx := context.Background()
	text := "new"
	blank := "  "

	if err := vs.Update(ctx, "", &text, nil); !domain.IsValidation(err) {
		t.Fatalf("empty id: expected validation error, got %v", err)
	}
	if err := vs.Update(ctx, "id1", nil, nil); !domain.IsValidation(err) {
		t.Fatalf("no fields: expected validation error, got %v", err)
	}
	if err := vs.Update(ctx, "id1", &blank, nil); !domain.IsValidation(err) {
		t.Fatalf("blank text: expected validation error, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	vs := newStore(&mockPoints{getResp: &pb.GetResponse{}}, nil, nil)
	text := "new"
	if err := vs.Update(context.Background(), "missing", &text, nil); !domain.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestUpdate_TextRegeneratesEmbedding(t *testing.T) {
	points := &mockPoints{getResp: existingPoint("id1", "old", domain.Metadata{"tag": "x"})}
	emb := &mockEmbedder{vecs: map[string][]float32{"new": {0, 1, 0}}}
	vs := newStore(points, nil, emb)

	text := "new"
	if err := vs.Update(context.Background(), "id1", &text, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emb.calls) != 1 || emb.calls[0] != "new" {
		t.Fatalf("expected one embed call for new text, got %v", emb.calls)
	}
	pt := points.upsertReq.GetPoints()[0]
	if pt.GetVectors().GetVector().GetData()[1] != 1 {
		t.Fatal("vector not regenerated from new text")
	}
	if pt.GetPayload()[payloadText].GetStringValue() != "new" {
		t.Fatal("text not replaced")
	}
	// Existing metadata rides along when none is supplied.
	if pt.GetPayload()[payloadMeta].GetStructValue().GetFields()["tag"].GetStringValue() != "x" {
		t.Fatal("existing metadata lost on text-only update")
	}
	if points.setReq != nil {
		t.Fatal("text update must not go through SetPayload")
	}
}

func TestUpdate_MetadataOnlyLeavesTextAlone(t *testing.T) {
	points := &mockPoints{getResp: existingPoint("id1", "old", nil)}
	emb := &mockEmbedder{}
	vs := newStore(points, nil, emb)

	err := vs.Update(context.Background(), "id1", nil, domain.Metadata{"tag": "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emb.calls) != 0 {
		t.Fatal("metadata-only update must not re-embed")
	}
	if points.upsertReq != nil {
		t.Fatal("metadata-only update must not upsert a new point")
	}
	fields := points.setReq.GetPayload()[payloadMeta].GetStructValue().GetFields()
	if fields["tag"].GetStringValue() != "y" {
		t.Fatal("metadata not overwritten")
	}
}

// --- Delete ---

func TestDelete_ChecksExistenceFirst(t *testing.T) {
	points := &mockPoints{getResp: existingPoint("id1", "hello", nil)}
	vs := newStore(points, nil, nil)

	if err := vs.Delete(context.Background(), "id1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if points.getCalls != 1 {
		t.Fatalf("expected existence check before delete, got %d get calls", points.getCalls)
	}
	ids := points.deleteReq.GetPoints().GetPoints().GetIds()
	if len(ids) != 1 || ids[0].GetUuid() != "id1" {
		t.Fatalf("unexpected delete selector: %v", ids)
	}
}

func TestDelete_MissingIsNotFound(t *testing.T) {
	vs := newStore(&mockPoints{getResp: &pb.GetResponse{}}, nil, nil)
	if err := vs.Delete(context.Background(), "gone"); !domain.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestDelete_EmptyIDFails(t *testing.T) {
	vs := newStore(nil, nil, nil)
	if err := vs.Delete(context.Background(), ""); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// --- DeleteBatch ---

func TestDeleteBatch_Validations(t *testing.T) {
	vs := newStore(nil, nil, nil)
	ctx := context.Background()

	if err := vs.DeleteBatch(ctx, nil); !domain.IsValidation(err) {
		t.Fatalf("empty list: expected validation error, got %v", err)
	}
	if err := vs.DeleteBatch(ctx, []string{"a", ""}); !domain.IsValidation(err) {
		t.Fatalf("blank id: expected validation error, got %v", err)
	}
}

func TestDeleteBatch_SkipsExistenceCheck(t *testing.T) {
	points := &mockPoints{}
	vs := newStore(points, nil, nil)

	if err := vs.DeleteBatch(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if points.getCalls != 0 {
		t.Fatal("batch delete must not pre-check existence")
	}
	if len(points.deleteReq.GetPoints().GetPoints().GetIds()) != 2 {
		t.Fatal("expected both ids in delete selector")
	}
}

// --- Count / Clear ---

func TestCount(t *testing.T) {
	points := &mockPoints{countResp: &pb.CountResponse{Result: &pb.CountResult{Count: 42}}}
	vs := newStore(points, nil, nil)

	n, err := vs.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
}

func TestClear_DropsAndRecreatesCollection(t *testing.T) {
	cols := &mockCollections{}
	vs := newStore(nil, cols, nil)

	if err := vs.Clear(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.deleteReq.GetCollectionName() != "test" {
		t.Fatal("collection not dropped")
	}
	if cols.createReq.GetCollectionName() != "test" {
		t.Fatal("collection not recreated")
	}
}

func TestClear_DeleteFailureIsEngineError(t *testing.T) {
	cols := &mockCollections{deleteErr: errors.New("rpc fail")}
	vs := newStore(nil, cols, nil)

	if err := vs.Clear(context.Background()); domain.KindOf(err) != domain.KindEngine {
		t.Fatalf("expected engine error, got %v", err)
	}
}

// --- EnsureCollection ---

func TestEnsureCollection_AlreadyExists(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "test"}},
		},
	}
	vs := newStore(nil, cols, nil)
	if err := vs.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.createReq != nil {
		t.Fatal("existing collection must not be recreated")
	}
}

func TestEnsureCollection_Creates(t *testing.T) {
	cols := &mockCollections{listResp: &pb.ListCollectionsResponse{}}
	vs := newStore(nil, cols, nil)
	if err := vs.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.createReq == nil {
		t.Fatal("expected collection create")
	}
	if cols.createReq.GetVectorsConfig().GetParams().GetSize() != 3 {
		t.Fatal("expected configured vector size")
	}
}

func TestClose_NilConn(t *testing.T) {
	vs := newStore(nil, nil, nil)
	if err := vs.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
