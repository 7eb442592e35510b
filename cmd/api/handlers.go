package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/semcache/semcache/engine/domain"
	"github.com/semcache/semcache/engine/events"
	"github.com/semcache/semcache/pkg/metrics"
)

// DocumentStore is what the handlers need from the vector store adapter.
type DocumentStore interface {
	Add(ctx context.Context, text string, metadata domain.Metadata, id string) (string, error)
	AddBatch(ctx context.Context, texts []string, metadatas []domain.Metadata, ids []string) ([]string, error)
	Search(ctx context.Context, query string, topK int, where, whereDocument domain.Metadata) ([]domain.Hit, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Update(ctx context.Context, id string, text *string, metadata domain.Metadata) error
	Delete(ctx context.Context, id string) error
	DeleteBatch(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type server struct {
	store  DocumentStore
	events *events.Publisher
	log    *slog.Logger
	reg    *metrics.Registry
}

// routes registers the authenticated v1 endpoints on mux. The mux is
// mounted behind the API-key and rate-limit middleware.
func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ingest/{$}", s.handleIngest)
	mux.HandleFunc("POST /api/v1/search/{$}", s.handleSearch)
	mux.HandleFunc("GET /api/v1/documents/count", s.handleCount)
	mux.HandleFunc("GET /api/v1/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("PATCH /api/v1/documents/{id}", s.handleUpdateDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("POST /api/v1/documents/batch-delete", s.handleBatchDelete)
	mux.HandleFunc("POST /api/v1/collection/clear", s.handleClear)
}

// ingestRequest accepts either a single text or a list. The metadata
// object, when present, applies to every item of a batch.
type ingestRequest struct {
	Text     json.RawMessage `json:"text"`
	Metadata domain.Metadata `json:"metadata"`
}

func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Text) == 0 {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	// Single text first, then a list; anything else is a client fault.
	var single string
	if err := json.Unmarshal(req.Text, &single); err == nil {
		id, err := s.store.Add(r.Context(), single, req.Metadata, "")
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.reg.Counter("documents_ingested_total", "Documents stored via ingest.").Inc()
		s.events.DocumentsIngested(r.Context(), []string{id})
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
		return
	}

	var texts []string
	if err := json.Unmarshal(req.Text, &texts); err != nil {
		writeError(w, http.StatusBadRequest, "text must be a string or an array of strings")
		return
	}

	// A single metadata object is replicated across every batch item.
	var metadatas []domain.Metadata
	if req.Metadata != nil {
		metadatas = make([]domain.Metadata, len(texts))
		for i := range metadatas {
			metadatas[i] = req.Metadata
		}
	}

	ids, err := s.store.AddBatch(r.Context(), texts, metadatas, nil)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.reg.Counter("documents_ingested_total", "Documents stored via ingest.").Add(int64(len(ids)))
	s.events.DocumentsIngested(r.Context(), ids)
	writeJSON(w, http.StatusOK, map[string]any{"id": ids})
}

type searchRequest struct {
	Query         string          `json:"query"`
	TopK          *int            `json:"top_k"`
	Where         domain.Metadata `json:"where"`
	WhereDocument domain.Metadata `json:"where_document"`
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	topK := 5
	if req.TopK != nil {
		topK = *req.TopK
	}

	hits, err := s.store.Search(r.Context(), req.Query, topK, req.Where, req.WhereDocument)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if hits == nil {
		hits = []domain.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type updateRequest struct {
	Text     *string         `json:"text"`
	Metadata domain.Metadata `json:"metadata"`
}

func (s *server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := r.PathValue("id")
	if err := s.store.Update(r.Context(), id, req.Text, req.Metadata); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (s *server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.events.DocumentsDeleted(r.Context(), []string{id})
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (s *server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.DeleteBatch(r.Context(), req.IDs); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.events.DocumentsDeleted(r.Context(), req.IDs)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": len(req.IDs)})
}

func (s *server) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Count(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.events.CollectionCleared(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "semcache",
		"version": version,
	})
}

// writeStoreError maps adapter error kinds onto status codes. Engine and
// unknown failures get a generic message; details go to the log only.
func (s *server) writeStoreError(w http.ResponseWriter, err error) {
	var se *domain.StoreError
	if errors.As(err, &se) {
		switch se.Kind {
		case domain.KindValidation:
			writeError(w, http.StatusBadRequest, se.Msg)
			return
		case domain.KindNotFound:
			writeError(w, http.StatusNotFound, se.Msg)
			return
		case domain.KindEngine:
			s.log.Error("vector engine failure", "op", se.Op, "error", err)
			writeError(w, http.StatusBadGateway, "vector engine unavailable")
			return
		}
	}
	s.log.Error("unexpected failure", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
