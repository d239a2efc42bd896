package handlers

import (
	"context"
	"fmt"
	"net/http"

	"memorygrid-backend/internal/domain"
	"memorygrid-backend/internal/logging"
	"memorygrid-backend/internal/service/memory"
	"memorygrid-backend/pkg/api"

	"go.uber.org/zap"
)

// MemoryHandler handles memory-related HTTP requests with injected dependencies.
type MemoryHandler struct {
	memoryService memory.Service
	logger        *zap.Logger
}

// NewMemoryHandler creates a new memory handler with dependency injection.
func NewMemoryHandler(memoryService memory.Service, logger *zap.Logger) *MemoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryHandler{memoryService: memoryService, logger: logger}
}

// Grid handles GET /api/v1/memories
func (h *MemoryHandler) Grid(w http.ResponseWriter, r *http.Request) {
	resp := api.GridResponse{
		Public: api.NewMemoryList(h.memoryService.FetchPublicMemories(r.Context())),
	}
	if owner := ownerID(r); owner != "" {
		private := api.NewMemoryList(h.memoryService.FetchPrivateMemories(r.Context(), owner))
		resp.Private = &private
	}
	api.Success(w, http.StatusOK, resp)
}

// ListPublic handles GET /api/v1/memories/public
func (h *MemoryHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, api.NewMemoryList(h.memoryService.FetchPublicMemories(r.Context())))
}

// ListPrivate handles GET /api/v1/memories/private
func (h *MemoryHandler) ListPrivate(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, api.NewMemoryList(h.memoryService.FetchPrivateMemories(r.Context(), ownerID(r))))
}

// Create handles POST /api/v1/memories
func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.CreateMemoryRequest
	if err := api.Decode(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	created, err := h.memoryService.CreateMemory(r.Context(), req.Draft())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/v1/memories/"+created.ID)
	api.Success(w, http.StatusCreated, created)
}

// Categories handles GET /api/v1/memories/categories
func (h *MemoryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string][]domain.Category{"categories": domain.Categories})
}

// Export handles GET /api/v1/memories/export by streaming the document as a download.
func (h *MemoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	sink := &downloadSink{w: w}
	name, err := h.memoryService.ExportVisible(r.Context(), ownerID(r), sink)
	if err != nil {
		if sink.started {
			// Headers are gone; the client sees a truncated body.
			logging.FromContext(r.Context(), h.logger).Warn("export download interrupted", zap.Error(err))
			return
		}
		handleServiceError(w, r, h.logger, err)
		return
	}
	logging.FromContext(r.Context(), h.logger).Debug("export downloaded", zap.String("filename", name))
}

// downloadSink writes an export straight into the HTTP response as an attachment.
type downloadSink struct {
	w       http.ResponseWriter
	started bool
}

func (s *downloadSink) Save(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.Set("Content-Length", fmt.Sprint(len(data)))
	s.w.WriteHeader(http.StatusOK)
	_, err := s.w.Write(data)
	return err
}
