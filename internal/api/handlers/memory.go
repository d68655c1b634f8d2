package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/agiletec-inc/mindbase/internal/api"
	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/agiletec-inc/mindbase/internal/service"
	"github.com/go-chi/chi/v5"
)

type MemoryService interface {
	Store(ctx context.Context, input service.StoreInput) (*domain.Memory, error)
	GetByID(ctx context.Context, id string) (*domain.Memory, error)
	List(ctx context.Context, input service.ListMemoriesInput) (*service.ListMemoriesOutput, error)
	Delete(ctx context.Context, id string) error
}

type MemoryHandler struct {
	svc MemoryService
}

func NewMemoryHandler(svc MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type StoreMemoryRequest struct {
	Project  string            `json:"project"`
	Kind     string            `json:"kind"`
	Content  string            `json:"content"`
	Tags     []string          `json:"tags"`
	Metadata map[string]string `json:"metadata"`
}

type MemoryResponse struct {
	ID        string            `json:"id"`
	Project   string            `json:"project"`
	Kind      string            `json:"kind"`
	Content   string            `json:"content"`
	Tags      []string          `json:"tags,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

func memoryToResponse(m *domain.Memory) *MemoryResponse {
	return &MemoryResponse{
		ID:        m.ID,
		Project:   m.Project,
		Kind:      string(m.Kind),
		Content:   m.Content,
		Tags:      m.Tags,
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req StoreMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Project == "" {
		api.Error(w, http.StatusBadRequest, "project is required")
		return
	}
	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	memory, err := h.svc.Store(r.Context(), service.StoreInput{
		Project:  req.Project,
		Kind:     req.Kind,
		Content:  req.Content,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, memoryToResponse(memory))
}

func (h *MemoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	memory, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, memoryToResponse(memory))
}

type MemoryListResponse struct {
	Items   []*MemoryResponse `json:"items"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	if project == "" {
		api.Error(w, http.StatusBadRequest, "project is required")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.List(r.Context(), service.ListMemoriesInput{
		Project: project,
		Kind:    r.URL.Query().Get("kind"),
		Cursor:  r.URL.Query().Get("cursor"),
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*MemoryResponse, len(output.Items))
	for i, m := range output.Items {
		responses[i] = memoryToResponse(m)
	}

	api.Success(w, http.StatusOK, MemoryListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"deleted": id})
}
