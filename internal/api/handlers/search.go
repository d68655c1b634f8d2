package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/agiletec-inc/mindbase/internal/api"
	"github.com/agiletec-inc/mindbase/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Project string   `json:"project"`
	Query   string   `json:"query"`
	Mode    string   `json:"mode"`
	Kind    string   `json:"kind"`
	Tags    []string `json:"tags"`
	Limit   int      `json:"limit"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Project == "" {
		api.Error(w, http.StatusBadRequest, "project is required")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	output, err := h.svc.Search(r.Context(), service.SearchInput{
		Query: req.Query,
		Mode:  service.SearchMode(req.Mode),
		Limit: req.Limit,
		Filters: service.SearchFilters{
			Project: req.Project,
			Kind:    req.Kind,
			Tags:    req.Tags,
		},
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, output)
}
