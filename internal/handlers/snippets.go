package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/benvon/smart-snippets/internal/request"
	"github.com/benvon/smart-snippets/internal/retrieval"
	"github.com/benvon/smart-snippets/internal/snippets"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SnippetService is the snippet behaviour the HTTP surface needs
type SnippetService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in snippets.CreateInput) (*models.Snippet, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Snippet, error)
	List(ctx context.Context, ownerID uuid.UUID, filter retrieval.Filter) ([]*models.Snippet, error)
	Replace(ctx context.Context, ownerID, id uuid.UUID, in snippets.CreateInput) (*models.Snippet, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, in snippets.PatchInput) (*models.Snippet, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Facets(ctx context.Context, ownerID uuid.UUID) ([]string, error)
	PreviewTags(in snippets.PreviewInput) (models.Tags, error)
	Stats(ctx context.Context, ownerID uuid.UUID) (*models.TagStatistics, error)
}

// SnippetHandler handles snippet requests
type SnippetHandler struct {
	service SnippetService
	logger  *zap.Logger
}

// NewSnippetHandler creates a new snippet handler
func NewSnippetHandler(service SnippetService, logger *zap.Logger) *SnippetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnippetHandler{service: service, logger: logger}
}

// RegisterRoutes registers snippet routes on the given router
// The router should already have the /snippets prefix (e.g., from apiRouter.PathPrefix("/snippets"))
func (h *SnippetHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListSnippets).Methods(http.MethodGet)
	r.HandleFunc("", h.CreateSnippet).Methods(http.MethodPost)
	r.HandleFunc("/tags", h.ListTags).Methods(http.MethodGet)
	r.HandleFunc("/tags/stats", h.GetTagStats).Methods(http.MethodGet)
	r.HandleFunc("/tags/preview", h.PreviewTags).Methods(http.MethodPost)
	r.HandleFunc("/{id}", h.GetSnippet).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.ReplaceSnippet).Methods(http.MethodPut)
	r.HandleFunc("/{id}", h.UpdateSnippet).Methods(http.MethodPatch)
	r.HandleFunc("/{id}", h.DeleteSnippet).Methods(http.MethodDelete)
}

// ListSnippetsResponse is the body of a list request
type ListSnippetsResponse struct {
	Snippets []*models.Snippet `json:"snippets"`
	Count    int               `json:"count"`
}

// TagsResponse carries a tag list
type TagsResponse struct {
	Tags []string `json:"tags"`
}

// DeleteSnippetResponse confirms a deletion
type DeleteSnippetResponse struct {
	ID      uuid.UUID `json:"id"`
	Deleted bool      `json:"deleted"`
}

// filterFromQuery reads tag (repeatable), tags (comma-separated), language
// and search (or q)
func filterFromQuery(r *http.Request) retrieval.Filter {
	q := r.URL.Query()

	var filter retrieval.Filter
	filter.Tags = append(filter.Tags, q["tag"]...)
	for _, list := range q["tags"] {
		filter.Tags = append(filter.Tags, strings.Split(list, ",")...)
	}
	if lang := q.Get("language"); lang != "" {
		language := models.Language(lang)
		filter.Language = &language
	}
	filter.Text = q.Get("search")
	if filter.Text == "" {
		filter.Text = q.Get("q")
	}
	return filter
}

// ListSnippets lists the caller's snippets, optionally filtered
func (h *SnippetHandler) ListSnippets(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.List(r.Context(), request.OwnerID(r), filterFromQuery(r))
	if err != nil {
		respondAppError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, ListSnippetsResponse{Snippets: results, Count: len(results)})
}

// CreateSnippet stores a new snippet with inferred tags
func (h *SnippetHandler) CreateSnippet(w http.ResponseWriter, r *http.Request) {
	var in snippets.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	snippet, err := h.service.Create(r.Context(), request.OwnerID(r), in)
	if err != nil {
		respondAppError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, snippet)
}

// GetSnippet returns one snippet
func (h *SnippetHandler) GetSnippet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	snippet, err := h.service.Get(r.Context(), request.OwnerID(r), id)
	if err != nil {
		respondAppError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, snippet)
}

// ReplaceSnippet overwrites a snippet
func (h *SnippetHandler) ReplaceSnippet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in snippets.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	snippet, err := h.service.Replace(r.Context(), request.OwnerID(r), id, in)
	if err != nil {
		respondAppError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, snippet)
}

// UpdateSnippet changes the supplied fields of a snippet
func (h *SnippetHandler) UpdateSnippet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in snippets.PatchInput
	if !decodeJSON(w, r, &in) {
		return
	}
	snippet, err := h.service.Update(r.Context(), request.OwnerID(r), id, in)
	if err != nil {
		respondAppError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, snippet)
}

// DeleteSnippet removes a snippet
func (h *SnippetHandler) DeleteSnippet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), request.OwnerID(r), id); err != nil {
		respondAppError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, DeleteSnippetResponse{ID: id, Deleted: true})
}

// ListTags returns the distinct tags across the caller's snippets
func (h *SnippetHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.Facets(r.Context(), request.OwnerID(r))
	if err != nil {
		respondAppError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

// GetTagStats returns the last computed tag statistics
func (h *SnippetHandler) GetTagStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), request.OwnerID(r))
	if err != nil {
		respondAppError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// PreviewTags infers tags for unsaved code
func (h *SnippetHandler) PreviewTags(w http.ResponseWriter, r *http.Request) {
	if request.OwnerID(r) == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	var in snippets.PreviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	tags, err := h.service.PreviewTags(in)
	if err != nil {
		respondAppError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}
