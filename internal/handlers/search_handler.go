package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/common"
	"github.com/ternarybob/seeker/internal/interfaces"
	"github.com/ternarybob/seeker/internal/models"
)

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	URL        string `json:"url" validate:"required,url"`
	SearchTerm string `json:"search_term" validate:"required"`
	MaxPages   int    `json:"max_pages" validate:"omitempty,gte=1"`
}

// SearchHandler exposes the search pipeline over HTTP. Searches run in the
// background; clients poll status/results or stream progress over the
// websocket endpoint.
type SearchHandler struct {
	searchService   interfaces.SearchService
	tracker         interfaces.StateTracker
	validate        *validator.Validate
	defaultMaxPages int
	logger          arbor.ILogger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searchService interfaces.SearchService, tracker interfaces.StateTracker, defaultMaxPages int, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{
		searchService:   searchService,
		tracker:         tracker,
		validate:        validator.New(),
		defaultMaxPages: defaultMaxPages,
		logger:          logger,
	}
}

// StartSearch handles POST /api/search. It validates the request, creates
// the search state, launches the pipeline in the background and returns
// the search id immediately.
func (h *SearchHandler) StartSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	maxPages := req.MaxPages
	if maxPages == 0 {
		maxPages = h.defaultMaxPages
	}

	id := common.NewSearchID()
	if err := h.tracker.InitSearch(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Str("search_id", id).Msg("Failed to initialize search state")
		WriteError(w, http.StatusInternalServerError, "Failed to start search")
		return
	}

	h.logger.Info().
		Str("search_id", id).
		Str("url", req.URL).
		Str("search_term", req.SearchTerm).
		Int("max_pages", maxPages).
		Msg("Search accepted")

	// The search outlives the request; run it on a background context
	go func() {
		if _, err := h.searchService.Search(context.Background(), id, req.URL, req.SearchTerm, maxPages); err != nil {
			h.logger.Warn().Err(err).Str("search_id", id).Msg("Background search failed")
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"search_id": id,
		"status":    string(models.StatusWaiting),
	})
}

// Status handles GET /api/search/{id}/status.
func (h *SearchHandler) Status(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot, ok := h.tracker.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "Search not found")
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

// Results handles GET /api/search/{id}/results. An in-flight search answers
// 202 with the current snapshot; a failed one answers 500 with its error.
func (h *SearchHandler) Results(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot, ok := h.tracker.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "Search not found")
		return
	}

	switch snapshot.Status {
	case models.StatusCompleted:
		results, _ := h.tracker.Results(id)
		if results == nil {
			results = []models.SearchResult{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"search_id": id,
			"status":    snapshot.Status,
			"count":     len(results),
			"results":   results,
		})
	case models.StatusError:
		WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"search_id": id,
			"status":    snapshot.Status,
			"error":     snapshot.Error,
		})
	default:
		WriteJSON(w, http.StatusAccepted, map[string]interface{}{
			"search_id": id,
			"status":    snapshot.Status,
			"progress":  snapshot.Progress,
		})
	}
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "url":
			parts = append(parts, fe.Field()+" must be a valid URL")
		case "gte":
			parts = append(parts, fe.Field()+" must be at least "+fe.Param())
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
