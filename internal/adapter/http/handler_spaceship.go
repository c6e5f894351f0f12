package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fixora/spaceships/internal/domain"
	"github.com/fixora/spaceships/internal/usecase"
	"github.com/fixora/spaceships/pkg/apperror"
)

// Paging defaults for the listing endpoint
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SpaceshipRequest is the body accepted by create and update
type SpaceshipRequest struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Source string `json:"source"`
}

// SpaceshipHandler handles HTTP requests for spaceships
type SpaceshipHandler struct {
	service usecase.SpaceshipService
	logger  *logrus.Entry
}

// NewSpaceshipHandler creates a new spaceship handler
func NewSpaceshipHandler(service usecase.SpaceshipService, logger logrus.FieldLogger) *SpaceshipHandler {
	return &SpaceshipHandler{
		service: service,
		logger:  logger.WithField("component", "spaceship_handler"),
	}
}

// RegisterRoutes registers spaceship routes
func (h *SpaceshipHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/spaceships", h.ListSpaceships).Methods("GET")
	router.HandleFunc("/api/spaceships", h.CreateSpaceship).Methods("POST")
	// registered before /{id} so "search" is never parsed as an id
	router.HandleFunc("/api/spaceships/search", h.SearchSpaceships).Methods("GET")
	router.HandleFunc("/api/spaceships/{id}", h.GetSpaceship).Methods("GET")
	router.HandleFunc("/api/spaceships/{id}", h.UpdateSpaceship).Methods("PUT")
	router.HandleFunc("/api/spaceships/{id}", h.DeleteSpaceship).Methods("DELETE")
}

// ListSpaceships handles paged listing
func (h *SpaceshipHandler) ListSpaceships(w http.ResponseWriter, r *http.Request) {
	req := parsePageRequest(r)

	page, err := h.service.FindAll(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if page.TotalPages > 0 && page.Number >= page.TotalPages {
		writeErrorResponse(w, apperror.NewBadRequest("PAGE_OUT_OF_RANGE",
			fmt.Sprintf("Page %d is out of range. Total pages: %d.", page.Number, page.TotalPages)))
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Spaceships retrieved successfully", page)
}

// SearchSpaceships handles case-insensitive name search
func (h *SpaceshipHandler) SearchSpaceships(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("name") {
		writeErrorResponse(w, apperror.NewBadRequest("MISSING_PARAMETER", "Required parameter 'name' is missing."))
		return
	}

	ships, err := h.service.FindByName(r.Context(), query.Get("name"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Spaceships retrieved successfully", ships)
}

// GetSpaceship handles lookup by id
func (h *SpaceshipHandler) GetSpaceship(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	ship, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Spaceship retrieved successfully", ship)
}

// CreateSpaceship handles spaceship creation
func (h *SpaceshipHandler) CreateSpaceship(w http.ResponseWriter, r *http.Request) {
	var req SpaceshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, apperror.NewBadRequest("INVALID_REQUEST", "Invalid request body"))
		return
	}

	saved, err := h.service.Save(r.Context(), domain.NewSpaceship(req.Name, req.Type, req.Source))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, domain.CreatedMessage(saved), saved)
}

// UpdateSpaceship handles full replacement of a spaceship
func (h *SpaceshipHandler) UpdateSpaceship(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req SpaceshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, apperror.NewBadRequest("INVALID_REQUEST", "Invalid request body"))
		return
	}

	ship := domain.NewSpaceship(req.Name, req.Type, req.Source)
	ship.ID = id

	saved, err := h.service.Save(r.Context(), ship)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, domain.UpdatedMessage(saved), saved)
}

// DeleteSpaceship handles spaceship deletion
func (h *SpaceshipHandler) DeleteSpaceship(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseID reads the {id} path variable and writes the 400 reply itself
func (h *SpaceshipHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logger.WithContext(r.Context()).WithField("id", raw).Warn("Invalid ID format")
		writeErrorResponse(w, apperror.NewBadRequest("INVALID_ID", "ID must be a valid number."))
		return 0, false
	}

	if id <= 0 {
		h.logger.WithContext(r.Context()).WithField("id", id).Warn("Attempted to use a non-positive spaceship ID")
		writeErrorResponse(w, apperror.NewBadRequest("INVALID_ID", "ID must be a positive number."))
		return 0, false
	}

	return id, true
}

func (h *SpaceshipHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.MapError(err)
	if apperror.IsUnexpected(err) {
		h.logger.WithContext(r.Context()).WithError(err).Error("Request failed")
	}
	writeErrorResponse(w, appErr)
}

// parsePageRequest reads page, size and any number of sort parameters.
// Malformed numbers fall back to the defaults and size is capped.
func parsePageRequest(r *http.Request) domain.PageRequest {
	query := r.URL.Query()
	req := domain.PageRequest{Page: 0, Size: DefaultPageSize}

	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		req.Page = p
	}

	if s, err := strconv.Atoi(query.Get("size")); err == nil && s > 0 {
		if s > MaxPageSize {
			s = MaxPageSize
		}
		req.Size = s
	}

	for _, param := range query["sort"] {
		req.Sort = append(req.Sort, parseSortParam(param)...)
	}

	return req
}

// parseSortParam accepts "field", "field,dir" and "f1,f2,dir". A trailing
// direction applies to every field before it.
func parseSortParam(param string) []domain.SortOrder {
	var parts []string
	for _, part := range strings.Split(param, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	direction := domain.DirectionAsc
	if len(parts) > 1 {
		if dir, ok := domain.ParseDirection(parts[len(parts)-1]); ok {
			direction = dir
			parts = parts[:len(parts)-1]
		}
	}

	orders := make([]domain.SortOrder, 0, len(parts))
	for _, field := range parts {
		orders = append(orders, domain.SortOrder{Field: field, Direction: direction})
	}
	return orders
}
