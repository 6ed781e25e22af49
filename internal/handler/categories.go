package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/service"
)

type CategoryPayload struct {
	Name string `json:"name"`
}

type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategoriesHandler serves category reads and staff category writes.
type CategoriesHandler struct {
	catalog *service.CatalogService
	guard   *security.Guard
	logger  *slog.Logger
}

// NewCategoriesHandler creates a categories handler
func NewCategoriesHandler(catalog *service.CatalogService, guard *security.Guard, logger *slog.Logger) *CategoriesHandler {
	return &CategoriesHandler{catalog: catalog, guard: guard, logger: logger}
}

// List handles GET /api/categories
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	out := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryResponse{ID: c.ID, Name: c.Name})
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /api/categories/{id}
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, CategoryResponse{ID: category.ID, Name: category.Name})
}

// Create handles POST /api/categories
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req CategoryPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	category := &domain.Category{Name: req.Name}
	if err := h.catalog.CreateCategory(r.Context(), category); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, CategoryResponse{ID: category.ID, Name: category.Name})
}

// Update handles PUT /api/categories/{id}
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req CategoryPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	category := &domain.Category{ID: id, Name: req.Name}
	if err := h.catalog.UpdateCategory(r.Context(), category); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, CategoryResponse{ID: category.ID, Name: category.Name})
}

// Delete handles DELETE /api/categories/{id}
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
