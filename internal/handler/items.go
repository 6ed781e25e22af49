package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/service"
)

// ItemPayload is the write shape for catalog items.
type ItemPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Stock       int64  `json:"stock"`
	CategoryID  int64  `json:"categoryId"`
}

// ItemResponse is the read shape for catalog items.
type ItemResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        string    `json:"price"`
	Stock        int64     `json:"stock"`
	Active       bool      `json:"active"`
	CategoryID   int64     `json:"categoryId"`
	CategoryName string    `json:"categoryName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toItemResponse(item *domain.Item) ItemResponse {
	return ItemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Description:  item.Description,
		Price:        item.Price.StringFixed(2),
		Stock:        item.Stock,
		Active:       item.Active,
		CategoryID:   item.CategoryID,
		CategoryName: item.CategoryName,
		CreatedAt:    item.CreatedAt,
	}
}

// ItemsHandler serves the public catalog reads and the staff catalog writes.
type ItemsHandler struct {
	catalog *service.CatalogService
	guard   *security.Guard
	logger  *slog.Logger
}

// NewItemsHandler creates an items handler
func NewItemsHandler(catalog *service.CatalogService, guard *security.Guard, logger *slog.Logger) *ItemsHandler {
	return &ItemsHandler{catalog: catalog, guard: guard, logger: logger}
}

// List handles GET /api/items
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseItemFilter(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	items, err := h.catalog.ListItems(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /api/items/{id}
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toItemResponse(item))
}

// Create handles POST /api/items
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}

	item, err := h.decodeItem(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.catalog.CreateItem(r.Context(), item); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toItemResponse(item))
}

// Update handles PUT /api/items/{id}
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	item, err := h.decodeItem(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	item.ID = id
	if err := h.catalog.UpdateItem(r.Context(), item); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toItemResponse(item))
}

// Delete handles DELETE /api/items/{id}
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.catalog.DeleteItem(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemsHandler) decodeItem(r *http.Request) (*domain.Item, error) {
	var req ItemPayload
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	return &domain.Item{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	}, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errInvalidPrice
	}
	return price, nil
}

func parseItemFilter(r *http.Request) (domain.ItemFilter, error) {
	q := r.URL.Query()
	var filter domain.ItemFilter

	if v := q.Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, errInvalidFilter
		}
		filter.CategoryID = &id
	}
	if v := q.Get("minPrice"); v != "" {
		p, err := decimal.NewFromString(v)
		if err != nil {
			return filter, errInvalidFilter
		}
		filter.MinPrice = &p
	}
	if v := q.Get("maxPrice"); v != "" {
		p, err := decimal.NewFromString(v)
		if err != nil {
			return filter, errInvalidFilter
		}
		filter.MaxPrice = &p
	}
	filter.InStock = q.Get("inStock") == "true"

	switch v := q.Get("sortBy"); v {
	case "", "name", "price", "date":
		filter.SortBy = v
	default:
		return filter, errInvalidFilter
	}
	switch v := q.Get("sortOrder"); v {
	case "", "asc", "desc":
		filter.SortOrder = v
	default:
		return filter, errInvalidFilter
	}
	return filter, nil
}
