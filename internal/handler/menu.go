package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	ListMenu(ctx context.Context) ([]database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	SoftDeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// MenuHandler handles menu catalog endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type menuItemRequest struct {
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	Price           string `json:"price"`
	PriceGofood     string `json:"price_gofood"`
	PriceGrabfood   string `json:"price_grabfood"`
	PriceShopeefood string `json:"price_shopeefood"`
	IsGofood        bool   `json:"is_gofood"`
	IsGrabfood      bool   `json:"is_grabfood"`
	IsShopeefood    bool   `json:"is_shopeefood"`
	SupplierCode    string `json:"supplier_code"`
	ImageURL        string `json:"image_url"`
}

type menuItemResponse struct {
	ID              uuid.UUID  `json:"id"`
	CategoryID      *uuid.UUID `json:"category_id"`
	Name            string     `json:"name"`
	Price           string     `json:"price"`
	PriceGofood     *string    `json:"price_gofood"`
	PriceGrabfood   *string    `json:"price_grabfood"`
	PriceShopeefood *string    `json:"price_shopeefood"`
	IsGofood        bool       `json:"is_gofood"`
	IsGrabfood      bool       `json:"is_grabfood"`
	IsShopeefood    bool       `json:"is_shopeefood"`
	SupplierCode    string     `json:"supplier_code"`
	ImageURL        *string    `json:"image_url"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:              m.ID,
		CategoryID:      uuidPtr(m.CategoryID),
		Name:            m.Name,
		Price:           numericString(m.Price),
		PriceGofood:     numericPtr(m.PriceGofood),
		PriceGrabfood:   numericPtr(m.PriceGrabfood),
		PriceShopeefood: numericPtr(m.PriceShopeefood),
		IsGofood:        m.IsGofood,
		IsGrabfood:      m.IsGrabfood,
		IsShopeefood:    m.IsShopeefood,
		SupplierCode:    m.SupplierCode,
		ImageURL:        textPtr(m.ImageUrl),
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
	}
}

// menuParams validates the request body and converts it to storage params.
func menuParams(req menuItemRequest) (database.CreateMenuItemParams, error) {
	if req.Name == "" {
		return database.CreateMenuItemParams{}, errors.New("name is required")
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return database.CreateMenuItemParams{}, errors.New("invalid price")
	}
	supplierCode := req.SupplierCode
	if supplierCode == "" {
		supplierCode = enum.SupplierCodeS
	}
	if supplierCode != enum.SupplierCodeS && supplierCode != enum.SupplierCodeP {
		return database.CreateMenuItemParams{}, errors.New("supplier_code must be S or P")
	}

	params := database.CreateMenuItemParams{
		Name:         req.Name,
		Price:        decimalToNumericText(price),
		IsGofood:     req.IsGofood,
		IsGrabfood:   req.IsGrabfood,
		IsShopeefood: req.IsShopeefood,
		SupplierCode: supplierCode,
	}
	if req.CategoryID != "" {
		cid, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return database.CreateMenuItemParams{}, errors.New("invalid category_id")
		}
		params.CategoryID = pgtype.UUID{Bytes: cid, Valid: true}
	}
	if req.ImageURL != "" {
		params.ImageUrl = pgtype.Text{String: req.ImageURL, Valid: true}
	}
	for _, p := range []struct {
		raw  string
		dest *pgtype.Numeric
	}{
		{req.PriceGofood, &params.PriceGofood},
		{req.PriceGrabfood, &params.PriceGrabfood},
		{req.PriceShopeefood, &params.PriceShopeefood},
	} {
		if p.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(p.raw)
		if err != nil || d.IsNegative() {
			return database.CreateMenuItemParams{}, errors.New("invalid platform price")
		}
		*p.dest = decimalToNumericText(d)
	}
	return params, nil
}

func decimalToNumericText(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// List handles GET /menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenu(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"menu": resp})
}

// Get handles GET /menu/{id}.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu ID"})
		return
	}
	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Create handles POST /menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	params, err := menuParams(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update handles PUT /menu/{id}.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	params, err := menuParams(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:              id,
		CategoryID:      params.CategoryID,
		Name:            params.Name,
		Price:           params.Price,
		PriceGofood:     params.PriceGofood,
		PriceGrabfood:   params.PriceGrabfood,
		PriceShopeefood: params.PriceShopeefood,
		IsGofood:        params.IsGofood,
		IsGrabfood:      params.IsGrabfood,
		IsShopeefood:    params.IsShopeefood,
		SupplierCode:    params.SupplierCode,
		ImageUrl:        params.ImageUrl,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete handles DELETE /menu/{id} (soft delete).
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu ID"})
		return
	}

	if _, err := h.store.SoftDeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
