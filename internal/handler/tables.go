package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/geprek-pos/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListTables(ctx context.Context) ([]database.Table, error)
	GetInactiveTableByNumber(ctx context.Context, tableNumber string) (database.Table, error)
	GetActiveTableByNumber(ctx context.Context, arg database.GetActiveTableByNumberParams) (database.Table, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	ReactivateTable(ctx context.Context, arg database.ReactivateTableParams) (database.Table, error)
	UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.Table, error)
	DeactivateTable(ctx context.Context, id uuid.UUID) (database.Table, error)
}

// TableHandler handles table endpoints.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterRoutes registers table endpoints on the given Chi router.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Deactivate)
}

type tableRequest struct {
	TableNumber string `json:"table_number"`
	Name        string `json:"name"`
	IsActive    *bool  `json:"is_active"`
}

type tableResponse struct {
	ID          uuid.UUID `json:"id"`
	TableNumber string    `json:"table_number"`
	Name        string    `json:"name"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTableResponse(t database.Table) tableResponse {
	return tableResponse{
		ID:          t.ID,
		TableNumber: t.TableNumber,
		Name:        t.Name,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt,
	}
}

// List handles GET /tables. Active tables only unless ?all=true.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	includeInactive := r.URL.Query().Get("all") == "true"
	resp := []tableResponse{}
	for _, t := range tables {
		if !t.IsActive && !includeInactive {
			continue
		}
		resp = append(resp, toTableResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": resp})
}

// Create handles POST /tables. A deactivated table with the same number is
// reactivated in place instead of inserting a new row, so old orders still
// point at a valid table id.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.TableNumber == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_number and name are required"})
		return
	}

	// An active duplicate is a conflict regardless of how we would insert.
	if _, err := h.store.GetActiveTableByNumber(r.Context(), database.GetActiveTableByNumberParams{
		TableNumber: req.TableNumber,
	}); err == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "an active table with this number already exists"})
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: check active table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	existing, err := h.store.GetInactiveTableByNumber(r.Context(), req.TableNumber)
	switch {
	case err == nil:
		table, err := h.store.ReactivateTable(r.Context(), database.ReactivateTableParams{
			ID:   existing.ID,
			Name: req.Name,
		})
		if err != nil {
			log.Printf("ERROR: reactivate table: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		writeJSON(w, http.StatusOK, toTableResponse(table))
	case errors.Is(err, pgx.ErrNoRows):
		table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
			TableNumber: req.TableNumber,
			Name:        req.Name,
		})
		if err != nil {
			log.Printf("ERROR: create table: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		writeJSON(w, http.StatusCreated, toTableResponse(table))
	default:
		log.Printf("ERROR: lookup inactive table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// Update handles PATCH /tables/{id}. Activating a table fails with 409 if
// another active table already holds the number.
func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	current, err := h.store.GetTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Absent fields keep their stored values.
	tableNumber := current.TableNumber
	if req.TableNumber != "" {
		tableNumber = req.TableNumber
	}
	name := current.Name
	if req.Name != "" {
		name = req.Name
	}
	isActive := current.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	if isActive {
		_, err := h.store.GetActiveTableByNumber(r.Context(), database.GetActiveTableByNumberParams{
			TableNumber: tableNumber,
			ExcludeID:   id,
		})
		if err == nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "an active table with this number already exists"})
			return
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: check active table: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	table, err := h.store.UpdateTable(r.Context(), database.UpdateTableParams{
		ID:          id,
		TableNumber: tableNumber,
		Name:        name,
		IsActive:    isActive,
	})
	if err != nil {
		log.Printf("ERROR: update table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Deactivate handles DELETE /tables/{id}. Tables are never hard-deleted
// because historical orders reference them.
func (h *TableHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.DeactivateTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: deactivate table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}
