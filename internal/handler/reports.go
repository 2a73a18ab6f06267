package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/geprek-pos/api/internal/cache"
	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// reportCacheTTL keeps repeated report loads off the database without
// letting a live day's numbers go stale for long.
const reportCacheTTL = time.Minute

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	ListFinalizedOrders(ctx context.Context, from, to time.Time) ([]database.Order, error)
	ListSettlementItems(ctx context.Context, from, to time.Time) ([]database.SettlementItemRow, error)
	ListTables(ctx context.Context) ([]database.Table, error)
}

// ReportsHandler handles settlement and dashboard endpoints.
type ReportsHandler struct {
	store         ReportsStore
	cache         *cache.Cache
	loc           *time.Location
	directMethods map[string]bool
}

// NewReportsHandler creates a new ReportsHandler. c may be nil when Redis
// is not configured.
func NewReportsHandler(store ReportsStore, c *cache.Cache, loc *time.Location, directMethods map[string]bool) *ReportsHandler {
	return &ReportsHandler{store: store, cache: c, loc: loc, directMethods: directMethods}
}

// RegisterRoutes registers report endpoints on the given Chi router.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settlement", h.Settlement)
	r.Get("/dashboard", h.Dashboard)
}

// Settlement handles GET /reports/settlement.
func (h *ReportsHandler) Settlement(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	key := fmt.Sprintf("report:settlement:%d:%d", from.Unix(), to.Unix())
	var cached report.Settlement
	if err := h.cache.Get(r.Context(), key, &cached); err == nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	orders, items, ok := h.loadWindow(w, r, from, to)
	if !ok {
		return
	}

	result := report.Settle(orders, items, h.directMethods)
	h.cache.Set(r.Context(), key, result, reportCacheTTL)
	writeJSON(w, http.StatusOK, result)
}

// Dashboard handles GET /reports/dashboard.
func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	key := fmt.Sprintf("report:dashboard:%d:%d", from.Unix(), to.Unix())
	var cached report.Dashboard
	if err := h.cache.Get(r.Context(), key, &cached); err == nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	orders, items, ok := h.loadWindow(w, r, from, to)
	if !ok {
		return
	}

	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	tableNumbers := make(map[uuid.UUID]string, len(tables))
	for _, t := range tables {
		tableNumbers[t.ID] = t.TableNumber
	}

	result := report.Aggregate(orders, items, tableNumbers, h.loc)
	h.cache.Set(r.Context(), key, result, reportCacheTTL)
	writeJSON(w, http.StatusOK, result)
}

func (h *ReportsHandler) loadWindow(w http.ResponseWriter, r *http.Request, from, to time.Time) ([]database.Order, []database.SettlementItemRow, bool) {
	orders, err := h.store.ListFinalizedOrders(r.Context(), from, to)
	if err != nil {
		log.Printf("ERROR: list finalized orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return nil, nil, false
	}
	items, err := h.store.ListSettlementItems(r.Context(), from, to)
	if err != nil {
		log.Printf("ERROR: list settlement items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return nil, nil, false
	}
	return orders, items, true
}

// parseDateRange resolves ?range=day|week|month|custom into a half-open
// [from, to) window in the outlet's timezone. Custom ranges take
// ?start=YYYY-MM-DD&end=YYYY-MM-DD with an inclusive end date.
func (h *ReportsHandler) parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	now := time.Now().In(h.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)

	switch r.URL.Query().Get("range") {
	case "", "day":
		return midnight, now, nil
	case "week":
		return midnight.AddDate(0, 0, -7), now, nil
	case "month":
		return midnight.AddDate(0, 0, -30), now, nil
	case "custom":
		startStr := r.URL.Query().Get("start")
		endStr := r.URL.Query().Get("end")
		if startStr == "" || endStr == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("custom range requires start and end")
		}
		start, err := time.ParseInLocation(layout, startStr, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start format: %w", err)
		}
		end, err := time.ParseInLocation(layout, endStr, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end format: %w", err)
		}
		// Inclusive end date: push to next midnight.
		end = end.AddDate(0, 0, 1)
		if !start.Before(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("start must be before end")
		}
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid range, use day|week|month|custom")
	}
}
