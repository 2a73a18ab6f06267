package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/handler"
)

// --- Mock ReportsStore ---

type mockReportsStore struct {
	listFinalizedOrdersFn func(ctx context.Context, from, to time.Time) ([]database.Order, error)
	listSettlementItemsFn func(ctx context.Context, from, to time.Time) ([]database.SettlementItemRow, error)
	listTablesFn          func(ctx context.Context) ([]database.Table, error)
}

func (m *mockReportsStore) ListFinalizedOrders(ctx context.Context, from, to time.Time) ([]database.Order, error) {
	if m.listFinalizedOrdersFn != nil {
		return m.listFinalizedOrdersFn(ctx, from, to)
	}
	return []database.Order{}, nil
}

func (m *mockReportsStore) ListSettlementItems(ctx context.Context, from, to time.Time) ([]database.SettlementItemRow, error) {
	if m.listSettlementItemsFn != nil {
		return m.listSettlementItemsFn(ctx, from, to)
	}
	return []database.SettlementItemRow{}, nil
}

func (m *mockReportsStore) ListTables(ctx context.Context) ([]database.Table, error) {
	if m.listTablesFn != nil {
		return m.listTablesFn(ctx)
	}
	return []database.Table{}, nil
}

var wib = time.FixedZone("WIB", 7*60*60)

func setupReportsRouter(store *mockReportsStore) *chi.Mux {
	h := handler.NewReportsHandler(store, nil, wib, map[string]bool{"qris_s": true})
	r := chi.NewRouter()
	r.Route("/reports", h.RegisterRoutes)
	return r
}

func paidOrder(total, method, bucket, supplierShare, partnerShare string) database.Order {
	now := time.Now()
	return database.Order{
		ID:            uuid.New(),
		OrderType:     "dine-in",
		Status:        "paid",
		TotalPrice:    testNumeric(total),
		PaymentMethod: testText(method),
		PaidAt:        pgtype.Timestamptz{Time: now, Valid: true},
		CashBucket:    testText(bucket),
		SupplierShare: testNumeric(supplierShare),
		PartnerShare:  testNumeric(partnerShare),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// --- Tests ---

func TestReportSettlement_HappyPath(t *testing.T) {
	order := paidOrder("35000", "cash", "P", "30000", "5000")
	store := &mockReportsStore{
		listFinalizedOrdersFn: func(ctx context.Context, from, to time.Time) ([]database.Order, error) {
			if !from.Before(to) {
				t.Errorf("window: from %v not before to %v", from, to)
			}
			return []database.Order{order}, nil
		},
		listSettlementItemsFn: func(ctx context.Context, from, to time.Time) ([]database.SettlementItemRow, error) {
			return []database.SettlementItemRow{
				{
					OrderID: order.ID, MenuID: uuid.New(), MenuName: "Ayam Geprek Original",
					CategoryName: "Makanan", Quantity: 2, Subtotal: testNumeric("30000"),
					SupplierCode: "S",
				},
			}, nil
		},
	}

	router := setupReportsRouter(store)
	rr := doRequest(t, router, "GET", "/reports/settlement", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	summary := resp["summary"].(map[string]interface{})
	partner := summary["partner"].(map[string]interface{})
	supplier := summary["supplier"].(map[string]interface{})
	if partner["cash_in_hand"] != "35000" {
		t.Errorf("partner cash_in_hand: got %v, want 35000", partner["cash_in_hand"])
	}
	if supplier["revenue"] != "30000" {
		t.Errorf("supplier revenue: got %v, want 30000", supplier["revenue"])
	}
	if _, ok := resp["supplier_pending"].(map[string]interface{}); !ok {
		t.Error("supplier_pending not present")
	}
	details := resp["detail_items"].([]interface{})
	if len(details) != 1 {
		t.Fatalf("detail_items count: got %d, want 1", len(details))
	}
}

func TestReportSettlement_EmptyWindow(t *testing.T) {
	router := setupReportsRouter(&mockReportsStore{})
	rr := doRequest(t, router, "GET", "/reports/settlement?range=week", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	details := resp["detail_items"].([]interface{})
	if len(details) != 0 {
		t.Errorf("detail_items: got %d, want 0", len(details))
	}
}

func TestReportDashboard_HappyPath(t *testing.T) {
	tableID := uuid.New()
	order := paidOrder("35000", "cash", "P", "30000", "5000")
	order.TableID = pgtype.UUID{Bytes: tableID, Valid: true}

	store := &mockReportsStore{
		listFinalizedOrdersFn: func(ctx context.Context, from, to time.Time) ([]database.Order, error) {
			return []database.Order{order}, nil
		},
		listSettlementItemsFn: func(ctx context.Context, from, to time.Time) ([]database.SettlementItemRow, error) {
			return []database.SettlementItemRow{
				{
					OrderID: order.ID, MenuID: uuid.New(), MenuName: "Ayam Geprek Original",
					CategoryName: "Makanan", Quantity: 2, Subtotal: testNumeric("30000"),
					SupplierCode: "S",
				},
			}, nil
		},
		listTablesFn: func(ctx context.Context) ([]database.Table, error) {
			return []database.Table{{ID: tableID, TableNumber: "4", Name: "Meja 4", IsActive: true}}, nil
		},
	}

	router := setupReportsRouter(store)
	rr := doRequest(t, router, "GET", "/reports/dashboard", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	summary := resp["summary"].(map[string]interface{})
	if summary["total_trx"] != float64(1) {
		t.Errorf("total_trx: got %v, want 1", summary["total_trx"])
	}
	if summary["total_sales"] != "35000" {
		t.Errorf("total_sales: got %v, want 35000", summary["total_sales"])
	}

	payments := resp["payment_summary"].(map[string]interface{})
	if payments["cash"] != float64(1) {
		t.Errorf("payment_summary[cash]: got %v, want 1", payments["cash"])
	}

	top := resp["top_items"].([]interface{})
	if len(top) != 1 {
		t.Fatalf("top_items count: got %d, want 1", len(top))
	}

	hourly := resp["hourly"].([]interface{})
	if len(hourly) != 24 {
		t.Fatalf("hourly buckets: got %d, want 24", len(hourly))
	}

	txs := resp["transactions"].([]interface{})
	if len(txs) != 1 {
		t.Fatalf("transactions count: got %d, want 1", len(txs))
	}
	tx := txs[0].(map[string]interface{})
	if tx["table_name"] != "Meja 4" {
		t.Errorf("table_name: got %v, want Meja 4", tx["table_name"])
	}
}

func TestReportDateRange_Invalid(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{"unknown range", "/reports/settlement?range=year"},
		{"custom missing dates", "/reports/settlement?range=custom"},
		{"custom bad start", "/reports/settlement?range=custom&start=abc&end=2026-08-30"},
		{"custom start after end", "/reports/settlement?range=custom&start=2026-08-30&end=2026-08-01"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupReportsRouter(&mockReportsStore{})
			rr := doRequest(t, router, "GET", tc.path, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
			}
		})
	}
}

func TestReportDateRange_CustomSingleDay(t *testing.T) {
	var gotFrom, gotTo time.Time
	store := &mockReportsStore{
		listFinalizedOrdersFn: func(ctx context.Context, from, to time.Time) ([]database.Order, error) {
			gotFrom, gotTo = from, to
			return []database.Order{}, nil
		},
	}

	router := setupReportsRouter(store)
	rr := doRequest(t, router, "GET", "/reports/settlement?range=custom&start=2026-08-30&end=2026-08-30", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	// Inclusive end date: a single day covers one full day.
	if gotTo.Sub(gotFrom) != 24*time.Hour {
		t.Errorf("window length: got %v, want 24h", gotTo.Sub(gotFrom))
	}
}
