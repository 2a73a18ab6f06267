//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/geprek-pos/api/internal/config"
	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/router"
	"github.com/geprek-pos/api/internal/ws"
)

// TestIntegrationFlow exercises the full order lifecycle against a real
// PostgreSQL database: catalog setup, draft upsert, checkout with the
// revenue split, the online channel, cancellation, and the reports.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:                    "8081",
		DatabaseURL:             connStr,
		JWTSecret:               "integration-test-secret",
		Timezone:                "Asia/Jakarta",
		DirectToSupplierMethods: []string{"qris_s"},
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit — Hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()
	loc := time.FixedZone("WIB", 7*60*60)

	r := router.New(cfg, queries, pool, hub, nil, loc)

	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Catalog setup ---
	categoryResp := apiPostJSON(t, server, "/categories", map[string]interface{}{
		"name": "Makanan",
	})
	categoryID := categoryResp["id"].(string)

	geprekResp := apiPostJSON(t, server, "/menu", map[string]interface{}{
		"category_id":   categoryID,
		"name":          "Ayam Geprek Original",
		"price":         "15000",
		"price_gofood":  "19000",
		"is_gofood":     true,
		"supplier_code": "S",
	})
	geprekID := geprekResp["id"].(string)

	tehResp := apiPostJSON(t, server, "/menu", map[string]interface{}{
		"name":          "Es Teh Manis",
		"price":         "5000",
		"supplier_code": "P",
	})
	tehID := tehResp["id"].(string)

	tableResp := apiPostJSON(t, server, "/tables", map[string]interface{}{
		"table_number": "4",
		"name":         "Meja 4",
	})
	tableID := tableResp["id"].(string)

	// --- 2. Dine-in draft with catalog pricing ---
	draftResp := apiPostJSON(t, server, "/orders", map[string]interface{}{
		"order_type": "dine-in",
		"table_id":   tableID,
		"items": []map[string]interface{}{
			{"menu_id": geprekID, "quantity": 2},
			{"menu_id": tehID, "quantity": 1},
		},
	})
	orderID := draftResp["id"].(string)
	if draftResp["total_price"].(string) != "35000.00" {
		t.Fatalf("draft total_price: got %s, want 35000.00", draftResp["total_price"])
	}
	if draftResp["status"].(string) != "draft" {
		t.Fatalf("draft status: got %s, want draft", draftResp["status"])
	}

	// --- 3. Reopening the table finds the same draft ---
	reopened := apiGetJSON(t, server, "/orders/draft?table_id="+tableID)
	if reopened["id"].(string) != orderID {
		t.Fatalf("draft by table: got %s, want %s", reopened["id"], orderID)
	}

	// --- 4. Update the draft: drop the tea, keep the geprek ---
	updated := apiPostJSON(t, server, "/orders", map[string]interface{}{
		"order_id":   orderID,
		"order_type": "dine-in",
		"table_id":   tableID,
		"items": []map[string]interface{}{
			{"menu_id": geprekID, "quantity": 2},
		},
	})
	if updated["total_price"].(string) != "30000.00" {
		t.Fatalf("updated total_price: got %s, want 30000.00", updated["total_price"])
	}
	items := updated["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("updated items count: got %d, want 1", len(items))
	}

	// --- 5. Cash checkout: change, shares, and custody bucket ---
	paid := apiPostJSON(t, server, "/orders/"+orderID+"/checkout", map[string]interface{}{
		"payment_method": "cash",
		"amount_paid":    "50000",
	})
	if paid["status"].(string) != "paid" {
		t.Fatalf("checkout status: got %s, want paid", paid["status"])
	}
	if paid["change_returned"].(string) != "20000.00" {
		t.Fatalf("change_returned: got %s, want 20000.00", paid["change_returned"])
	}
	if paid["cash_bucket"].(string) != "P" {
		t.Fatalf("cash_bucket: got %s, want P", paid["cash_bucket"])
	}
	if paid["supplier_share"].(string) != "30000.00" {
		t.Fatalf("supplier_share: got %s, want 30000.00", paid["supplier_share"])
	}
	if paid["partner_share"].(string) != "0.00" {
		t.Fatalf("partner_share: got %s, want 0.00", paid["partner_share"])
	}

	// Paid orders cannot be checked out again or cancelled.
	assertStatus(t, server, "POST", "/orders/"+orderID+"/checkout", map[string]interface{}{
		"payment_method": "cash", "amount_paid": "50000",
	}, http.StatusConflict)
	assertStatus(t, server, "DELETE", "/orders/"+orderID, nil, http.StatusConflict)

	// --- 6. Online channel: stub, item fill-in at platform prices, checkout ---
	// A stub left open; it must stay on top of the online list even after
	// newer orders complete.
	backlogStub := apiPostJSON(t, server, "/orders/online", map[string]interface{}{
		"source":      "shopeefood",
		"external_id": "SF-20260831-07",
	})
	backlogID := backlogStub["id"].(string)

	stub := apiPostJSON(t, server, "/orders/online", map[string]interface{}{
		"source":      "gofood",
		"external_id": "GF-20260831-01",
	})
	onlineID := stub["id"].(string)
	if stub["order_type"].(string) != "online" {
		t.Fatalf("stub order_type: got %s, want online", stub["order_type"])
	}

	filled := apiPostJSON(t, server, "/orders", map[string]interface{}{
		"order_id":   onlineID,
		"order_type": "online",
		"source":     "gofood",
		"items": []map[string]interface{}{
			{"menu_id": geprekID, "quantity": 2},
		},
	})
	// Platform price override: 2 x 19000.
	if filled["total_price"].(string) != "38000.00" {
		t.Fatalf("online total_price: got %s, want 38000.00", filled["total_price"])
	}
	if filled["external_id"].(string) != "GF-20260831-01" {
		t.Fatalf("external_id lost on item fill-in: got %v", filled["external_id"])
	}

	completed := apiPostJSON(t, server, "/orders/"+onlineID+"/checkout", map[string]interface{}{})
	if completed["status"].(string) != "completed" {
		t.Fatalf("online checkout status: got %s, want completed", completed["status"])
	}
	if completed["cash_bucket"].(string) != "S" {
		t.Fatalf("online cash_bucket: got %s, want S", completed["cash_bucket"])
	}
	if completed["supplier_share"].(string) != "38000.00" {
		t.Fatalf("online supplier_share: got %s, want 38000.00", completed["supplier_share"])
	}
	if completed["partner_share"].(string) != "0.00" {
		t.Fatalf("online partner_share: got %s, want 0.00", completed["partner_share"])
	}

	// The online list shows open drafts before completed orders, even though
	// the completed one is newer.
	onlineList := apiGetJSON(t, server, "/orders?type=online")["orders"].([]interface{})
	if len(onlineList) != 2 {
		t.Fatalf("online list length: got %d, want 2", len(onlineList))
	}
	first := onlineList[0].(map[string]interface{})
	second := onlineList[1].(map[string]interface{})
	if first["id"].(string) != backlogID || first["status"].(string) != "draft" {
		t.Fatalf("expected open stub %s first in online list, got %v", backlogID, first)
	}
	if second["id"].(string) != onlineID || second["status"].(string) != "completed" {
		t.Fatalf("expected completed order %s second in online list, got %v", onlineID, second)
	}

	// --- 7. Cancellation hard-deletes a draft ---
	scrap := apiPostJSON(t, server, "/orders", map[string]interface{}{
		"order_type": "takeaway",
		"items": []map[string]interface{}{
			{"menu_id": tehID, "quantity": 1},
		},
	})
	scrapID := scrap["id"].(string)
	assertStatus(t, server, "DELETE", "/orders/"+scrapID, nil, http.StatusOK)
	assertStatus(t, server, "GET", "/orders/"+scrapID, nil, http.StatusNotFound)

	// --- 8. Settlement over the two finalized orders ---
	settlement := apiGetJSON(t, server, "/reports/settlement")
	summary := settlement["summary"].(map[string]interface{})
	partner := summary["partner"].(map[string]interface{})
	supplier := summary["supplier"].(map[string]interface{})
	// The cash order sits in the register; the online order went straight
	// to the supplier.
	if partner["cash_in_hand"].(string) != "30000" {
		t.Fatalf("partner cash_in_hand: got %v, want 30000", partner["cash_in_hand"])
	}
	if supplier["revenue"].(string) != "68000" {
		t.Fatalf("supplier revenue: got %v, want 68000", supplier["revenue"])
	}
	if supplier["cash_received"].(string) != "38000" {
		t.Fatalf("supplier cash_received: got %v, want 38000", supplier["cash_received"])
	}
	if supplier["cash_pending"].(string) != "30000" {
		t.Fatalf("supplier cash_pending: got %v, want 30000", supplier["cash_pending"])
	}

	// --- 9. Dashboard over the same window ---
	dashboard := apiGetJSON(t, server, "/reports/dashboard")
	dashSummary := dashboard["summary"].(map[string]interface{})
	if dashSummary["total_trx"].(float64) != 2 {
		t.Fatalf("dashboard total_trx: got %v, want 2", dashSummary["total_trx"])
	}
	if dashSummary["total_sales"].(string) != "68000" {
		t.Fatalf("dashboard total_sales: got %v, want 68000", dashSummary["total_sales"])
	}
	hourly := dashboard["hourly"].([]interface{})
	if len(hourly) != 24 {
		t.Fatalf("dashboard hourly buckets: got %d, want 24", len(hourly))
	}

	// --- 10. Table deactivate + create-or-reactivate keeps the row ---
	assertStatus(t, server, "DELETE", "/tables/"+tableID, nil, http.StatusOK)
	revived := apiPostJSON(t, server, "/tables", map[string]interface{}{
		"table_number": "4",
		"name":         "Meja 4 Baru",
	})
	if revived["id"].(string) != tableID {
		t.Fatalf("reactivated table id: got %s, want %s", revived["id"], tableID)
	}
	if revived["name"].(string) != "Meja 4 Baru" {
		t.Fatalf("reactivated table name: got %s, want Meja 4 Baru", revived["name"])
	}

	t.Logf("Integration test passed: container=%s, dine-in order=%s, online order=%s",
		pgContainer.GetContainerID(), orderID, onlineID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this package directory; go test sets cwd there.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

// --- HTTP helpers ---

func apiPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("POST %s: status %d, body: %v", path, resp.StatusCode, errResp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func apiGetJSON(t *testing.T, server *httptest.Server, path string) map[string]interface{} {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("GET %s: status %d, body: %v", path, resp.StatusCode, errResp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func assertStatus(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, want int) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("%s %s: status %d, want %d; body: %v", method, path, resp.StatusCode, want, errResp)
	}
}
