package router

import (
	"log"
	"net/http"
	"time"

	"github.com/geprek-pos/api/internal/cache"
	"github.com/geprek-pos/api/internal/config"
	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/handler"
	mw "github.com/geprek-pos/api/internal/middleware"
	"github.com/geprek-pos/api/internal/service"
	"github.com/geprek-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// The whole API sits behind the PIN-lock middleware except the health
// check, the unlock flow, and the WebSocket feed (which checks the token
// itself during the upgrade).
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, c *cache.Cache, loc *time.Location) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	securityHandler := handler.NewSecurityHandler(queries, cfg.JWTSecret)
	securityHandler.RegisterPublicRoutes(r)

	// WebSocket route (handles the token internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, queries, w, r)
	})

	// Protected routes (require the unlock token while the PIN lock is on)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireUnlock(cfg.JWTSecret, queries))

		securityHandler.RegisterRoutes(r)

		// Catalog
		categoryHandler := handler.NewCategoryHandler(queries)
		r.Route("/categories", categoryHandler.RegisterRoutes)

		menuHandler := handler.NewMenuHandler(queries)
		r.Route("/menu", menuHandler.RegisterRoutes)

		// Tables
		tableHandler := handler.NewTableHandler(queries)
		r.Route("/tables", tableHandler.RegisterRoutes)

		// Orders
		newOrderStore := func(db database.DBTX) service.OrderStore {
			return database.New(db)
		}
		orderService := service.NewOrderService(pool, newOrderStore)
		orderHandler := handler.NewOrderHandler(orderService, queries, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Reports
		reportsHandler := handler.NewReportsHandler(queries, c, loc, cfg.DirectToSupplierSet())
		r.Route("/reports", reportsHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
