package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geprek-pos/api/internal/cache"
	"github.com/geprek-pos/api/internal/config"
	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/router"
	"github.com/geprek-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("WARNING: unknown timezone %q, falling back to WIB", cfg.Timezone)
		loc = time.FixedZone("WIB", 7*60*60)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	c := cache.New(cfg.RedisAddr, cfg.RedisPassword)

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, queries, pool, hub, c, loc)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
