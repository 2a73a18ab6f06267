package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/geprek-pos/api/internal/auth"
	"github.com/geprek-pos/api/internal/database"
	"github.com/jackc/pgx/v5"
)

type contextKey string

const claimsKey contextKey = "claims"

// SecurityStore provides the lock-screen settings the unlock middleware
// checks on every request. Satisfied by *database.Queries.
type SecurityStore interface {
	GetSecuritySettings(ctx context.Context) (database.SecuritySettings, error)
}

// RequireUnlock rejects requests without a valid unlock token while a
// register PIN is enabled. When no PIN is configured the register is open
// and requests pass through untouched.
func RequireUnlock(jwtSecret string, store SecurityStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			settings, err := store.GetSecuritySettings(r.Context())
			if err != nil {
				// Missing settings row means the register was never locked.
				if errors.Is(err, pgx.ErrNoRows) {
					next.ServeHTTP(w, r)
					return
				}
				log.Printf("ERROR: load security settings: %v", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}

			if !settings.PinEnabled || !settings.PinHash.Valid {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "register is locked"})
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid unlock token"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the unlock claims attached by RequireUnlock,
// or nil when the register runs without a PIN.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
