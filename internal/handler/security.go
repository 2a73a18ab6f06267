package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/geprek-pos/api/internal/auth"
	"github.com/geprek-pos/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// SecurityStore defines the database methods needed by security handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SecurityStore interface {
	GetSecuritySettings(ctx context.Context) (database.SecuritySettings, error)
	UpdateSecuritySettings(ctx context.Context, arg database.UpdateSecuritySettingsParams) (database.SecuritySettings, error)
	SetPinHash(ctx context.Context, hash pgtype.Text) error
}

// SecurityHandler handles the PIN-lock settings and the unlock endpoint.
type SecurityHandler struct {
	store     SecurityStore
	jwtSecret string
}

// NewSecurityHandler creates a new SecurityHandler.
func NewSecurityHandler(store SecurityStore, jwtSecret string) *SecurityHandler {
	return &SecurityHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers the protected security endpoints.
func (h *SecurityHandler) RegisterRoutes(r chi.Router) {
	r.Put("/security/settings", h.UpdateSettings)
	r.Post("/security/pin", h.SetPin)
}

// RegisterPublicRoutes registers the endpoints a locked register must still
// reach: reading the lock state and unlocking.
func (h *SecurityHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/security/settings", h.GetSettings)
	r.Post("/security/unlock", h.Unlock)
}

type securitySettingsRequest struct {
	PinEnabled      *bool  `json:"pin_enabled"`
	AutoLockEnabled *bool  `json:"auto_lock_enabled"`
	IdleMinutes     *int32 `json:"idle_minutes"`
}

type securitySettingsResponse struct {
	PinSet          bool      `json:"pin_set"`
	PinEnabled      bool      `json:"pin_enabled"`
	AutoLockEnabled bool      `json:"auto_lock_enabled"`
	IdleMinutes     int32     `json:"idle_minutes"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toSecuritySettingsResponse(s database.SecuritySettings) securitySettingsResponse {
	return securitySettingsResponse{
		PinSet:          s.PinHash.Valid,
		PinEnabled:      s.PinEnabled,
		AutoLockEnabled: s.AutoLockEnabled,
		IdleMinutes:     s.IdleMinutes,
		UpdatedAt:       s.UpdatedAt,
	}
}

// GetSettings handles GET /security/settings. The hash itself never leaves
// the server; the client only learns whether a PIN is set.
func (h *SecurityHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSecuritySettings(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, securitySettingsResponse{IdleMinutes: 3})
			return
		}
		log.Printf("ERROR: get security settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toSecuritySettingsResponse(settings))
}

// UpdateSettings handles PUT /security/settings.
func (h *SecurityHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req securitySettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	current, err := h.store.GetSecuritySettings(r.Context())
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: get security settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	params := database.UpdateSecuritySettingsParams{
		PinEnabled:      current.PinEnabled,
		AutoLockEnabled: current.AutoLockEnabled,
		IdleMinutes:     current.IdleMinutes,
	}
	if req.PinEnabled != nil {
		params.PinEnabled = *req.PinEnabled
	}
	if req.AutoLockEnabled != nil {
		params.AutoLockEnabled = *req.AutoLockEnabled
	}
	if req.IdleMinutes != nil {
		if *req.IdleMinutes < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "idle_minutes must be >= 1"})
			return
		}
		params.IdleMinutes = *req.IdleMinutes
	}
	if params.PinEnabled && !current.PinHash.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "set a PIN before enabling the lock"})
		return
	}

	settings, err := h.store.UpdateSecuritySettings(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: update security settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toSecuritySettingsResponse(settings))
}

type setPinRequest struct {
	Pin string `json:"pin"`
}

// SetPin handles POST /security/pin.
func (h *SecurityHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	var req setPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Pin) < 4 || len(req.Pin) > 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pin must be 4-8 digits"})
		return
	}
	for _, c := range req.Pin {
		if c < '0' || c > '9' {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pin must be 4-8 digits"})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Pin), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash pin: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if err := h.store.SetPinHash(r.Context(), pgtype.Text{String: string(hash), Valid: true}); err != nil {
		log.Printf("ERROR: set pin hash: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin updated"})
}

type unlockRequest struct {
	Pin    string `json:"pin"`
	Device string `json:"device"`
}

type unlockResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Unlock handles POST /security/unlock: verifies the PIN and issues the
// unlock token the protected routes require.
func (h *SecurityHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	settings, err := h.store.GetSecuritySettings(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no PIN configured"})
			return
		}
		log.Printf("ERROR: get security settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !settings.PinHash.Valid {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no PIN configured"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(settings.PinHash.String), []byte(req.Pin)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "incorrect PIN"})
		return
	}

	token, err := auth.GenerateUnlockToken(h.jwtSecret, req.Device)
	if err != nil {
		log.Printf("ERROR: generate unlock token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, unlockResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(auth.UnlockTokenTTL),
	})
}
