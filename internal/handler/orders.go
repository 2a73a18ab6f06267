package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/enum"
	"github.com/geprek-pos/api/internal/service"
	"github.com/geprek-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	UpsertDraft(ctx context.Context, req service.UpsertDraftRequest) (*service.OrderDetail, error)
	CreateOnlineStub(ctx context.Context, req service.OnlineStubRequest) (*database.Order, error)
	Checkout(ctx context.Context, orderID uuid.UUID, paymentMethod string, amountPaid decimal.Decimal) (*service.OrderDetail, error)
	Cancel(ctx context.Context, orderID uuid.UUID) error
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetDraftOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	ListOrdersByStatus(ctx context.Context, status string) ([]database.Order, error)
	ListOrdersByType(ctx context.Context, orderType string) ([]database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   *ws.Hub
}

// NewOrderHandler creates a new OrderHandler. hub may be nil in tests.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub *ws.Hub) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.UpsertDraft)
	r.Post("/online", h.CreateOnlineStub)
	r.Get("/", h.List)
	r.Get("/draft", h.GetDraftByTable)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/receipt", h.Receipt)
	r.Post("/{id}/checkout", h.Checkout)
	r.Delete("/{id}", h.Cancel)
}

// --- Request types ---

type upsertDraftRequest struct {
	OrderID      string             `json:"order_id"`
	OrderType    string             `json:"order_type"`
	TableID      string             `json:"table_id"`
	CustomerName string             `json:"customer_name"`
	Source       string             `json:"source"`
	Items        []draftItemRequest `json:"items"`
}

type draftItemRequest struct {
	MenuID   string `json:"menu_id"`
	Quantity int32  `json:"quantity"`
}

type onlineStubRequest struct {
	Source        string `json:"source"`
	ExternalID    string `json:"external_id"`
	CustomerName  string `json:"customer_name"`
	PaymentMethod string `json:"payment_method"`
}

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method"`
	AmountPaid    string `json:"amount_paid"`
}

// --- Handlers ---

// UpsertDraft handles POST /orders: create a draft or replace an existing
// draft's metadata and item set.
func (h *OrderHandler) UpsertDraft(w http.ResponseWriter, r *http.Request) {
	var req upsertDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.OrderType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_type is required"})
		return
	}

	items := make([]service.DraftItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.DraftItemRequest{MenuID: it.MenuID, Quantity: it.Quantity}
	}

	detail, err := h.svc.UpsertDraft(r.Context(), service.UpsertDraftRequest{
		OrderID:      req.OrderID,
		OrderType:    req.OrderType,
		TableID:      req.TableID,
		CustomerName: req.CustomerName,
		Source:       req.Source,
		Items:        items,
	})
	if err != nil {
		h.writeOrderError(w, err, "upsert draft")
		return
	}

	status := http.StatusOK
	eventType := ws.EventOrderUpdated
	if req.OrderID == "" {
		status = http.StatusCreated
		eventType = ws.EventOrderCreated
	}
	h.broadcast(eventType, detail.Order, detail.Items)
	writeJSON(w, status, toOrderResponse(detail.Order, detail.Items))
}

// CreateOnlineStub handles POST /orders/online: a bare draft for a platform
// notification that arrives before item detail.
func (h *OrderHandler) CreateOnlineStub(w http.ResponseWriter, r *http.Request) {
	var req onlineStubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Source == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source is required"})
		return
	}

	order, err := h.svc.CreateOnlineStub(r.Context(), service.OnlineStubRequest{
		Source:        req.Source,
		ExternalID:    req.ExternalID,
		CustomerName:  req.CustomerName,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.writeOrderError(w, err, "create online stub")
		return
	}

	h.broadcast(ws.EventOrderCreated, *order, nil)
	writeJSON(w, http.StatusCreated, toOrderResponse(*order, nil))
}

// List handles GET /orders with optional ?status= or ?type= filters.
// Without filters it returns the open drafts, the register's working set.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var orders []database.Order
	var err error

	switch {
	case r.URL.Query().Get("status") != "":
		status := r.URL.Query().Get("status")
		switch status {
		case enum.OrderStatusDraft, enum.OrderStatusPaid, enum.OrderStatusCompleted:
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		orders, err = h.store.ListOrdersByStatus(r.Context(), status)
	case r.URL.Query().Get("type") != "":
		orderType := r.URL.Query().Get("type")
		if !enum.ValidOrderType(orderType) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid type filter"})
			return
		}
		orders, err = h.store.ListOrdersByType(r.Context(), orderType)
	default:
		orders, err = h.store.ListOrdersByStatus(r.Context(), enum.OrderStatusDraft)
	}
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": resp})
}

// GetDraftByTable handles GET /orders/draft?table_id=: the open draft for a
// table, used when a waiter reopens an occupied table.
func (h *OrderHandler) GetDraftByTable(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(r.URL.Query().Get("table_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
		return
	}

	order, err := h.store.GetDraftOrderByTable(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no draft order for table"})
			return
		}
		log.Printf("ERROR: get draft by table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItems(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, items, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// receiptResponse is the print payload for a finalized order.
type receiptResponse struct {
	Order orderResponse `json:"order"`
	Label string        `json:"label"`
}

// Receipt handles GET /orders/{id}/receipt.
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	order, items, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	if order.Status == enum.OrderStatusDraft {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order has not been paid"})
		return
	}

	label := "Take Away"
	switch {
	case order.OrderType == enum.OrderTypeOnline:
		label = "Online (" + order.Source.String + ")"
	case order.TableID.Valid:
		label = "Dine In"
	}
	writeJSON(w, http.StatusOK, receiptResponse{
		Order: toOrderResponse(order, items),
		Label: label,
	})
}

// Checkout handles POST /orders/{id}/checkout.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	amountPaid := decimal.Zero
	if req.AmountPaid != "" {
		amountPaid, err = decimal.NewFromString(req.AmountPaid)
		if err != nil || amountPaid.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount_paid"})
			return
		}
	}

	detail, err := h.svc.Checkout(r.Context(), orderID, req.PaymentMethod, amountPaid)
	if err != nil {
		var insufficient *service.InsufficientPaymentError
		if errors.As(err, &insufficient) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "insufficient payment",
				"total": insufficient.Total.StringFixed(2),
				"paid":  insufficient.Paid.StringFixed(2),
			})
			return
		}
		h.writeOrderError(w, err, "checkout")
		return
	}

	h.broadcast(ws.EventOrderFinalized, detail.Order, detail.Items)
	writeJSON(w, http.StatusOK, toOrderResponse(detail.Order, detail.Items))
}

// Cancel handles DELETE /orders/{id}: hard-deletes a draft.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if err := h.svc.Cancel(r.Context(), orderID); err != nil {
		h.writeOrderError(w, err, "cancel order")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(ws.EventOrderCancelled, map[string]string{"id": orderID.String()})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// --- Helpers ---

func (h *OrderHandler) loadOrder(w http.ResponseWriter, r *http.Request) (database.Order, []database.OrderItem, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return database.Order{}, nil, false
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return database.Order{}, nil, false
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Order{}, nil, false
	}

	items, err := h.store.ListOrderItems(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Order{}, nil, false
	}
	return order, items, true
}

// writeOrderError maps service errors to HTTP status codes.
func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrMenuItemNotFound),
		errors.Is(err, service.ErrTableNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyFinalized):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidOrderType),
		errors.Is(err, service.ErrInvalidSource),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidMenuID),
		errors.Is(err, service.ErrInvalidTableID),
		errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrTableRequired):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func (h *OrderHandler) broadcast(eventType string, order database.Order, items []database.OrderItem) {
	if h.hub == nil {
		return
	}
	h.hub.Broadcast(eventType, toOrderResponse(order, items))
}
