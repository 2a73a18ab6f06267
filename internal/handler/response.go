package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/geprek-pos/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// --- Shared response shapes ---

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrderType      string              `json:"order_type"`
	TableID        *uuid.UUID          `json:"table_id"`
	Source         *string             `json:"source"`
	ExternalID     *string             `json:"external_id"`
	CustomerName   *string             `json:"customer_name"`
	Status         string              `json:"status"`
	TotalPrice     string              `json:"total_price"`
	PaymentMethod  *string             `json:"payment_method"`
	PaidAmount     *string             `json:"paid_amount"`
	ChangeReturned *string             `json:"change_returned"`
	PaidAt         *time.Time          `json:"paid_at"`
	CashBucket     *string             `json:"cash_bucket"`
	SupplierShare  *string             `json:"supplier_share"`
	PartnerShare   *string             `json:"partner_share"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID           uuid.UUID `json:"id"`
	MenuID       uuid.UUID `json:"menu_id"`
	MenuName     string    `json:"menu_name"`
	UnitPrice    string    `json:"unit_price"`
	Quantity     int32     `json:"quantity"`
	Subtotal     string    `json:"subtotal"`
	SupplierCode string    `json:"supplier_code"`
	ItemType     string    `json:"item_type"`
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OrderType:      o.OrderType,
		TableID:        uuidPtr(o.TableID),
		Source:         textPtr(o.Source),
		ExternalID:     textPtr(o.ExternalID),
		CustomerName:   textPtr(o.CustomerName),
		Status:         o.Status,
		TotalPrice:     numericString(o.TotalPrice),
		PaymentMethod:  textPtr(o.PaymentMethod),
		PaidAmount:     numericPtr(o.PaidAmount),
		ChangeReturned: numericPtr(o.ChangeReturned),
		PaidAt:         timestamptzPtr(o.PaidAt),
		CashBucket:     textPtr(o.CashBucket),
		SupplierShare:  numericPtr(o.SupplierShare),
		PartnerShare:   numericPtr(o.PartnerShare),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, toOrderItemResponse(it))
	}
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:           it.ID,
		MenuID:       it.MenuID,
		MenuName:     it.MenuName,
		UnitPrice:    numericString(it.UnitPrice),
		Quantity:     it.Quantity,
		Subtotal:     numericString(it.Subtotal),
		SupplierCode: it.SupplierCode,
		ItemType:     it.ItemType,
	}
}

// --- pgtype conversion helpers ---

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func timestamptzPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func numericString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

func numericPtr(n pgtype.Numeric) *string {
	if !n.Valid {
		return nil
	}
	s := numericString(n)
	return &s
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}
