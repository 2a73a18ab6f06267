package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Order struct {
	ID             uuid.UUID
	OrderType      string
	TableID        pgtype.UUID
	Source         pgtype.Text
	ExternalID     pgtype.Text
	CustomerName   pgtype.Text
	Status         string
	TotalPrice     pgtype.Numeric
	PaymentMethod  pgtype.Text
	PaidAmount     pgtype.Numeric
	ChangeReturned pgtype.Numeric
	PaidAt         pgtype.Timestamptz
	CashBucket     pgtype.Text
	SupplierShare  pgtype.Numeric
	PartnerShare   pgtype.Numeric
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	MenuID       uuid.UUID
	MenuName     string
	UnitPrice    pgtype.Numeric
	Quantity     int32
	Subtotal     pgtype.Numeric
	SupplierCode string
	ItemType     string
	CreatedAt    time.Time
}

type MenuItem struct {
	ID              uuid.UUID
	CategoryID      pgtype.UUID
	Name            string
	Price           pgtype.Numeric
	PriceGofood     pgtype.Numeric
	PriceGrabfood   pgtype.Numeric
	PriceShopeefood pgtype.Numeric
	IsGofood        bool
	IsGrabfood      bool
	IsShopeefood    bool
	SupplierCode    string
	ImageUrl        pgtype.Text
	IsActive        bool
	CreatedAt       time.Time
}

type Category struct {
	ID        uuid.UUID
	Name      string
	Type      string
	CreatedAt time.Time
}

type Table struct {
	ID          uuid.UUID
	TableNumber string
	Name        string
	IsActive    bool
	CreatedAt   time.Time
}

type SecuritySettings struct {
	PinHash         pgtype.Text
	PinEnabled      bool
	AutoLockEnabled bool
	IdleMinutes     int32
	UpdatedAt       time.Time
}

// SettlementItemRow is an order item joined with its order's source and the
// catalog category name, used by the settlement detail drill-down.
type SettlementItemRow struct {
	OrderID      uuid.UUID
	MenuID       uuid.UUID
	MenuName     string
	CategoryName string
	Quantity     int32
	Subtotal     pgtype.Numeric
	SupplierCode string
	Source       pgtype.Text
}
