package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/geprek-pos/api/internal/database"
	"github.com/geprek-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrOrderNotFound        = errors.New("order not found or not a draft")
	ErrAlreadyFinalized     = errors.New("order is already finalized")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrTableNotFound        = errors.New("table not found")
	ErrInvalidOrderType     = errors.New("invalid order_type")
	ErrInvalidSource        = errors.New("invalid source")
	ErrInvalidQuantity      = errors.New("quantity must be >= 1")
	ErrInvalidMenuID        = errors.New("invalid menu_id")
	ErrInvalidTableID       = errors.New("invalid table_id")
	ErrInvalidOrderID       = errors.New("invalid order_id")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrTableRequired        = errors.New("table_id is required for dine-in orders")
)

// InsufficientPaymentError reports a cash payment below the order total.
// Carries the amounts so the register can show the shortfall.
type InsufficientPaymentError struct {
	Total decimal.Decimal
	Paid  decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: paid %s of %s", e.Paid.StringFixed(2), e.Total.StringFixed(2))
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order lifecycle needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateDraftOrder(ctx context.Context, arg database.UpdateDraftOrderParams) (database.Order, error)
	FinalizeOrder(ctx context.Context, arg database.FinalizeOrderParams) (database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpsertOrderItem(ctx context.Context, arg database.UpsertOrderItemParams) (database.OrderItem, error)
	DeleteOrderItemsByMenu(ctx context.Context, orderID uuid.UUID, menuIDs []uuid.UUID) error
	DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx), so the
// service can run its multi-statement operations inside one transaction.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService owns the order state machine: draft upserts, online stubs,
// checkout with the revenue split, and cancellation.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// UpsertDraftRequest is the validated input for creating or updating a draft.
type UpsertDraftRequest struct {
	OrderID      string // empty to create
	OrderType    string
	TableID      string // dine-in only; forced empty otherwise
	CustomerName string
	Source       string // defaults to the order type for in-person orders
	Items        []DraftItemRequest
}

// DraftItemRequest is a single line in the incoming item set. Pricing and
// naming come from the catalog, not the caller.
type DraftItemRequest struct {
	MenuID   string
	Quantity int32
}

// OnlineStubRequest creates a bare online draft before item detail arrives.
type OnlineStubRequest struct {
	Source        string
	ExternalID    string
	CustomerName  string
	PaymentMethod string
}

// OrderDetail is an order with its line items.
type OrderDetail struct {
	Order database.Order
	Items []database.OrderItem
}

// pricedItem is an incoming item after catalog lookup.
type pricedItem struct {
	MenuID       uuid.UUID
	MenuName     string
	UnitPrice    decimal.Decimal
	Quantity     int32
	Subtotal     decimal.Decimal
	SupplierCode string
}

// itemDiff partitions an incoming item set against storage by menu_id.
type itemDiff struct {
	toInsert []pricedItem
	toUpdate []pricedItem
	toDelete []uuid.UUID
}

// diffItems computes the three disjoint reconciliation operations for a
// draft's item set: incoming items unknown to storage are inserts, known
// ones are updates, and stored items absent from the incoming set are
// deletes.
func diffItems(existing []database.OrderItem, incoming []pricedItem) itemDiff {
	present := make(map[uuid.UUID]bool, len(existing))
	for _, it := range existing {
		present[it.MenuID] = true
	}
	keep := make(map[uuid.UUID]bool, len(incoming))

	var d itemDiff
	for _, it := range incoming {
		keep[it.MenuID] = true
		if present[it.MenuID] {
			d.toUpdate = append(d.toUpdate, it)
		} else {
			d.toInsert = append(d.toInsert, it)
		}
	}
	for _, it := range existing {
		if !keep[it.MenuID] {
			d.toDelete = append(d.toDelete, it.MenuID)
		}
	}
	return d
}

// UpsertDraft creates a draft order or replaces an existing draft's metadata
// and reconciles its item set, all in one transaction. total_price is always
// recomputed as the sum of item subtotals.
func (s *OrderService) UpsertDraft(ctx context.Context, req UpsertDraftRequest) (*OrderDetail, error) {
	if !enum.ValidOrderType(req.OrderType) {
		return nil, ErrInvalidOrderType
	}

	source := enum.Source(req.Source)
	if source == "" {
		// In-person orders are tagged with their own channel.
		if req.OrderType == enum.OrderTypeOnline {
			return nil, ErrInvalidSource
		}
		source = enum.Source(req.OrderType)
	}
	if !enum.ValidSource(source) {
		return nil, ErrInvalidSource
	}
	if req.OrderType == enum.OrderTypeOnline && !source.OnlinePlatform() {
		return nil, ErrInvalidSource
	}

	for i, it := range req.Items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		if _, err := uuid.Parse(it.MenuID); err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuID)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Price the incoming items from the catalog.
	total := decimal.Zero
	priced := make([]pricedItem, 0, len(req.Items))
	for i, it := range req.Items {
		menuID := uuid.MustParse(it.MenuID)
		menuItem, err := store.GetMenuItem(ctx, menuID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get menu item: %w", i, err)
		}
		unitPrice := platformPrice(menuItem, source)
		subtotal := unitPrice.Mul(decimal.NewFromInt32(it.Quantity))
		total = total.Add(subtotal)
		priced = append(priced, pricedItem{
			MenuID:       menuID,
			MenuName:     menuItem.Name,
			UnitPrice:    unitPrice,
			Quantity:     it.Quantity,
			Subtotal:     subtotal,
			SupplierCode: menuItem.SupplierCode,
		})
	}

	// table_id only attaches to dine-in orders.
	tableID := pgtype.UUID{}
	if req.OrderType == enum.OrderTypeDineIn {
		if req.TableID == "" {
			return nil, ErrTableRequired
		}
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
		if _, err := store.GetTable(ctx, tid); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableNotFound
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	var order database.Order
	var existing []database.OrderItem

	if req.OrderID == "" {
		order, err = store.CreateOrder(ctx, database.CreateOrderParams{
			OrderType:    req.OrderType,
			TableID:      tableID,
			Source:       pgtype.Text{String: string(source), Valid: true},
			CustomerName: textOrNull(req.CustomerName),
			TotalPrice:   decimalToNumeric(total),
		})
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
	} else {
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			return nil, ErrInvalidOrderID
		}
		order, err = store.UpdateDraftOrder(ctx, database.UpdateDraftOrderParams{
			ID:           orderID,
			OrderType:    req.OrderType,
			TableID:      tableID,
			Source:       pgtype.Text{String: string(source), Valid: true},
			CustomerName: textOrNull(req.CustomerName),
			TotalPrice:   decimalToNumeric(total),
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrOrderNotFound
			}
			return nil, fmt.Errorf("update draft: %w", err)
		}
		existing, err = store.ListOrderItems(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
	}

	diff := diffItems(existing, priced)
	if len(diff.toDelete) > 0 {
		if err := store.DeleteOrderItemsByMenu(ctx, order.ID, diff.toDelete); err != nil {
			return nil, fmt.Errorf("delete stale items: %w", err)
		}
	}

	items := make([]database.OrderItem, 0, len(priced))
	for _, pi := range append(diff.toInsert, diff.toUpdate...) {
		item, err := store.UpsertOrderItem(ctx, database.UpsertOrderItemParams{
			OrderID:      order.ID,
			MenuID:       pi.MenuID,
			MenuName:     pi.MenuName,
			UnitPrice:    decimalToNumeric(pi.UnitPrice),
			Quantity:     pi.Quantity,
			Subtotal:     decimalToNumeric(pi.Subtotal),
			SupplierCode: pi.SupplierCode,
			ItemType:     enum.ItemTypeMain,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderDetail{Order: order, Items: items}, nil
}

// CreateOnlineStub creates a bare online draft (no items, total 0) for a
// platform notification that arrives before item detail. Duplicate
// external_id values are allowed; each call creates a fresh order.
func (s *OrderService) CreateOnlineStub(ctx context.Context, req OnlineStubRequest) (*database.Order, error) {
	source := enum.Source(req.Source)
	if !source.OnlinePlatform() {
		return nil, ErrInvalidSource
	}
	if req.PaymentMethod != "" && !enum.ValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderType:     enum.OrderTypeOnline,
		Source:        pgtype.Text{String: string(source), Valid: true},
		ExternalID:    textOrNull(req.ExternalID),
		CustomerName:  textOrNull(req.CustomerName),
		PaymentMethod: textOrNull(req.PaymentMethod),
		TotalPrice:    decimalToNumeric(decimal.Zero),
	})
	if err != nil {
		return nil, fmt.Errorf("create online stub: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &order, nil
}

// Checkout finalizes a draft: validates payment, computes the revenue split
// and cash bucket, and flips the status in one transaction. The row lock
// plus the status-guarded update serialize concurrent checkouts; the loser
// gets ErrAlreadyFinalized, never a silent double-finalize.
func (s *OrderService) Checkout(ctx context.Context, orderID uuid.UUID, paymentMethod string, amountPaid decimal.Decimal) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusDraft {
		return nil, ErrAlreadyFinalized
	}

	items, err := store.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	total := numericToDecimal(order.TotalPrice)
	online := isOnline(order)

	// Online platforms settle on their own rails, so the method may stay
	// whatever the stub recorded (possibly nothing). In-person orders need
	// a real register method.
	if paymentMethod == "" && order.PaymentMethod.Valid {
		paymentMethod = order.PaymentMethod.String
	}
	if paymentMethod != "" && !enum.ValidPaymentMethod(paymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if paymentMethod == "" && !online {
		return nil, ErrInvalidPaymentMethod
	}

	var paid, change decimal.Decimal
	if paymentMethod == enum.PaymentMethodCash {
		if amountPaid.LessThan(total) {
			return nil, &InsufficientPaymentError{Total: total, Paid: amountPaid}
		}
		paid = amountPaid
		change = amountPaid.Sub(total)
	} else {
		paid = total
		change = decimal.Zero
	}

	supplierShare, partnerShare, cashBucket := splitRevenue(items, total, online)

	status := enum.OrderStatusPaid
	if order.OrderType == enum.OrderTypeOnline {
		status = enum.OrderStatusCompleted
	}

	finalized, err := store.FinalizeOrder(ctx, database.FinalizeOrderParams{
		ID:             orderID,
		Status:         status,
		PaymentMethod:  textOrNull(paymentMethod),
		PaidAmount:     decimalToNumeric(paid),
		ChangeReturned: decimalToNumeric(change),
		CashBucket:     cashBucket,
		SupplierShare:  decimalToNumeric(supplierShare),
		PartnerShare:   decimalToNumeric(partnerShare),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyFinalized
		}
		return nil, fmt.Errorf("finalize order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderDetail{Order: finalized, Items: items}, nil
}

// Cancel hard-deletes a draft and its items. Finalized orders are immutable.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusDraft {
		return ErrAlreadyFinalized
	}

	// Items first: they belong to the order.
	if err := store.DeleteOrderItems(ctx, orderID); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if err := store.DeleteOrder(ctx, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	return tx.Commit(ctx)
}

// --- Revenue split ---

// isOnline applies the channel rule: an order is online when its type says
// so or its source is a delivery platform.
func isOnline(order database.Order) bool {
	if order.OrderType == enum.OrderTypeOnline {
		return true
	}
	return enum.Source(order.Source.String).OnlinePlatform()
}

// splitRevenue attributes an order's total between Supplier and Partner and
// decides whose till receives the cash. In-person revenue follows the
// per-item supplier tagging; online platform payouts belong entirely to the
// Supplier regardless of item tags, because the platforms settle to the
// Supplier's registered account.
func splitRevenue(items []database.OrderItem, total decimal.Decimal, online bool) (supplierShare, partnerShare decimal.Decimal, cashBucket string) {
	supplierShare = decimal.Zero
	partnerShare = decimal.Zero
	for _, it := range items {
		subtotal := numericToDecimal(it.UnitPrice).Mul(decimal.NewFromInt32(it.Quantity))
		if it.SupplierCode == enum.SupplierCodeS {
			supplierShare = supplierShare.Add(subtotal)
		} else {
			partnerShare = partnerShare.Add(subtotal)
		}
	}

	if online {
		return total, decimal.Zero, enum.SupplierCodeS
	}
	return supplierShare, partnerShare, enum.SupplierCodeP
}

// platformPrice picks the unit price for the channel: the per-platform
// price when one is configured, the base price otherwise.
func platformPrice(m database.MenuItem, source enum.Source) decimal.Decimal {
	base := numericToDecimal(m.Price)
	var override pgtype.Numeric
	switch source {
	case enum.SourceGoFood:
		override = m.PriceGofood
	case enum.SourceGrabFood:
		override = m.PriceGrabfood
	case enum.SourceShopeeFood:
		override = m.PriceShopeefood
	default:
		return base
	}
	if p := numericToDecimal(override); p.IsPositive() {
		return p
	}
	return base
}

// --- Helpers ---

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
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

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
