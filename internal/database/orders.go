package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_type, table_id, source, external_id, customer_name, status,
	total_price, payment_method, paid_amount, change_returned, paid_at,
	cash_bucket, supplier_share, partner_share, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderType, &o.TableID, &o.Source, &o.ExternalID, &o.CustomerName, &o.Status,
		&o.TotalPrice, &o.PaymentMethod, &o.PaidAmount, &o.ChangeReturned, &o.PaidAt,
		&o.CashBucket, &o.SupplierShare, &o.PartnerShare, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type CreateOrderParams struct {
	OrderType     string
	TableID       pgtype.UUID
	Source        pgtype.Text
	ExternalID    pgtype.Text
	CustomerName  pgtype.Text
	PaymentMethod pgtype.Text
	TotalPrice    pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (order_type, table_id, source, external_id, customer_name, payment_method, status, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, 'draft', $7)
		RETURNING `+orderColumns,
		arg.OrderType, arg.TableID, arg.Source, arg.ExternalID, arg.CustomerName, arg.PaymentMethod, arg.TotalPrice,
	)
	return scanOrder(row)
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row so concurrent checkouts and cancels
// serialize on it.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR NO KEY UPDATE`, id)
	return scanOrder(row)
}

func (q *Queries) GetDraftOrderByTable(ctx context.Context, tableID uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE table_id = $1 AND status = 'draft'
		ORDER BY created_at DESC
		LIMIT 1`, tableID)
	return scanOrder(row)
}

func (q *Queries) ListOrdersByStatus(ctx context.Context, status string) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = $1
		ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ListOrdersByType lists drafts first so unfilled online stubs surface above
// the finished backlog, newest first within each group.
func (q *Queries) ListOrdersByType(ctx context.Context, orderType string) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE order_type = $1
		ORDER BY (status = 'draft') DESC, created_at DESC`, orderType)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ListFinalizedOrders returns paid/completed orders whose finalization time
// falls in [from, to). Orders finalized before paid_at existed fall back to
// created_at.
func (q *Queries) ListFinalizedOrders(ctx context.Context, from, to time.Time) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status IN ('paid', 'completed')
		  AND COALESCE(paid_at, created_at) >= $1
		  AND COALESCE(paid_at, created_at) < $2
		ORDER BY created_at DESC`, from, to)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

type UpdateDraftOrderParams struct {
	ID           uuid.UUID
	OrderType    string
	TableID      pgtype.UUID
	Source       pgtype.Text
	CustomerName pgtype.Text
	TotalPrice   pgtype.Numeric
}

// UpdateDraftOrder replaces a draft's metadata and total. external_id is
// left alone so filling in an online stub keeps its platform reference.
// Returns pgx.ErrNoRows when the order does not exist or is no longer a draft.
func (q *Queries) UpdateDraftOrder(ctx context.Context, arg UpdateDraftOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET order_type = $2, table_id = $3, source = $4,
		    customer_name = $5, total_price = $6, updated_at = now()
		WHERE id = $1 AND status = 'draft'
		RETURNING `+orderColumns,
		arg.ID, arg.OrderType, arg.TableID, arg.Source, arg.CustomerName, arg.TotalPrice,
	)
	return scanOrder(row)
}

type FinalizeOrderParams struct {
	ID             uuid.UUID
	Status         string
	PaymentMethod  pgtype.Text
	PaidAmount     pgtype.Numeric
	ChangeReturned pgtype.Numeric
	CashBucket     string
	SupplierShare  pgtype.Numeric
	PartnerShare   pgtype.Numeric
}

// FinalizeOrder flips a draft to paid/completed and stamps the payment
// metadata and revenue split in one statement. The status guard makes the
// flip race-safe: the second of two concurrent checkouts sees pgx.ErrNoRows.
func (q *Queries) FinalizeOrder(ctx context.Context, arg FinalizeOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, payment_method = $3, paid_amount = $4, change_returned = $5,
		    cash_bucket = $6, supplier_share = $7, partner_share = $8,
		    paid_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'draft'
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.PaymentMethod, arg.PaidAmount, arg.ChangeReturned,
		arg.CashBucket, arg.SupplierShare, arg.PartnerShare,
	)
	return scanOrder(row)
}

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return err
}

// --- Order items ---

const orderItemColumns = `id, order_id, menu_id, menu_name, unit_price, quantity, subtotal, supplier_code, item_type, created_at`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(
		&it.ID, &it.OrderID, &it.MenuID, &it.MenuName, &it.UnitPrice,
		&it.Quantity, &it.Subtotal, &it.SupplierCode, &it.ItemType, &it.CreatedAt,
	)
	return it, err
}

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderItemColumns+` FROM order_items
		WHERE order_id = $1
		ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type UpsertOrderItemParams struct {
	OrderID      uuid.UUID
	MenuID       uuid.UUID
	MenuName     string
	UnitPrice    pgtype.Numeric
	Quantity     int32
	Subtotal     pgtype.Numeric
	SupplierCode string
	ItemType     string
}

// UpsertOrderItem inserts or updates the line item keyed by
// (order_id, menu_id); an order never holds two lines for the same menu entry.
func (q *Queries) UpsertOrderItem(ctx context.Context, arg UpsertOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, menu_id, menu_name, unit_price, quantity, subtotal, supplier_code, item_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id, menu_id) DO UPDATE
		SET menu_name = EXCLUDED.menu_name, unit_price = EXCLUDED.unit_price,
		    quantity = EXCLUDED.quantity, subtotal = EXCLUDED.subtotal,
		    supplier_code = EXCLUDED.supplier_code, item_type = EXCLUDED.item_type
		RETURNING `+orderItemColumns,
		arg.OrderID, arg.MenuID, arg.MenuName, arg.UnitPrice, arg.Quantity,
		arg.Subtotal, arg.SupplierCode, arg.ItemType,
	)
	return scanOrderItem(row)
}

func (q *Queries) DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	return err
}

func (q *Queries) DeleteOrderItemsByMenu(ctx context.Context, orderID uuid.UUID, menuIDs []uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM order_items
		WHERE order_id = $1 AND menu_id = ANY($2)`, orderID, menuIDs)
	return err
}

// ListSettlementItems returns line items of finalized orders in [from, to)
// joined to their order source and catalog category name.
func (q *Queries) ListSettlementItems(ctx context.Context, from, to time.Time) ([]SettlementItemRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.order_id, oi.menu_id, oi.menu_name,
		       COALESCE(c.name, 'Uncategorized') AS category_name,
		       oi.quantity, oi.subtotal, oi.supplier_code, o.source
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN menu m ON m.id = oi.menu_id
		LEFT JOIN categories c ON c.id = m.category_id
		WHERE o.status IN ('paid', 'completed')
		  AND COALESCE(o.paid_at, o.created_at) >= $1
		  AND COALESCE(o.paid_at, o.created_at) < $2
		ORDER BY o.created_at, oi.created_at`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SettlementItemRow
	for rows.Next() {
		var it SettlementItemRow
		if err := rows.Scan(
			&it.OrderID, &it.MenuID, &it.MenuName, &it.CategoryName,
			&it.Quantity, &it.Subtotal, &it.SupplierCode, &it.Source,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
