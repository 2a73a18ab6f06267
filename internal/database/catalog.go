package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuColumns = `id, category_id, name, price, price_gofood, price_grabfood, price_shopeefood,
	is_gofood, is_grabfood, is_shopeefood, supplier_code, image_url, is_active, created_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(
		&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.PriceGofood, &m.PriceGrabfood, &m.PriceShopeefood,
		&m.IsGofood, &m.IsGrabfood, &m.IsShopeefood, &m.SupplierCode, &m.ImageUrl, &m.IsActive, &m.CreatedAt,
	)
	return m, err
}

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+menuColumns+` FROM menu WHERE id = $1 AND is_active`, id)
	return scanMenuItem(row)
}

func (q *Queries) ListMenu(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, `SELECT `+menuColumns+` FROM menu WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

type CreateMenuItemParams struct {
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
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menu (category_id, name, price, price_gofood, price_grabfood, price_shopeefood,
			is_gofood, is_grabfood, is_shopeefood, supplier_code, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+menuColumns,
		arg.CategoryID, arg.Name, arg.Price, arg.PriceGofood, arg.PriceGrabfood, arg.PriceShopeefood,
		arg.IsGofood, arg.IsGrabfood, arg.IsShopeefood, arg.SupplierCode, arg.ImageUrl,
	)
	return scanMenuItem(row)
}

type UpdateMenuItemParams struct {
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
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE menu
		SET category_id = $2, name = $3, price = $4, price_gofood = $5, price_grabfood = $6,
		    price_shopeefood = $7, is_gofood = $8, is_grabfood = $9, is_shopeefood = $10,
		    supplier_code = $11, image_url = $12
		WHERE id = $1 AND is_active
		RETURNING `+menuColumns,
		arg.ID, arg.CategoryID, arg.Name, arg.Price, arg.PriceGofood, arg.PriceGrabfood,
		arg.PriceShopeefood, arg.IsGofood, arg.IsGrabfood, arg.IsShopeefood, arg.SupplierCode, arg.ImageUrl,
	)
	return scanMenuItem(row)
}

// SoftDeleteMenuItem deactivates a menu entry; historical order items keep
// their denormalized name and price.
func (q *Queries) SoftDeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE menu SET is_active = false WHERE id = $1 AND is_active RETURNING id`, id,
	).Scan(&deleted)
	return deleted, err
}

// --- Categories ---

const categoryColumns = `id, name, type, created_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.CreatedAt)
	return c, err
}

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	row := q.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	return scanCategory(row)
}

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cats []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

type CreateCategoryParams struct {
	Name string
	Type string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO categories (name, type) VALUES ($1, $2)
		RETURNING `+categoryColumns, arg.Name, arg.Type)
	return scanCategory(row)
}

type UpdateCategoryParams struct {
	ID   uuid.UUID
	Name string
	Type string
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE categories SET name = $2, type = $3 WHERE id = $1
		RETURNING `+categoryColumns, arg.ID, arg.Name, arg.Type)
	return scanCategory(row)
}

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return err
}
