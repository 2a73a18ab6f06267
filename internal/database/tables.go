package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, table_number, name, is_active, created_at`

func scanTable(row pgx.Row) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.TableNumber, &t.Name, &t.IsActive, &t.CreatedAt)
	return t, err
}

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = $1`, id)
	return scanTable(row)
}

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, `SELECT `+tableColumns+` FROM tables ORDER BY table_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// GetInactiveTableByNumber finds a deactivated table holding the given
// number, if any, so activation can reuse its row.
func (q *Queries) GetInactiveTableByNumber(ctx context.Context, tableNumber string) (Table, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+tableColumns+` FROM tables
		WHERE table_number = $1 AND NOT is_active
		LIMIT 1`, tableNumber)
	return scanTable(row)
}

type GetActiveTableByNumberParams struct {
	TableNumber string
	ExcludeID   uuid.UUID
}

// GetActiveTableByNumber finds an active table with the given number,
// excluding one id (zero UUID to exclude nothing).
func (q *Queries) GetActiveTableByNumber(ctx context.Context, arg GetActiveTableByNumberParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+tableColumns+` FROM tables
		WHERE table_number = $1 AND is_active AND id <> $2
		LIMIT 1`, arg.TableNumber, arg.ExcludeID)
	return scanTable(row)
}

type CreateTableParams struct {
	TableNumber string
	Name        string
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO tables (table_number, name) VALUES ($1, $2)
		RETURNING `+tableColumns, arg.TableNumber, arg.Name)
	return scanTable(row)
}

type ReactivateTableParams struct {
	ID   uuid.UUID
	Name string
}

// ReactivateTable restores a deactivated table in place, keeping its id so
// historical orders stay attached.
func (q *Queries) ReactivateTable(ctx context.Context, arg ReactivateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables SET is_active = true, name = $2 WHERE id = $1
		RETURNING `+tableColumns, arg.ID, arg.Name)
	return scanTable(row)
}

type UpdateTableParams struct {
	ID          uuid.UUID
	TableNumber string
	Name        string
	IsActive    bool
}

func (q *Queries) UpdateTable(ctx context.Context, arg UpdateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables SET table_number = $2, name = $3, is_active = $4 WHERE id = $1
		RETURNING `+tableColumns, arg.ID, arg.TableNumber, arg.Name, arg.IsActive)
	return scanTable(row)
}

func (q *Queries) DeactivateTable(ctx context.Context, id uuid.UUID) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables SET is_active = false WHERE id = $1
		RETURNING `+tableColumns, id)
	return scanTable(row)
}
