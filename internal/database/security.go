package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const securityColumns = `pin_hash, pin_enabled, auto_lock_enabled, idle_minutes, updated_at`

func (q *Queries) GetSecuritySettings(ctx context.Context) (SecuritySettings, error) {
	var s SecuritySettings
	err := q.db.QueryRow(ctx, `SELECT `+securityColumns+` FROM security_settings WHERE id = 1`).Scan(
		&s.PinHash, &s.PinEnabled, &s.AutoLockEnabled, &s.IdleMinutes, &s.UpdatedAt,
	)
	return s, err
}

type UpdateSecuritySettingsParams struct {
	PinEnabled      bool
	AutoLockEnabled bool
	IdleMinutes     int32
}

func (q *Queries) UpdateSecuritySettings(ctx context.Context, arg UpdateSecuritySettingsParams) (SecuritySettings, error) {
	var s SecuritySettings
	err := q.db.QueryRow(ctx, `
		UPDATE security_settings
		SET pin_enabled = $1, auto_lock_enabled = $2, idle_minutes = $3, updated_at = now()
		WHERE id = 1
		RETURNING `+securityColumns,
		arg.PinEnabled, arg.AutoLockEnabled, arg.IdleMinutes,
	).Scan(&s.PinHash, &s.PinEnabled, &s.AutoLockEnabled, &s.IdleMinutes, &s.UpdatedAt)
	return s, err
}

func (q *Queries) SetPinHash(ctx context.Context, hash pgtype.Text) error {
	_, err := q.db.Exec(ctx, `
		UPDATE security_settings SET pin_hash = $1, updated_at = now() WHERE id = 1`, hash)
	return err
}
