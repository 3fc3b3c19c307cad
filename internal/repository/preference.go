package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"lumina/internal/model"
)

type preferenceRepository struct {
	db *sqlx.DB
}

func NewPreferenceRepository(db *sqlx.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Get(ctx context.Context, deviceID, key string) (string, error) {
	query := r.db.Rebind(`SELECT value FROM preferences WHERE device_id = ? AND key = ?`)

	var value string
	err := r.db.GetContext(ctx, &value, query, deviceID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrPreferenceNotFound
		}
		return "", fmt.Errorf("get preference: %w", err)
	}
	return value, nil
}

func (r *preferenceRepository) Set(ctx context.Context, deviceID, key, value string) error {
	query := r.db.Rebind(`
		INSERT INTO preferences (device_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (device_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)

	if _, err := r.db.ExecContext(ctx, query, deviceID, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}
