package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"lumina/internal/database"
	"lumina/internal/model"
)

func newTestRepo(t *testing.T) PreferenceRepository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewPreferenceRepository(db)
}

func TestPreferenceRepository_GetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "device-1", model.InterestsKey)
	if !errors.Is(err, model.ErrPreferenceNotFound) {
		t.Errorf("expected ErrPreferenceNotFound, got: %v", err)
	}
}

func TestPreferenceRepository_SetThenOverwrite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Set(ctx, "device-1", model.InterestsKey, `["Arte"]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := repo.Set(ctx, "device-1", model.InterestsKey, `["Arte","Saúde"]`); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	got, err := repo.Get(ctx, "device-1", model.InterestsKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != `["Arte","Saúde"]` {
		t.Errorf("value = %q, want overwritten value", got)
	}

	// Entries are scoped per device.
	if _, err := repo.Get(ctx, "device-2", model.InterestsKey); !errors.Is(err, model.ErrPreferenceNotFound) {
		t.Errorf("device-2: expected ErrPreferenceNotFound, got: %v", err)
	}
}
