package repository

import "context"

// PreferenceRepository stores small named string entries per device.
type PreferenceRepository interface {
	// Get returns the value stored under key, or model.ErrPreferenceNotFound.
	Get(ctx context.Context, deviceID, key string) (string, error)
	// Set creates or replaces the value stored under key.
	Set(ctx context.Context, deviceID, key, value string) error
}
