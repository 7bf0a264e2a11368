package ports

import "context"

// DraftCache is a process-local string key/value store surviving restarts.
type DraftCache interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
