package memory

import (
	"context"
	"sync"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

var _ ports.DraftCache = (*DraftCache)(nil)

// DraftCache keeps drafts in process memory. Contents do not survive a restart.
type DraftCache struct {
	entries sync.Map
}

func NewDraftCache() *DraftCache {
	return &DraftCache{}
}

func (c *DraftCache) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := c.entries.Load(key)
	if !ok {
		return "", false, nil
	}
	return value.(string), true, nil
}

func (c *DraftCache) Set(_ context.Context, key, value string) error {
	c.entries.Store(key, value)
	return nil
}

func (c *DraftCache) Remove(_ context.Context, key string) error {
	c.entries.Delete(key)
	return nil
}
