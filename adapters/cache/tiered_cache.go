package cache

import (
	"context"

	"cropadvisor/domain/crop"
	"cropadvisor/ports"
)

// TieredCache reads the local tier first and falls back to the shared tier,
// promoting shared hits into the local tier.
type TieredCache struct {
	local  ports.ResultCache
	shared ports.ResultCache
}

// NewTieredCache combines local and shared. shared may be nil.
func NewTieredCache(local, shared ports.ResultCache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

func (t *TieredCache) Get(ctx context.Context, key string) (*crop.Result, bool) {
	if result, ok := t.local.Get(ctx, key); ok {
		return result, true
	}
	if t.shared == nil {
		return nil, false
	}
	result, ok := t.shared.Get(ctx, key)
	if ok {
		_ = t.local.Set(ctx, key, result)
	}
	return result, ok
}

// Set writes both tiers. A shared tier failure is returned after the local
// write has succeeded.
func (t *TieredCache) Set(ctx context.Context, key string, result *crop.Result) error {
	if err := t.local.Set(ctx, key, result); err != nil {
		return err
	}
	if t.shared == nil {
		return nil
	}
	return t.shared.Set(ctx, key, result)
}
