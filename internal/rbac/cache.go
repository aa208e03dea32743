package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Key identifies one cached permission set: a user within a team scope.
type Key struct {
	UserID int64
	TeamID *int64
}

func (k Key) String() string {
	if k.TeamID == nil {
		return fmt.Sprintf("user:%d:team:global", k.UserID)
	}
	return fmt.Sprintf("user:%d:team:%d", k.UserID, *k.TeamID)
}

// Cache stores resolved permission names. Implementations are best
// effort: failures behave like misses.
type Cache interface {
	Get(ctx context.Context, key Key) ([]string, bool)
	Set(ctx context.Context, key Key, perms []string)
	Forget(ctx context.Context, key Key)
	// Flush drops every entry; used when role definitions change.
	Flush(ctx context.Context)
}

type LRUCache struct {
	lru *expirable.LRU[string, []string]
}

func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, []string](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key Key) ([]string, bool) {
	return c.lru.Get(key.String())
}

func (c *LRUCache) Set(_ context.Context, key Key, perms []string) {
	c.lru.Add(key.String(), perms)
}

func (c *LRUCache) Forget(_ context.Context, key Key) {
	c.lru.Remove(key.String())
}

func (c *LRUCache) Flush(context.Context) {
	c.lru.Purge()
}

type NopCache struct{}

func (NopCache) Get(context.Context, Key) ([]string, bool) { return nil, false }
func (NopCache) Set(context.Context, Key, []string)        {}
func (NopCache) Forget(context.Context, Key)               {}
func (NopCache) Flush(context.Context)                     {}

type afterCommitter interface {
	AfterCommit(fn func())
}

// txCache is the cache seen by a store bound to a transaction. Reads
// miss and writes are dropped so uncommitted rows never reach the
// shared cache. Evictions happen immediately and again after commit,
// which clears any entry another request filled from the pre-commit
// rows in between.
type txCache struct {
	shared Cache
	tx     afterCommitter
}

func (c *txCache) Get(context.Context, Key) ([]string, bool) { return nil, false }
func (c *txCache) Set(context.Context, Key, []string)        {}

func (c *txCache) Forget(ctx context.Context, key Key) {
	c.shared.Forget(ctx, key)
	c.tx.AfterCommit(func() { c.shared.Forget(context.WithoutCancel(ctx), key) })
}

func (c *txCache) Flush(ctx context.Context) {
	c.shared.Flush(ctx)
	c.tx.AfterCommit(func() { c.shared.Flush(context.WithoutCancel(ctx)) })
}
