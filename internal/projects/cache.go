package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheTTL = 5 * time.Minute

// Cache is a read-through Redis cache for project rows. A nil client makes
// every operation a no-op, so Redis stays optional.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func cacheKey(projectID uuid.UUID) string {
	return fmt.Sprintf("project:%s", projectID)
}

func (c *Cache) Get(ctx context.Context, projectID uuid.UUID) (*Project, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, cacheKey(projectID)).Bytes()
	if err != nil {
		return nil, false
	}

	var p Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *Cache) Set(ctx context.Context, p *Project) {
	if c == nil || c.client == nil || p == nil {
		return
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey(p.ID), raw, cacheTTL)
}

func (c *Cache) Invalidate(ctx context.Context, projectID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, cacheKey(projectID))
}
