package describe

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores one description per hostname. An empty description is a
// valid entry and records a failed lookup.
type Cache interface {
	Get(ctx context.Context, host string) (desc string, ok bool, err error)
	Set(ctx context.Context, host, desc string) error
}

// MemoryCache is a bounded LRU cache living for the process lifetime.
type MemoryCache struct {
	mu    sync.Mutex
	size  int
	order *list.List
	items map[string]*list.Element
}

type memoryEntry struct {
	host string
	desc string
}

// NewMemoryCache creates a cache holding at most size hosts.
// A size below one is treated as one.
func NewMemoryCache(size int) *MemoryCache {
	return &MemoryCache{
		size:  max(size, 1),
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *MemoryCache) Get(_ context.Context, host string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[host]
	if !ok {
		return "", false, nil
	}
	c.order.MoveToFront(el)
	return el.Value.(*memoryEntry).desc, true, nil
}

func (c *MemoryCache) Set(_ context.Context, host, desc string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[host]; ok {
		el.Value.(*memoryEntry).desc = desc
		c.order.MoveToFront(el)
		return nil
	}

	c.items[host] = c.order.PushFront(&memoryEntry{host: host, desc: desc})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*memoryEntry).host)
	}
	return nil
}

// Len returns the number of cached hosts.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// KeyPrefix namespaces description keys in Redis.
const KeyPrefix = "minitab:describe:"

// RedisCache shares descriptions between server instances. Entries expire
// after ttl so failed hosts are retried eventually.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache over client. A zero ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Key returns the Redis key for host.
func Key(host string) string {
	return KeyPrefix + host
}

func (c *RedisCache) Get(ctx context.Context, host string) (string, bool, error) {
	desc, err := c.client.Get(ctx, Key(host)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil // Cache miss
		}
		return "", false, fmt.Errorf("failed to get cached description: %w", err)
	}
	return desc, true, nil
}

func (c *RedisCache) Set(ctx context.Context, host, desc string) error {
	if err := c.client.Set(ctx, Key(host), desc, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache description: %w", err)
	}
	return nil
}
