package question

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// Cache provides Redis-backed question batch caching to offload DB and
// model calls.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ BatchCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(req BatchRequest) string {
	return strings.Join([]string{
		"questionbatch",
		string(req.Exam),
		string(req.Topic),
		string(req.Subtopic),
		req.Difficulty,
		fmt.Sprint(req.Count),
		excludeDigest(req.Exclude),
	}, ":")
}

// excludeDigest folds the exclusion list into the cache key so batch N+1
// of a session never aliases batch N.
func excludeDigest(exclude []string) string {
	if len(exclude) == 0 {
		return "0"
	}
	h := sha256.New()
	for _, text := range exclude {
		h.Write([]byte(text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

func (c *Cache) Get(ctx context.Context, req BatchRequest) (*Batch, error) {
	data, err := c.client.Get(ctx, c.key(req)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (c *Cache) Set(ctx context.Context, req BatchRequest, batch Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(req), data, c.ttl).Err()
}

// Invalidate drops the cached batch for one request shape. Used when a
// difficulty change forces a fresh fetch.
func (c *Cache) Invalidate(ctx context.Context, req BatchRequest) error {
	return c.client.Del(ctx, c.key(req)).Err()
}
