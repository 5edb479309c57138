package portal

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/go-redis/redis/v8"
)

// BoxMeta is the per-box wiring learned from the box home page: the
// short name the booking hub addresses rooms by, and the SSE server the
// hub lives on.
type BoxMeta struct {
	Name      string `json:"name"`
	SSEServer string `json:"sseServer"`
}

// BoxMetaCache stores learned box metadata keyed by box URL.
type BoxMetaCache interface {
	Get(ctx context.Context, boxURL string) (*BoxMeta, error)
	Set(ctx context.Context, boxURL string, meta BoxMeta) error
}

const boxMetaCachePrefix = "boxmeta:"
const boxMetaCacheTTL = 7 * 24 * time.Hour

// RedisBoxMetaCache keeps box metadata in redis so a restart does not
// re-scrape every box home page.
type RedisBoxMetaCache struct {
	client *redis.Client
}

// NewRedisBoxMetaCache wraps a redis client as a BoxMetaCache.
func NewRedisBoxMetaCache(client *redis.Client) *RedisBoxMetaCache {
	return &RedisBoxMetaCache{client: client}
}

func (c *RedisBoxMetaCache) Get(ctx context.Context, boxURL string) (*BoxMeta, error) {
	data, err := c.client.Get(ctx, boxMetaCachePrefix+boxURL).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta BoxMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *RedisBoxMetaCache) Set(ctx context.Context, boxURL string, meta BoxMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, boxMetaCachePrefix+boxURL, data, boxMetaCacheTTL).Err()
}

// MemoryBoxMetaCache is a process-local BoxMetaCache for tests and for
// running without redis.
type MemoryBoxMetaCache struct {
	metas map[string]BoxMeta
}

func NewMemoryBoxMetaCache() *MemoryBoxMetaCache {
	return &MemoryBoxMetaCache{metas: make(map[string]BoxMeta)}
}

func (c *MemoryBoxMetaCache) Get(_ context.Context, boxURL string) (*BoxMeta, error) {
	if meta, ok := c.metas[boxURL]; ok {
		return &meta, nil
	}
	return nil, nil
}

func (c *MemoryBoxMetaCache) Set(_ context.Context, boxURL string, meta BoxMeta) error {
	c.metas[boxURL] = meta
	return nil
}

var initAjaxRe = regexp.MustCompile(`InitAjax\('([^']*)',\s?'([^']*)'`)

// boxMeta resolves the metadata of a box, scraping the home page on a
// cache miss.
func (s *Scraper) boxMeta(ctx context.Context, boxURL string) (*BoxMeta, error) {
	if s.meta != nil {
		if meta, err := s.meta.Get(ctx, boxURL); err == nil && meta != nil {
			return meta, nil
		}
	}

	resp, err := s.get(ctx, s.noRedirect, boxURL+"/user/")
	if err != nil {
		return nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	match := initAjaxRe.FindStringSubmatch(body)
	if match == nil {
		return nil, NewError(KindInvalidBox, "couldn't determine box name from URL")
	}

	meta := BoxMeta{Name: match[1], SSEServer: match[2]}
	if s.meta != nil {
		if err := s.meta.Set(ctx, boxURL, meta); err != nil {
			s.logger.Warn("Failed to cache box metadata")
		}
	}
	return &meta, nil
}
