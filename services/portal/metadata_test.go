package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxMetaScrapedAndCached(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `<html><script>InitAjax('mybox', 'https://sse.wodbuster.com');</script></html>`)
	}))
	defer server.Close()

	s := testScraper()
	meta, err := s.boxMeta(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "mybox", meta.Name)
	assert.Equal(t, "https://sse.wodbuster.com", meta.SSEServer)

	// Second lookup is served from the cache.
	meta, err = s.boxMeta(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "mybox", meta.Name)
	assert.Equal(t, 1, hits)
}

func TestBoxMetaMissingInitAjax(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing here</body></html>`)
	}))
	defer server.Close()

	s := testScraper()
	_, err := s.boxMeta(context.Background(), server.URL)
	assert.Equal(t, KindInvalidBox, KindOf(err))
}

func TestInitAjaxPatternVariants(t *testing.T) {
	// With and without the space after the comma.
	match := initAjaxRe.FindStringSubmatch(`InitAjax('box','https://sse.example.com')`)
	require.NotNil(t, match)
	assert.Equal(t, "box", match[1])

	match = initAjaxRe.FindStringSubmatch(`InitAjax('box', 'https://sse.example.com')`)
	require.NotNil(t, match)
	assert.Equal(t, "https://sse.example.com", match[2])
}

func TestMemoryBoxMetaCache(t *testing.T) {
	cache := NewMemoryBoxMetaCache()
	ctx := context.Background()

	meta, err := cache.Get(ctx, "https://box.example.com")
	require.NoError(t, err)
	assert.Nil(t, meta)

	require.NoError(t, cache.Set(ctx, "https://box.example.com", BoxMeta{Name: "box", SSEServer: "sse"}))
	meta, err = cache.Get(ctx, "https://box.example.com")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "box", meta.Name)
}
