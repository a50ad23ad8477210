package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/common"
	"github.com/ternarybob/seeker/internal/interfaces"
	"github.com/ternarybob/seeker/internal/models"
	"github.com/ternarybob/seeker/internal/services/cache"
	"github.com/ternarybob/seeker/internal/storage/badger"
)

func newCacheFixture(t *testing.T) (*CacheHandler, interfaces.ResultCache) {
	t.Helper()
	logger := arbor.NewLogger()

	db, err := badger.NewBadgerDB(logger, &common.StorageConfig{
		Path: t.TempDir() + "/badger",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	resultCache := cache.NewService(badger.NewKVStorage(db, logger), time.Hour, logger)
	return NewCacheHandler(resultCache, logger), resultCache
}

func TestCacheStats(t *testing.T) {
	h, resultCache := newCacheFixture(t)
	ctx := context.Background()

	require.NoError(t, resultCache.Put(ctx, "https://example.com/", "term", &models.SearchResult{URL: "https://example.com/"}))
	_, err := resultCache.Get(ctx, "https://example.com/", "term")
	require.NoError(t, err)
	_, err = resultCache.Get(ctx, "https://example.com/missing", "term")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, float64(1), body["hits"])
	assert.Equal(t, float64(1), body["misses"])
	assert.Equal(t, 50.0, body["hit_rate"])
}

func TestCacheStats_MethodNotAllowed(t *testing.T) {
	h, _ := newCacheFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/cache/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCacheClear(t *testing.T) {
	h, resultCache := newCacheFixture(t)
	ctx := context.Background()

	require.NoError(t, resultCache.Put(ctx, "https://example.com/", "term", &models.SearchResult{URL: "https://example.com/"}))

	req := httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil)
	rec := httptest.NewRecorder()
	h.Clear(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	entry, err := resultCache.Get(ctx, "https://example.com/", "term")
	require.NoError(t, err)
	assert.Nil(t, entry)
}
