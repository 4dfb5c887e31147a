package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type memoryCacheRepo struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.entries[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(r.entries, key)
	}
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range r.entries {
		if strings.HasPrefix(key, prefix) {
			delete(r.entries, key)
		}
	}
	return nil
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, zap.NewNop(), false)
	svc.Set(context.Background(), ClassGridKey("A"), map[string]string{"id": "A"}, 0)

	assert.False(t, svc.Enabled())
	assert.Empty(t, repo.entries)
	var dest map[string]string
	assert.False(t, svc.Get(context.Background(), ClassGridKey("A"), &dest))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	nilSvc.InvalidateAll(context.Background())
}

func TestCacheServiceHitMissAndMetrics(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var dest map[string]string
	assert.False(t, svc.Get(ctx, ClassGridKey("A"), &dest))

	svc.Set(ctx, ClassGridKey("A"), map[string]string{"id": "A"}, 0)
	assert.Equal(t, time.Minute, repo.ttls[ClassGridKey("A")])
	require.True(t, svc.Get(ctx, ClassGridKey("A"), &dest))
	assert.Equal(t, "A", dest["id"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.0001)

	repo.getErr = errors.New("redis down")
	assert.False(t, svc.Get(ctx, ClassGridKey("A"), &dest))
}

func TestCacheServiceInvalidation(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	for _, id := range []string{"A", "B", "C"} {
		svc.Set(ctx, ClassGridKey(id), map[string]string{"id": id}, 0)
	}

	svc.InvalidateClasses(ctx, "A")
	assert.NotContains(t, repo.entries, ClassGridKey("A"))
	assert.Contains(t, repo.entries, ClassGridKey("B"))

	svc.InvalidateAll(ctx)
	assert.Empty(t, repo.entries)
}
