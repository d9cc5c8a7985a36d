package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siterank/siterank-go/internal/domain/entities"
)

type fakeDashboardAPI struct {
	mu         sync.Mutex
	stats      entities.DashboardStats
	recent     []entities.AnalysisSummary
	statsErr   error
	statsCalls int
	listLimit  int
}

func (f *fakeDashboardAPI) DashboardStats(_ context.Context) (*entities.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	stats := f.stats
	return &stats, nil
}

func (f *fakeDashboardAPI) ListAnalyses(_ context.Context, limit int) ([]entities.AnalysisSummary, error) {
	f.mu.Lock()
	f.listLimit = limit
	f.mu.Unlock()
	if limit > 0 && len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

// memoryCache is an in-process CacheProvider for tests
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[key]
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return value, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok, nil
}

func TestDashboardOverview(t *testing.T) {
	api := &fakeDashboardAPI{
		stats: entities.DashboardStats{TotalAnalyses: 7, CompletedAnalyses: 5, AvgScore: 72, BestScore: 91},
		recent: []entities.AnalysisSummary{
			{ID: "a1", UserSiteURL: "https://example.com", Status: entities.StatusCompleted, OverallScore: 91},
		},
	}

	overview, err := NewDashboardService(api, nil).Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, overview.Stats.TotalAnalyses)
	assert.Equal(t, 91, overview.Stats.BestScore)
	require.Len(t, overview.Recent, 1)
	assert.Equal(t, "a1", overview.Recent[0].ID)
	assert.Equal(t, 10, api.listLimit)
}

func TestDashboardOverviewUsesCache(t *testing.T) {
	api := &fakeDashboardAPI{
		stats: entities.DashboardStats{TotalAnalyses: 3},
	}
	svc := NewDashboardService(api, newMemoryCache())

	first, err := svc.Overview(context.Background())
	require.NoError(t, err)

	second, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, 1, api.statsCalls, "second overview should be served from cache")
}

func TestDashboardOverviewPropagatesErrors(t *testing.T) {
	api := &fakeDashboardAPI{statsErr: fmt.Errorf("connection refused")}
	_, err := NewDashboardService(api, nil).Overview(context.Background())
	require.Error(t, err)
}

func TestDashboardIgnoresCorruptCacheEntry(t *testing.T) {
	api := &fakeDashboardAPI{stats: entities.DashboardStats{TotalAnalyses: 2}}
	cache := newMemoryCache()
	require.NoError(t, cache.Set(context.Background(), dashboardCacheKey, []byte("{broken"), 60))

	overview, err := NewDashboardService(api, cache).Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, overview.Stats.TotalAnalyses)
}
