package services

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/siterank/siterank-go/internal/domain/entities"
	"github.com/siterank/siterank-go/internal/domain/providers"
)

const (
	dashboardCacheKey = "siterank:dashboard:overview"
	dashboardCacheTTL = 60 // seconds
	recentLimit       = 10
)

// DashboardAPI is the slice of the backend client the dashboard uses
type DashboardAPI interface {
	DashboardStats(ctx context.Context) (*entities.DashboardStats, error)
	ListAnalyses(ctx context.Context, limit int) ([]entities.AnalysisSummary, error)
}

// Overview is the assembled dashboard payload
type Overview struct {
	Stats  entities.DashboardStats    `json:"stats"`
	Recent []entities.AnalysisSummary `json:"recent"`
}

// DashboardService assembles the dashboard overview, reading through an
// optional cache so repeated views within the TTL don't refetch
type DashboardService struct {
	api   DashboardAPI
	cache providers.CacheProvider
}

// NewDashboardService creates a dashboard service. cache may be nil.
func NewDashboardService(api DashboardAPI, cache providers.CacheProvider) *DashboardService {
	return &DashboardService{api: api, cache: cache}
}

// Overview returns the caller's stats and recent analyses, fetching both
// concurrently on a cache miss
func (s *DashboardService) Overview(ctx context.Context) (*Overview, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	var overview Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.api.DashboardStats(gctx)
		if err != nil {
			return err
		}
		overview.Stats = *stats
		return nil
	})
	g.Go(func() error {
		recent, err := s.api.ListAnalyses(gctx, recentLimit)
		if err != nil {
			return err
		}
		overview.Recent = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.toCache(ctx, &overview)
	return &overview, nil
}

func (s *DashboardService) fromCache(ctx context.Context) *Overview {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, dashboardCacheKey)
	if err != nil || len(raw) == 0 {
		return nil
	}
	var overview Overview
	if err := json.Unmarshal(raw, &overview); err != nil {
		log.Debug().Err(err).Msg("discarding unreadable dashboard cache entry")
		return nil
	}
	return &overview
}

func (s *DashboardService) toCache(ctx context.Context, overview *Overview) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(overview)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, raw, dashboardCacheTTL); err != nil {
		log.Debug().Err(err).Msg("failed to cache dashboard overview")
	}
}
