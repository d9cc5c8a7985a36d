package services

import (
	"context"

	"github.com/siterank/siterank-go/internal/domain/entities"
)

// OptimizeAPI is the slice of the backend client the optimize service uses
type OptimizeAPI interface {
	Optimize(ctx context.Context, req entities.OptimizeRequest) (*entities.OptimizeResponse, error)
	DetectCompetitors(ctx context.Context, req entities.CompetitorDetectRequest) (*entities.CompetitorDetectResponse, error)
}

// OptimizeService fronts the one-click optimization blueprint endpoints
type OptimizeService struct {
	api OptimizeAPI
}

// NewOptimizeService creates an optimize service
func NewOptimizeService(api OptimizeAPI) *OptimizeService {
	return &OptimizeService{api: api}
}

// Optimize requests a full optimization blueprint for a site. When
// autoDetect is set the backend discovers competitors on its own.
func (s *OptimizeService) Optimize(ctx context.Context, siteURL string, autoDetect bool) (*entities.OptimizeResponse, error) {
	normalized, err := NormalizeSiteURL("url", siteURL)
	if err != nil {
		return nil, err
	}
	return s.api.Optimize(ctx, entities.OptimizeRequest{
		UserSiteURL:           normalized,
		AutoDetectCompetitors: autoDetect,
	})
}

// DetectCompetitors asks the backend to find likely competitors for a site
func (s *OptimizeService) DetectCompetitors(ctx context.Context, siteURL, industryHint string) (*entities.CompetitorDetectResponse, error) {
	normalized, err := NormalizeSiteURL("url", siteURL)
	if err != nil {
		return nil, err
	}
	return s.api.DetectCompetitors(ctx, entities.CompetitorDetectRequest{
		UserSiteURL:  normalized,
		IndustryHint: industryHint,
	})
}
