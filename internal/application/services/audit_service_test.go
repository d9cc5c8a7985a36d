package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siterank/siterank-go/internal/domain/entities"
	apperrors "github.com/siterank/siterank-go/pkg/errors"
)

const (
	timeout = time.Second
	tick    = time.Millisecond
)

type fakeAuditAPI struct {
	mu sync.Mutex

	reports    map[entities.FixCategory]*entities.CategoryReport
	analyzeErr map[entities.FixCategory]error

	fixRequests []entities.FixRequest
	fixResponse func(category entities.FixCategory, req entities.FixRequest) (*entities.FixResponse, error)
	fixGate     chan struct{} // when set, GenerateFixes blocks until it closes

	zipReq *entities.FixPackageRequest
	pdfReq *entities.WhiteLabelRequest
}

func (f *fakeAuditAPI) AnalyzeCategory(_ context.Context, category entities.FixCategory, _ string) (*entities.CategoryReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.analyzeErr[category]; err != nil {
		return nil, err
	}
	return f.reports[category], nil
}

func (f *fakeAuditAPI) GenerateFixes(_ context.Context, category entities.FixCategory, req entities.FixRequest) (*entities.FixResponse, error) {
	f.mu.Lock()
	f.fixRequests = append(f.fixRequests, req)
	gate := f.fixGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.fixResponse != nil {
		return f.fixResponse(category, req)
	}
	fixes := make([]entities.Fix, len(req.Issues))
	for i, issue := range req.Issues {
		fixes[i] = entities.Fix{FixedCode: "fix: " + issue}
	}
	return &entities.FixResponse{Fixes: fixes}, nil
}

func (f *fakeAuditAPI) DownloadFixPackage(_ context.Context, req entities.FixPackageRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zipReq = &req
	return []byte("PK zip"), nil
}

func (f *fakeAuditAPI) WhiteLabelPDF(_ context.Context, req entities.WhiteLabelRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pdfReq = &req
	return []byte("%PDF"), nil
}

func auditFixture() *fakeAuditAPI {
	return &fakeAuditAPI{
		reports: map[entities.FixCategory]*entities.CategoryReport{
			entities.CategorySEO: {
				Score: 60,
				Issues: []entities.Issue{
					{Issue: "Missing title tag"},
					{Name: "No meta description"},
					{Issue: "Thin heading structure"},
				},
				Meta: entities.PageMeta{Title: "Acme", Description: "Acme widgets"},
			},
			entities.CategorySpeed: {
				Score:  40,
				Issues: []entities.Issue{{Issue: "No compression"}},
			},
			entities.CategoryContent: {
				Score:          80,
				Issues:         []entities.Issue{{Issue: "Low word count"}},
				ContentPreview: "Welcome to Acme...",
			},
		},
	}
}

func runAudit(t *testing.T, api *fakeAuditAPI) *AuditService {
	t.Helper()
	svc := NewAuditService(api, nil, "nginx")
	require.NoError(t, svc.Audit(context.Background(), "example.com", AuditOptions{TargetKeyword: "widgets"}))
	return svc
}

func TestAuditPopulatesAllCategories(t *testing.T) {
	svc := runAudit(t, auditFixture())

	assert.Equal(t, "https://example.com", svc.SiteURL())
	assert.Equal(t, 60, svc.Report(entities.CategorySEO).Score)
	assert.Equal(t, 40, svc.Report(entities.CategorySpeed).Score)
	assert.Equal(t, 80, svc.Report(entities.CategoryContent).Score)
	assert.Equal(t, 60, svc.OverallScore())
	assert.False(t, svc.HasFixes())
}

func TestAuditFailsWhenAnyCategoryFails(t *testing.T) {
	api := auditFixture()
	api.analyzeErr = map[entities.FixCategory]error{
		entities.CategorySpeed: fmt.Errorf("analyzer timed out"),
	}

	svc := NewAuditService(api, nil, "nginx")
	err := svc.Audit(context.Background(), "example.com", AuditOptions{})
	require.Error(t, err)
	assert.Nil(t, svc.Report(entities.CategorySEO), "a failed audit must not publish partial reports")
}

func TestAuditValidatesURL(t *testing.T) {
	svc := NewAuditService(auditFixture(), nil, "nginx")
	err := svc.Audit(context.Background(), "   ", AuditOptions{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestGenerateFixesAlignsWithIssues(t *testing.T) {
	api := auditFixture()
	svc := runAudit(t, api)

	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))

	fixes := svc.Fixes(entities.CategorySEO)
	require.Len(t, fixes, 3)
	require.NotNil(t, fixes[0])
	assert.Equal(t, "fix: Missing title tag", fixes[0].FixedCode)
	require.NotNil(t, fixes[1])
	assert.Equal(t, "fix: No meta description", fixes[1].FixedCode, "issues labeled under name must still be sent")

	require.Len(t, api.fixRequests, 1)
	req := api.fixRequests[0]
	assert.Equal(t, "widgets", req.TargetKeyword)
	assert.Equal(t, "Acme", req.PageTitle)
	assert.Equal(t, "Acme widgets", req.PageDescription)
	assert.True(t, svc.HasFixes())
}

func TestGenerateFixesSpeedContext(t *testing.T) {
	api := auditFixture()
	svc := runAudit(t, api)

	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySpeed))
	require.Len(t, api.fixRequests, 1)
	assert.Equal(t, "nginx", api.fixRequests[0].ServerType)
}

func TestGenerateFixesContentContext(t *testing.T) {
	api := auditFixture()
	svc := runAudit(t, api)

	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategoryContent))
	require.Len(t, api.fixRequests, 1)
	assert.Equal(t, "Welcome to Acme...", api.fixRequests[0].CurrentContent)
	assert.Equal(t, "widgets", api.fixRequests[0].TargetKeyword)
}

func TestGenerateSingleFixPreservesSiblings(t *testing.T) {
	api := auditFixture()
	svc := runAudit(t, api)

	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))
	before := svc.Fixes(entities.CategorySEO)

	api.fixResponse = func(_ entities.FixCategory, _ entities.FixRequest) (*entities.FixResponse, error) {
		return &entities.FixResponse{Fixes: []entities.Fix{{FixedCode: "regenerated"}}}, nil
	}
	require.NoError(t, svc.GenerateSingleFix(context.Background(), entities.CategorySEO, 1))

	after := svc.Fixes(entities.CategorySEO)
	require.Len(t, after, 3)
	assert.Equal(t, before[0].FixedCode, after[0].FixedCode)
	assert.Equal(t, "regenerated", after[1].FixedCode)
	assert.Equal(t, before[2].FixedCode, after[2].FixedCode)

	// only the targeted issue travels in the regeneration request
	last := api.fixRequests[len(api.fixRequests)-1]
	assert.Equal(t, []string{"No meta description"}, last.Issues)
}

func TestGenerateSingleFixWithoutPriorGeneration(t *testing.T) {
	svc := runAudit(t, auditFixture())

	require.NoError(t, svc.GenerateSingleFix(context.Background(), entities.CategorySEO, 2))

	fixes := svc.Fixes(entities.CategorySEO)
	require.Len(t, fixes, 3)
	assert.Nil(t, fixes[0])
	assert.Nil(t, fixes[1])
	require.NotNil(t, fixes[2])
}

func TestGenerateSingleFixBounds(t *testing.T) {
	svc := runAudit(t, auditFixture())

	err := svc.GenerateSingleFix(context.Background(), entities.CategorySEO, 3)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	err = svc.GenerateSingleFix(context.Background(), entities.CategorySEO, -1)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestGenerateFixesRejectsConcurrentRepeat(t *testing.T) {
	api := auditFixture()
	svc := runAudit(t, api)

	gate := make(chan struct{})
	api.mu.Lock()
	api.fixGate = gate
	api.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- svc.GenerateFixes(context.Background(), entities.CategorySEO) }()

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.fixRequests) == 1
	}, timeout, tick)

	err := svc.GenerateFixes(context.Background(), entities.CategorySEO)
	assert.ErrorIs(t, err, ErrGenerationInFlight)

	// another category is independent
	api.mu.Lock()
	api.fixGate = nil
	api.mu.Unlock()
	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySpeed))

	close(gate)
	require.NoError(t, <-done)

	// once settled, the category can generate again
	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))
}

func TestGenerateFixesReplacesArrayWholesale(t *testing.T) {
	api := auditFixture()
	svc := runAudit(t, api)

	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))
	before := svc.Fixes(entities.CategorySEO)
	require.NotNil(t, before[2])

	// a short response must not leave stale fixes at the tail
	api.fixResponse = func(_ entities.FixCategory, _ entities.FixRequest) (*entities.FixResponse, error) {
		return &entities.FixResponse{Fixes: []entities.Fix{{FixedCode: "only one"}}}, nil
	}
	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))

	after := svc.Fixes(entities.CategorySEO)
	require.Len(t, after, 3)
	require.NotNil(t, after[0])
	assert.Equal(t, "only one", after[0].FixedCode)
	assert.Nil(t, after[1])
	assert.Nil(t, after[2])
}

func TestGenerateFixesFailureKeepsExistingFixes(t *testing.T) {
	api := auditFixture()
	svc := runAudit(t, api)

	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))

	api.fixResponse = func(_ entities.FixCategory, _ entities.FixRequest) (*entities.FixResponse, error) {
		return nil, fmt.Errorf("model overloaded")
	}
	require.Error(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))

	fixes := svc.Fixes(entities.CategorySEO)
	require.Len(t, fixes, 3)
	require.NotNil(t, fixes[0])
	assert.Equal(t, "fix: Missing title tag", fixes[0].FixedCode)
}

func TestGenerateFixesRequiresAudit(t *testing.T) {
	svc := NewAuditService(auditFixture(), nil, "nginx")
	err := svc.GenerateFixes(context.Background(), entities.CategorySEO)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestDownloadFixPackage(t *testing.T) {
	api := auditFixture()
	svc := runAudit(t, api)

	_, err := svc.DownloadFixPackage(context.Background(), t.TempDir(), "Acme Corp")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "zip needs at least one fix")

	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))
	require.NoError(t, svc.GenerateSingleFix(context.Background(), entities.CategorySpeed, 0))

	dir := t.TempDir()
	path, err := svc.DownloadFixPackage(context.Background(), dir, "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "acme-corp-fix-package.zip"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK zip", string(data))

	require.NotNil(t, api.zipReq)
	assert.Equal(t, "https://example.com", api.zipReq.URL)
	assert.Len(t, api.zipReq.SEOFixes, 3)
	assert.Len(t, api.zipReq.SpeedFixes, 1)
	assert.Empty(t, api.zipReq.ContentFixes)
	assert.Equal(t, "nginx", api.zipReq.ServerType)
}

func TestDownloadFixPackageDefaultLabel(t *testing.T) {
	svc := runAudit(t, auditFixture())
	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))

	dir := t.TempDir()
	path, err := svc.DownloadFixPackage(context.Background(), dir, "  !!  ")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "client-fix-package.zip"), path)
}

func TestWhiteLabelReport(t *testing.T) {
	api := auditFixture()
	svc := runAudit(t, api)
	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))

	dir := t.TempDir()
	path, err := svc.WhiteLabelReport(context.Background(), dir, "Acme Corp", "Bright Agency")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "acme-corp-website-audit.pdf"), path)

	require.NotNil(t, api.pdfReq)
	assert.Equal(t, "Acme Corp", api.pdfReq.ClientName)
	assert.Equal(t, "Bright Agency", api.pdfReq.AgencyName)
	require.NotNil(t, api.pdfReq.SEOData)
	assert.Len(t, api.pdfReq.Fixes["seo"], 3)
}

func TestNewAuditResetsFixState(t *testing.T) {
	api := auditFixture()
	svc := runAudit(t, api)
	require.NoError(t, svc.GenerateFixes(context.Background(), entities.CategorySEO))
	require.True(t, svc.HasFixes())

	require.NoError(t, svc.Audit(context.Background(), "https://other.com", AuditOptions{}))
	assert.False(t, svc.HasFixes())
	assert.Equal(t, "https://other.com", svc.SiteURL())
}
