package services

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/siterank/siterank-go/internal/adapters/storage"
	"github.com/siterank/siterank-go/internal/domain/entities"
	apperrors "github.com/siterank/siterank-go/pkg/errors"
)

// ErrGenerationInFlight is returned when a fix-generation request arrives for
// a category that is already generating. Callers treat it as a no-op rather
// than queueing the repeat.
var ErrGenerationInFlight = fmt.Errorf("fix generation already in progress")

// AuditAPI is the slice of the backend client the audit service uses
type AuditAPI interface {
	AnalyzeCategory(ctx context.Context, category entities.FixCategory, siteURL string) (*entities.CategoryReport, error)
	GenerateFixes(ctx context.Context, category entities.FixCategory, req entities.FixRequest) (*entities.FixResponse, error)
	DownloadFixPackage(ctx context.Context, req entities.FixPackageRequest) ([]byte, error)
	WhiteLabelPDF(ctx context.Context, req entities.WhiteLabelRequest) ([]byte, error)
}

// AuditOptions carries the optional context a user can attach to an audit.
// All fields may be empty.
type AuditOptions struct {
	TargetKeyword string
	ClientName    string
	AgencyName    string
	ServerType    string
}

// AuditService runs single-site audits across the three categories and owns
// the fix-generation state that hangs off them. Fix slices are index-aligned
// with the issues they were generated from; a nil slot means no fix has been
// generated for that issue yet.
type AuditService struct {
	api        AuditAPI
	history    *storage.HistoryStore
	serverType string

	mu         sync.Mutex
	siteURL    string
	opts       AuditOptions
	reports    map[entities.FixCategory]*entities.CategoryReport
	fixes      map[entities.FixCategory][]*entities.Fix
	generating map[entities.FixCategory]bool
}

// NewAuditService creates an audit service. history may be nil. serverType is
// the default web server assumed for speed fixes.
func NewAuditService(api AuditAPI, history *storage.HistoryStore, serverType string) *AuditService {
	if serverType == "" {
		serverType = "nginx"
	}
	return &AuditService{
		api:        api,
		history:    history,
		serverType: serverType,
		reports:    make(map[entities.FixCategory]*entities.CategoryReport),
		fixes:      make(map[entities.FixCategory][]*entities.Fix),
		generating: make(map[entities.FixCategory]bool),
	}
}

// Audit analyzes the site across all three categories concurrently. A fresh
// audit resets all previous reports and fixes. Any category failure fails
// the audit as a whole.
func (s *AuditService) Audit(ctx context.Context, siteURL string, opts AuditOptions) error {
	normalized, err := NormalizeSiteURL("url", siteURL)
	if err != nil {
		return err
	}

	results := make(map[entities.FixCategory]*entities.CategoryReport, 3)
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, category := range entities.FixCategories() {
		category := category
		g.Go(func() error {
			report, err := s.api.AnalyzeCategory(gctx, category, normalized)
			if err != nil {
				return fmt.Errorf("%s analysis: %w", category, err)
			}
			resultsMu.Lock()
			results[category] = report
			resultsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	s.siteURL = normalized
	s.opts = opts
	s.reports = results
	s.fixes = make(map[entities.FixCategory][]*entities.Fix)
	s.generating = make(map[entities.FixCategory]bool)
	s.mu.Unlock()

	s.recordLocally(ctx, normalized, results)
	return nil
}

// SiteURL returns the URL of the current audit, empty when none has run
func (s *AuditService) SiteURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.siteURL
}

// Report returns the report for a category, or nil when no audit has run
func (s *AuditService) Report(category entities.FixCategory) *entities.CategoryReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[category]
}

// OverallScore is the rounded mean of the three category scores
func (s *AuditService) OverallScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return overallOf(s.reports)
}

// Fixes returns a copy of the fix slots for a category. Slots holding nil
// have no generated fix yet.
func (s *AuditService) Fixes(category entities.FixCategory) []*entities.Fix {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entities.Fix, len(s.fixes[category]))
	copy(out, s.fixes[category])
	return out
}

// HasFixes reports whether any fix has been generated in any category
func (s *AuditService) HasFixes() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slots := range s.fixes {
		for _, fix := range slots {
			if fix != nil {
				return true
			}
		}
	}
	return false
}

// GenerateFixes generates fixes for every issue in a category, replacing the
// category's fix array wholesale. A repeat call while one is in flight
// returns ErrGenerationInFlight and does nothing. On failure previously
// generated fixes are left untouched.
func (s *AuditService) GenerateFixes(ctx context.Context, category entities.FixCategory) error {
	req, issueCount, err := s.beginGeneration(category, -1)
	if err != nil {
		return err
	}
	defer s.endGeneration(category)

	resp, err := s.api.GenerateFixes(ctx, category, req)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	slots := make([]*entities.Fix, issueCount)
	for i := range resp.Fixes {
		if i >= len(slots) {
			break
		}
		fix := resp.Fixes[i]
		slots[i] = &fix
	}
	s.fixes[category] = slots
	return nil
}

// GenerateSingleFix regenerates the fix for one issue, leaving every other
// slot in the category untouched
func (s *AuditService) GenerateSingleFix(ctx context.Context, category entities.FixCategory, index int) error {
	if index < 0 {
		return apperrors.NewValidationError("index", "issue index must be non-negative")
	}
	req, issueCount, err := s.beginGeneration(category, index)
	if err != nil {
		return err
	}
	defer s.endGeneration(category)

	resp, err := s.api.GenerateFixes(ctx, category, req)
	if err != nil {
		return err
	}
	if len(resp.Fixes) == 0 {
		return apperrors.NewRequestError(0, "backend returned no fix", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	slots := s.slotsLocked(category, issueCount)
	fix := resp.Fixes[0]
	slots[index] = &fix
	return nil
}

// GenerateAllFixes generates fixes for every category that has issues
func (s *AuditService) GenerateAllFixes(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, category := range entities.FixCategories() {
		category := category
		report := s.Report(category)
		if report == nil || len(report.Issues) == 0 {
			continue
		}
		g.Go(func() error {
			return s.GenerateFixes(gctx, category)
		})
	}
	return g.Wait()
}

// DownloadFixPackage fetches the zip archive of all generated fixes and
// saves it under dir, returning the written path
func (s *AuditService) DownloadFixPackage(ctx context.Context, dir, label string) (string, error) {
	s.mu.Lock()
	if !s.hasFixesLocked() {
		s.mu.Unlock()
		return "", apperrors.NewValidationError("fixes", "Generate at least one fix before downloading")
	}
	req := entities.FixPackageRequest{
		URL:          s.siteURL,
		SEOFixes:     collectFixes(s.fixes[entities.CategorySEO]),
		SpeedFixes:   collectFixes(s.fixes[entities.CategorySpeed]),
		ContentFixes: collectFixes(s.fixes[entities.CategoryContent]),
		ServerType:   s.effectiveServerTypeLocked(),
	}
	s.mu.Unlock()

	data, err := s.api.DownloadFixPackage(ctx, req)
	if err != nil {
		return "", err
	}
	name := entities.SafeLabel(label, "client") + "-fix-package.zip"
	return writeBlob(dir, name, data)
}

// WhiteLabelReport fetches the backend-rendered branded PDF and saves it
// under dir, returning the written path
func (s *AuditService) WhiteLabelReport(ctx context.Context, dir, clientName, agencyName string) (string, error) {
	s.mu.Lock()
	if len(s.reports) == 0 {
		s.mu.Unlock()
		return "", apperrors.NewValidationError("url", "Run an audit before exporting a report")
	}
	req := entities.WhiteLabelRequest{
		URL:         s.siteURL,
		ClientName:  clientName,
		AgencyName:  agencyName,
		SEOData:     s.reports[entities.CategorySEO],
		SpeedData:   s.reports[entities.CategorySpeed],
		ContentData: s.reports[entities.CategoryContent],
		Fixes:       s.fixesByCategoryLocked(),
	}
	s.mu.Unlock()

	data, err := s.api.WhiteLabelPDF(ctx, req)
	if err != nil {
		return "", err
	}
	name := entities.SafeLabel(clientName, "client") + "-website-audit.pdf"
	return writeBlob(dir, name, data)
}

// beginGeneration validates the request, marks the category as generating
// and builds the fix request. index < 0 means all issues; otherwise only the
// issue at index.
func (s *AuditService) beginGeneration(category entities.FixCategory, index int) (entities.FixRequest, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := s.reports[category]
	if report == nil {
		return entities.FixRequest{}, 0, apperrors.NewValidationError("category", "Run an audit before generating fixes")
	}
	if len(report.Issues) == 0 {
		return entities.FixRequest{}, 0, apperrors.NewValidationError("category", "No issues to fix in this category")
	}
	if index >= len(report.Issues) {
		return entities.FixRequest{}, 0, apperrors.NewValidationError("index",
			fmt.Sprintf("issue index %d out of range", index))
	}
	if s.generating[category] {
		return entities.FixRequest{}, 0, ErrGenerationInFlight
	}
	s.generating[category] = true

	issues := make([]string, 0, len(report.Issues))
	if index >= 0 {
		issues = append(issues, report.Issues[index].Label())
	} else {
		for _, issue := range report.Issues {
			issues = append(issues, issue.Label())
		}
	}

	req := entities.FixRequest{
		URL:    s.siteURL,
		Issues: issues,
	}
	switch category {
	case entities.CategorySEO:
		req.TargetKeyword = s.opts.TargetKeyword
		req.PageTitle = report.Meta.Title
		req.PageDescription = report.Meta.Description
	case entities.CategorySpeed:
		req.ServerType = s.effectiveServerTypeLocked()
	case entities.CategoryContent:
		req.TargetKeyword = s.opts.TargetKeyword
		req.CurrentContent = report.ContentPreview
	}
	return req, len(report.Issues), nil
}

func (s *AuditService) endGeneration(category entities.FixCategory) {
	s.mu.Lock()
	s.generating[category] = false
	s.mu.Unlock()
}

// slotsLocked returns the fix slots for a category, allocating them on first
// use so existing fixes survive regeneration
func (s *AuditService) slotsLocked(category entities.FixCategory, issueCount int) []*entities.Fix {
	if len(s.fixes[category]) != issueCount {
		s.fixes[category] = make([]*entities.Fix, issueCount)
	}
	return s.fixes[category]
}

func (s *AuditService) hasFixesLocked() bool {
	for _, slots := range s.fixes {
		for _, fix := range slots {
			if fix != nil {
				return true
			}
		}
	}
	return false
}

func (s *AuditService) effectiveServerTypeLocked() string {
	if s.opts.ServerType != "" {
		return s.opts.ServerType
	}
	return s.serverType
}

func (s *AuditService) fixesByCategoryLocked() map[string][]entities.Fix {
	out := make(map[string][]entities.Fix)
	for category, slots := range s.fixes {
		collected := collectFixes(slots)
		if len(collected) > 0 {
			out[string(category)] = collected
		}
	}
	return out
}

// collectFixes drops the nil slots, keeping issue order
func collectFixes(slots []*entities.Fix) []entities.Fix {
	out := make([]entities.Fix, 0, len(slots))
	for _, fix := range slots {
		if fix != nil {
			out = append(out, *fix)
		}
	}
	return out
}

func overallOf(reports map[entities.FixCategory]*entities.CategoryReport) int {
	if len(reports) == 0 {
		return 0
	}
	sum := 0
	for _, report := range reports {
		sum += report.Score
	}
	return int(math.Round(float64(sum) / float64(len(reports))))
}

func (s *AuditService) recordLocally(ctx context.Context, siteURL string, reports map[entities.FixCategory]*entities.CategoryReport) {
	if s.history == nil {
		return
	}
	score := func(c entities.FixCategory) int {
		if r := reports[c]; r != nil {
			return r.Score
		}
		return 0
	}
	_, err := s.history.RecordAudit(ctx, siteURL,
		score(entities.CategorySEO),
		score(entities.CategorySpeed),
		score(entities.CategoryContent),
		overallOf(reports))
	if err != nil {
		log.Warn().Err(err).Str("url", siteURL).Msg("failed to record audit locally")
	}
}
