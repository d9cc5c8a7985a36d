package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/siterank/siterank-go/internal/adapters/storage"
	"github.com/siterank/siterank-go/internal/domain/entities"
)

// DefaultPollInterval is the fixed cadence between status fetches while an
// analysis is still pending or processing
const DefaultPollInterval = 5 * time.Second

// AnalysisAPI is the slice of the backend client the analysis service uses
type AnalysisAPI interface {
	CreateAnalysis(ctx context.Context, req entities.AnalysisCreate) (*entities.Analysis, error)
	GetAnalysis(ctx context.Context, id string) (*entities.Analysis, error)
	ListAnalyses(ctx context.Context, limit int) ([]entities.AnalysisSummary, error)
	DeleteAnalysis(ctx context.Context, id string) error
	DownloadReport(ctx context.Context, id string) ([]byte, error)
	DashboardStats(ctx context.Context) (*entities.DashboardStats, error)
}

// AnalysisService drives the analysis lifecycle: submission, status polling
// until a terminal state, listing, deletion and report download. The local
// history store is optional; when present every observed state change is
// written through to it.
type AnalysisService struct {
	api          AnalysisAPI
	history      *storage.HistoryStore
	pollInterval time.Duration
	downloading  atomic.Bool

	mu       sync.Mutex
	watchers map[string]*Watch
}

// NewAnalysisService creates an analysis service. history may be nil.
func NewAnalysisService(api AnalysisAPI, history *storage.HistoryStore) *AnalysisService {
	return &AnalysisService{
		api:          api,
		history:      history,
		pollInterval: DefaultPollInterval,
		watchers:     make(map[string]*Watch),
	}
}

// SetPollInterval overrides the polling cadence. Used by tests.
func (s *AnalysisService) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// Submit validates the submission locally and creates the analysis job.
// Validation failures never reach the network.
func (s *AnalysisService) Submit(ctx context.Context, userSiteURL string, competitorURLs []string) (*entities.Analysis, error) {
	competitors, err := validateSubmission(userSiteURL, competitorURLs)
	if err != nil {
		return nil, err
	}

	analysis, err := s.api.CreateAnalysis(ctx, entities.AnalysisCreate{
		UserSiteURL:    userSiteURL,
		CompetitorURLs: competitors,
	})
	if err != nil {
		return nil, err
	}

	s.recordLocally(ctx, analysis)
	return analysis, nil
}

// Fetch retrieves the current state of an analysis and syncs local history
func (s *AnalysisService) Fetch(ctx context.Context, id string) (*entities.Analysis, error) {
	analysis, err := s.api.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordLocally(ctx, analysis)
	return analysis, nil
}

// Watch is a handle on a running poll loop. Updates delivers every fetched
// snapshot and is closed once the analysis reaches a terminal state or the
// watch is stopped.
type Watch struct {
	updates chan *entities.Analysis
	cancel  context.CancelFunc
	once    sync.Once
	done    chan struct{}
}

// Updates returns the stream of fetched snapshots
func (w *Watch) Updates() <-chan *entities.Analysis {
	return w.updates
}

// Stop cancels the poll loop. Safe to call more than once, and safe to call
// after the loop has already finished on its own.
func (w *Watch) Stop() {
	w.once.Do(w.cancel)
}

// Done is closed when the poll loop has fully exited
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// WatchAnalysis polls the analysis every poll interval until it reaches a
// terminal state. The first fetch happens immediately; each subsequent fetch
// is scheduled only after the previous one settles, so slow responses never
// cause overlapping requests. Only one watch per analysis id may be active.
func (s *AnalysisService) WatchAnalysis(ctx context.Context, id string) (*Watch, error) {
	s.mu.Lock()
	if _, active := s.watchers[id]; active {
		s.mu.Unlock()
		return nil, fmt.Errorf("analysis %s is already being watched", id)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &Watch{
		updates: make(chan *entities.Analysis, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.watchers[id] = w
	s.mu.Unlock()

	go s.poll(watchCtx, id, w)
	return w, nil
}

func (s *AnalysisService) poll(ctx context.Context, id string, w *Watch) {
	defer func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
		close(w.updates)
		close(w.done)
		w.Stop()
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		analysis, err := s.api.GetAnalysis(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// transient poll failures are silent; the next tick retries
			log.Debug().Err(err).Str("analysis_id", id).Msg("status poll failed")
			timer.Reset(s.pollInterval)
			continue
		}

		s.recordLocally(ctx, analysis)

		select {
		case w.updates <- analysis:
		case <-ctx.Done():
			return
		}

		if analysis.Status.Terminal() {
			return
		}
		timer.Reset(s.pollInterval)
	}
}

// List returns the caller's analyses, falling back to local history when the
// backend is unreachable
func (s *AnalysisService) List(ctx context.Context, limit int) ([]entities.AnalysisSummary, error) {
	summaries, err := s.api.ListAnalyses(ctx, limit)
	if err != nil {
		if s.history != nil {
			local, localErr := s.history.RecentAnalyses(ctx, limit)
			if localErr == nil && len(local) > 0 {
				log.Warn().Err(err).Msg("backend unreachable, serving local history")
				return local, nil
			}
		}
		return nil, err
	}
	return summaries, nil
}

// Delete removes an analysis on the backend and from local history
func (s *AnalysisService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteAnalysis(ctx, id); err != nil {
		return err
	}
	if s.history != nil {
		if err := s.history.DeleteAnalysis(ctx, id); err != nil {
			log.Warn().Err(err).Str("analysis_id", id).Msg("failed to delete local history row")
		}
	}
	return nil
}

// Stats returns the caller's aggregate analysis stats
func (s *AnalysisService) Stats(ctx context.Context) (*entities.DashboardStats, error) {
	return s.api.DashboardStats(ctx)
}

// Downloading reports whether a report download is in flight
func (s *AnalysisService) Downloading() bool {
	return s.downloading.Load()
}

// DownloadReport fetches the text report for an analysis and saves it under
// dir, returning the written path
func (s *AnalysisService) DownloadReport(ctx context.Context, id, dir string) (string, error) {
	s.downloading.Store(true)
	defer s.downloading.Store(false)

	data, err := s.api.DownloadReport(ctx, id)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("analysis_report_%s.txt", shortID(id))
	return writeBlob(dir, name, data)
}

func (s *AnalysisService) recordLocally(ctx context.Context, a *entities.Analysis) {
	if s.history == nil {
		return
	}
	summary := entities.AnalysisSummary{
		ID:              a.ID,
		UserSiteURL:     a.UserSiteURL,
		OverallScore:    a.UserSiteScores.OverallScore,
		CompetitorCount: len(a.Competitors),
		Status:          a.Status,
		CreatedAt:       a.CreatedAt,
	}
	if err := s.history.RecordAnalysis(ctx, summary); err != nil {
		log.Warn().Err(err).Str("analysis_id", a.ID).Msg("failed to record analysis locally")
	}
}
