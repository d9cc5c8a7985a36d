package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/siterank/siterank-go/internal/domain/entities"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id               TEXT PRIMARY KEY,
	user_site_url    TEXT NOT NULL,
	competitor_count INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL,
	overall_score    INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS audits (
	id            TEXT PRIMARY KEY,
	url           TEXT NOT NULL,
	seo_score     INTEGER NOT NULL,
	speed_score   INTEGER NOT NULL,
	content_score INTEGER NOT NULL,
	overall_score INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);
`

// AuditRecord is a locally-recorded single-site audit run. Audits have no
// backend id, so the store assigns one.
type AuditRecord struct {
	ID           string `db:"id"`
	URL          string `db:"url"`
	SEOScore     int    `db:"seo_score"`
	SpeedScore   int    `db:"speed_score"`
	ContentScore int    `db:"content_score"`
	OverallScore int    `db:"overall_score"`
	CreatedAt    string `db:"created_at"`
}

// HistoryStore keeps a local record of submitted analyses and audit runs in
// an embedded sqlite database, so history and dashboards work offline.
type HistoryStore struct {
	db   *sql.DB
	goqu *goqu.Database
}

// NewHistoryStore opens (and if needed initializes) the history database at path
func NewHistoryStore(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &HistoryStore{
		db:   db,
		goqu: goqu.Dialect("sqlite3").DB(db),
	}, nil
}

// Close closes the underlying database
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// RecordAnalysis inserts or refreshes the local row for an analysis
func (h *HistoryStore) RecordAnalysis(ctx context.Context, summary entities.AnalysisSummary) error {
	insert := h.goqu.Insert("analyses").
		Rows(goqu.Record{
			"id":               summary.ID,
			"user_site_url":    summary.UserSiteURL,
			"competitor_count": summary.CompetitorCount,
			"status":           string(summary.Status),
			"overall_score":    summary.OverallScore,
			"created_at":       summary.CreatedAt,
		}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"status":        string(summary.Status),
			"overall_score": summary.OverallScore,
		}))

	query, args, err := insert.Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = h.db.ExecContext(ctx, query, args...)
	return err
}

// UpdateAnalysisStatus records an observed status transition
func (h *HistoryStore) UpdateAnalysisStatus(ctx context.Context, id string, status entities.AnalysisStatus, overallScore int) error {
	update := h.goqu.Update("analyses").
		Set(goqu.Record{
			"status":        string(status),
			"overall_score": overallScore,
		}).
		Where(goqu.C("id").Eq(id))

	query, args, err := update.Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = h.db.ExecContext(ctx, query, args...)
	return err
}

// DeleteAnalysis removes the local row for an analysis
func (h *HistoryStore) DeleteAnalysis(ctx context.Context, id string) error {
	query, args, err := h.goqu.Delete("analyses").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = h.db.ExecContext(ctx, query, args...)
	return err
}

// RecentAnalyses lists locally-known analyses, newest first
func (h *HistoryStore) RecentAnalyses(ctx context.Context, limit int) ([]entities.AnalysisSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := h.goqu.From("analyses").
		Select("id", "user_site_url", "competitor_count", "status", "overall_score", "created_at").
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.AnalysisSummary
	for rows.Next() {
		var s entities.AnalysisSummary
		var status string
		if err := rows.Scan(&s.ID, &s.UserSiteURL, &s.CompetitorCount, &status, &s.OverallScore, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Status = entities.AnalysisStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecordAudit stores a completed single-site audit run and returns its id
func (h *HistoryStore) RecordAudit(ctx context.Context, url string, seo, speed, content, overall int) (string, error) {
	id := uuid.New().String()
	insert := h.goqu.Insert("audits").Rows(goqu.Record{
		"id":            id,
		"url":           url,
		"seo_score":     seo,
		"speed_score":   speed,
		"content_score": content,
		"overall_score": overall,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	})
	query, args, err := insert.Prepared(true).ToSQL()
	if err != nil {
		return "", err
	}
	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		return "", err
	}
	return id, nil
}

// RecentAudits lists locally-recorded audit runs, newest first
func (h *HistoryStore) RecentAudits(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := h.goqu.From("audits").
		Select("id", "url", "seo_score", "speed_score", "content_score", "overall_score", "created_at").
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var r AuditRecord
		if err := rows.Scan(&r.ID, &r.URL, &r.SEOScore, &r.SpeedScore, &r.ContentScore, &r.OverallScore, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
