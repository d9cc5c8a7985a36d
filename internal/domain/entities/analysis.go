package entities

// AnalysisStatus is the lifecycle state of a competitor analysis job.
// The backend owns all transitions; the client only observes them.
type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// Terminal reports whether the status will never change again
func (s AnalysisStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ScoreSet holds the 0-100 category scores for a single site plus the
// backend's nested detail objects. Detail maps are optional and may be nil
// on analyses that predate a scoring dimension.
type ScoreSet struct {
	SEOScore     int `json:"seo_score"`
	SpeedScore   int `json:"speed_score"`
	ContentScore int `json:"content_score"`
	UXScore      int `json:"ux_score"`
	OverallScore int `json:"overall_score"`

	SEODetails     map[string]any `json:"seo_details,omitempty"`
	SpeedDetails   map[string]any `json:"speed_details,omitempty"`
	ContentDetails map[string]any `json:"content_details,omitempty"`
	UXDetails      map[string]any `json:"ux_details,omitempty"`
}

// CompetitorData is one scored competitor inside a completed analysis
type CompetitorData struct {
	URL             string   `json:"url"`
	Scores          ScoreSet `json:"scores"`
	Title           string   `json:"title,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
}

// Analysis is a full competitor analysis record.
// AISuggestions doubles as the free-text failure reason on failed analyses.
type Analysis struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	UserSiteURL    string           `json:"user_site_url"`
	UserSiteScores ScoreSet         `json:"user_site_scores"`
	Competitors    []CompetitorData `json:"competitors"`
	AISuggestions  string           `json:"ai_suggestions"`
	ActionPlan     []string         `json:"action_plan"`
	Status         AnalysisStatus   `json:"status"`
	CreatedAt      string           `json:"created_at"`
	CompletedAt    string           `json:"completed_at,omitempty"`
}

// FailureReason returns the display text for a failed analysis
func (a *Analysis) FailureReason() string {
	if a.AISuggestions != "" {
		return a.AISuggestions
	}
	return "Unable to complete the analysis. Please try again."
}

// AnalysisCreate is the submission payload
type AnalysisCreate struct {
	UserSiteURL    string   `json:"user_site_url"`
	CompetitorURLs []string `json:"competitor_urls"`
}

// AnalysisSummary is the condensed listing row
type AnalysisSummary struct {
	ID              string         `json:"id"`
	UserSiteURL     string         `json:"user_site_url"`
	OverallScore    int            `json:"overall_score"`
	CompetitorCount int            `json:"competitor_count"`
	Status          AnalysisStatus `json:"status"`
	CreatedAt       string         `json:"created_at"`
}

// DashboardStats aggregates a user's analysis activity
type DashboardStats struct {
	TotalAnalyses     int `json:"total_analyses"`
	CompletedAnalyses int `json:"completed_analyses"`
	AvgScore          int `json:"avg_score"`
	BestScore         int `json:"best_score"`
}
