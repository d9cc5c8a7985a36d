package entities

// OptimizationBlueprint is the AI-generated optimization aggregate returned
// by the optimize endpoint. It is rendered read-only; the client never
// mutates it.
type OptimizationBlueprint struct {
	OverallHealth         map[string]any `json:"overall_health"`
	PredictedImprovements map[string]any `json:"predicted_improvements"`
	CriticalFixes         []BlueprintFix `json:"critical_fixes"`
	QuickWins             []QuickWin     `json:"quick_wins"`
	SevenDayPlan          []PlanDay      `json:"seven_day_plan"`
	ThirtyDayStrategy     map[string]any `json:"thirty_day_strategy"`
	CompetitorInsights    map[string]any `json:"competitor_insights"`
}

// BlueprintFix is one prioritized fix inside a blueprint
type BlueprintFix struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Description string `json:"description,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Effort      string `json:"effort,omitempty"`
}

// QuickWin is a low-effort improvement suggestion
type QuickWin struct {
	Title  string `json:"title"`
	Impact string `json:"impact,omitempty"`
	Time   string `json:"time,omitempty"`
}

// PlanDay is one entry of the seven-day plan
type PlanDay struct {
	Day   int    `json:"day"`
	Focus string `json:"focus,omitempty"`
	Tasks any    `json:"tasks,omitempty"`
}

// OptimizeRequest is the payload for the one-click optimization endpoint
type OptimizeRequest struct {
	UserSiteURL           string `json:"user_site_url"`
	AutoDetectCompetitors bool   `json:"auto_detect_competitors"`
}

// OptimizeResponse bundles the blueprint with the scores it was derived from
type OptimizeResponse struct {
	Blueprint   OptimizationBlueprint `json:"blueprint"`
	UserScores  ScoreSet              `json:"user_scores"`
	Competitors []CompetitorData      `json:"competitors"`
}

// CompetitorDetectRequest asks the backend to find likely competitors
type CompetitorDetectRequest struct {
	UserSiteURL  string `json:"user_site_url"`
	IndustryHint string `json:"industry_hint,omitempty"`
}

// CompetitorDetectResponse lists detected competitor URLs
type CompetitorDetectResponse struct {
	Competitors      []string       `json:"competitors"`
	IndustryInsights map[string]any `json:"industry_insights,omitempty"`
}
