package entities

import "strings"

// FixCategory identifies one of the three auditable dimensions
type FixCategory string

const (
	CategorySEO     FixCategory = "seo"
	CategorySpeed   FixCategory = "speed"
	CategoryContent FixCategory = "content"
)

// FixCategories lists all categories in display order
func FixCategories() []FixCategory {
	return []FixCategory{CategorySEO, CategorySpeed, CategoryContent}
}

// Valid reports whether c is a known category
func (c FixCategory) Valid() bool {
	switch c {
	case CategorySEO, CategorySpeed, CategoryContent:
		return true
	}
	return false
}

// Issue is one detected problem inside a category report. The backend emits
// the label under either "issue" or "name" depending on the analyzer, so
// both are tolerated.
type Issue struct {
	Issue       string `json:"issue,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Impact      string `json:"impact,omitempty"`
}

// Label returns the issue's display label regardless of which key carried it
func (i Issue) Label() string {
	if i.Issue != "" {
		return i.Issue
	}
	return i.Name
}

// CategoryReport is the result of a single-category analyze call
type CategoryReport struct {
	URL            string         `json:"url,omitempty"`
	Score          int            `json:"score"`
	Issues         []Issue        `json:"issues"`
	Meta           PageMeta       `json:"meta,omitempty"`
	Metrics        map[string]any `json:"metrics,omitempty"`
	ContentPreview string         `json:"content_preview,omitempty"`
}

// PageMeta carries the scraped page metadata used as fix-generation context
type PageMeta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Fix is one generated remediation artifact, index-aligned with the issue it
// was generated from
type Fix struct {
	FixedCode    string `json:"fixed_code"`
	Instructions string `json:"instructions,omitempty"`
	ConfigType   string `json:"config_type,omitempty"`
	Impact       string `json:"impact,omitempty"`
}

// FixRequest is the payload for a fix-generation call. Context fields are
// optional; omitted ones fall back to backend defaults.
type FixRequest struct {
	URL             string   `json:"url"`
	Issues          []string `json:"issues"`
	TargetKeyword   string   `json:"target_keyword,omitempty"`
	PageTitle       string   `json:"page_title,omitempty"`
	PageDescription string   `json:"page_description,omitempty"`
	ServerType      string   `json:"server_type,omitempty"`
	CurrentContent  string   `json:"current_content,omitempty"`
}

// FixResponse is the fix-generation envelope
type FixResponse struct {
	Fixes []Fix `json:"fixes"`
}

// FixPackageRequest is the payload for the downloadable fix archive
type FixPackageRequest struct {
	URL          string `json:"url"`
	SEOFixes     []Fix  `json:"seo_fixes"`
	SpeedFixes   []Fix  `json:"speed_fixes"`
	ContentFixes []Fix  `json:"content_fixes"`
	ServerType   string `json:"server_type"`
}

// WhiteLabelRequest is the payload for the backend-rendered branded PDF
type WhiteLabelRequest struct {
	URL         string           `json:"url"`
	ClientName  string           `json:"client_name"`
	AgencyName  string           `json:"agency_name"`
	SEOData     *CategoryReport  `json:"seo_data,omitempty"`
	SpeedData   *CategoryReport  `json:"speed_data,omitempty"`
	ContentData *CategoryReport  `json:"content_data,omitempty"`
	Fixes       map[string][]Fix `json:"fixes,omitempty"`
}

// SafeLabel sanitizes a user-supplied label for use in a filename, falling
// back to def when the label is empty
func SafeLabel(label, def string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return def
	}
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return def
	}
	return b.String()
}
