package services

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/siterank/siterank-go/pkg/errors"
)

// maxCompetitors mirrors the submission form's limit
const maxCompetitors = 5

// NormalizeSiteURL validates a user-supplied site URL, prefixing https://
// when no scheme is given. Returns the normalized URL or a validation error
// naming the offending field.
func NormalizeSiteURL(field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperrors.NewValidationError(field, "Please enter a valid URL")
	}
	candidate := trimmed
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Host == "" {
		return "", apperrors.NewValidationError(field, "Please enter a valid URL")
	}
	return candidate, nil
}

// validateSubmission checks a full analysis submission before any network
// call. Empty competitor fields are dropped; the remaining ones must number
// between 1 and maxCompetitors and each must be a parseable URL.
func validateSubmission(userSiteURL string, competitorURLs []string) ([]string, error) {
	if _, err := NormalizeSiteURL("user_site_url", userSiteURL); err != nil {
		return nil, err
	}

	var competitors []string
	for _, raw := range competitorURLs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		competitors = append(competitors, raw)
	}

	if len(competitors) == 0 {
		return nil, apperrors.NewValidationError("competitor_urls", "Add at least one competitor URL")
	}
	if len(competitors) > maxCompetitors {
		return nil, apperrors.NewValidationError("competitor_urls",
			fmt.Sprintf("At most %d competitor URLs are supported", maxCompetitors))
	}
	for i, raw := range competitors {
		field := fmt.Sprintf("competitor_%d", i)
		if _, err := NormalizeSiteURL(field, raw); err != nil {
			return nil, err
		}
	}
	return competitors, nil
}

// writeBlob saves downloaded bytes under dir and returns the full path
func writeBlob(dir, name string, data []byte) (string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating download dir: %w", err)
		}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	return path, nil
}

// shortID returns the first 8 characters of an id for filenames
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
