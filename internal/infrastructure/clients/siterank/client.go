package siterank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/siterank/siterank-go/internal/domain/entities"
	"github.com/siterank/siterank-go/pkg/config"
	apperrors "github.com/siterank/siterank-go/pkg/errors"
)

// TokenSource supplies the current bearer token. An empty return means the
// request goes out anonymously; callers must tolerate that rather than fail.
type TokenSource func() string

// Client is the authenticated JSON client for the SiteRank backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient creates a new SiteRank API client
func NewClient(cfg *config.BackendConfig, tokens TokenSource) *Client {
	trimmed := strings.TrimRight(cfg.URL, "/")
	return &Client{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tokens: tokens,
	}
}

// Register creates an account and returns the issued session
func (c *Client) Register(ctx context.Context, req entities.RegisterRequest) (*entities.TokenResponse, error) {
	out := &entities.TokenResponse{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Login authenticates and returns the issued session
func (c *Client) Login(ctx context.Context, req entities.LoginRequest) (*entities.TokenResponse, error) {
	out := &entities.TokenResponse{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Me returns the account behind the current token
func (c *Client) Me(ctx context.Context) (*entities.User, error) {
	out := &entities.User{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAnalysis submits a new competitor analysis job
func (c *Client) CreateAnalysis(ctx context.Context, req entities.AnalysisCreate) (*entities.Analysis, error) {
	out := &entities.Analysis{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/analyses", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAnalysis retrieves an analysis by id
func (c *Client) GetAnalysis(ctx context.Context, id string) (*entities.Analysis, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("analysis id is required")
	}
	out := &entities.Analysis{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/analyses/"+url.PathEscape(id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAnalyses returns the caller's most recent analyses
func (c *Client) ListAnalyses(ctx context.Context, limit int) ([]entities.AnalysisSummary, error) {
	path := "/api/analyses"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out []entities.AnalysisSummary
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAnalysis removes an analysis by id
func (c *Client) DeleteAnalysis(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/analyses/"+url.PathEscape(id), nil, nil)
}

// DownloadReport fetches the rendered report for a completed analysis
func (c *Client) DownloadReport(ctx context.Context, id string) ([]byte, error) {
	return c.doBlob(ctx, http.MethodGet, "/api/analyses/"+url.PathEscape(id)+"/report", nil)
}

// DashboardStats returns the caller's aggregate analysis stats
func (c *Client) DashboardStats(ctx context.Context) (*entities.DashboardStats, error) {
	out := &entities.DashboardStats{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/dashboard/stats", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeCategory runs a single-category audit of a URL
func (c *Client) AnalyzeCategory(ctx context.Context, category entities.FixCategory, siteURL string) (*entities.CategoryReport, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	out := &entities.CategoryReport{}
	path := fmt.Sprintf("/api/%s/analyze", category)
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]string{"url": siteURL}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateFixes requests remediation code for a category's issues
func (c *Client) GenerateFixes(ctx context.Context, category entities.FixCategory, req entities.FixRequest) (*entities.FixResponse, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	out := &entities.FixResponse{}
	path := fmt.Sprintf("/api/fix/%s", category)
	if err := c.doJSON(ctx, http.MethodPost, path, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadFixPackage fetches the zip archive of accumulated fixes
func (c *Client) DownloadFixPackage(ctx context.Context, req entities.FixPackageRequest) ([]byte, error) {
	return c.doBlob(ctx, http.MethodPost, "/api/fix/download-zip", req)
}

// WhiteLabelPDF fetches a backend-rendered branded audit report
func (c *Client) WhiteLabelPDF(ctx context.Context, req entities.WhiteLabelRequest) ([]byte, error) {
	return c.doBlob(ctx, http.MethodPost, "/api/report/white-label-pdf", req)
}

// Optimize requests a full optimization blueprint for a site
func (c *Client) Optimize(ctx context.Context, req entities.OptimizeRequest) (*entities.OptimizeResponse, error) {
	out := &entities.OptimizeResponse{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/optimize", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DetectCompetitors asks the backend to find competitors for a site
func (c *Client) DetectCompetitors(ctx context.Context, req entities.CompetitorDetectRequest) (*entities.CompetitorDetectResponse, error) {
	out := &entities.CompetitorDetectResponse{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/competitors/detect", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Chat forwards the conversation history and returns the assistant's reply
func (c *Client) Chat(ctx context.Context, messages []entities.ChatMessage) (*entities.ChatResponse, error) {
	out := &entities.ChatResponse{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/chatbot", entities.ChatRequest{Messages: messages}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// errorEnvelope is the backend's rejection body
type errorEnvelope struct {
	Detail string `json:"detail"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) doBlob(ctx context.Context, method, path string, body any) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp)
	}
	return io.ReadAll(resp.Body)
}

// statusError maps a non-2xx response to the client error taxonomy,
// preferring the backend's detail message when one is present
func (c *Client) statusError(resp *http.Response) error {
	var envelope errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &envelope)

	message := envelope.Detail
	switch resp.StatusCode {
	case http.StatusNotFound:
		if message == "" {
			message = "resource not found"
		}
		return apperrors.NewNotFoundError(message)
	case http.StatusUnauthorized, http.StatusForbidden:
		if message == "" {
			message = "authentication required"
		}
		return apperrors.NewUnauthorizedError(message)
	default:
		if message == "" {
			message = fmt.Sprintf("backend returned status %d", resp.StatusCode)
		}
		return apperrors.NewRequestError(resp.StatusCode, message, nil)
	}
}
