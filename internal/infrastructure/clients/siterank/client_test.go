package siterank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siterank/siterank-go/internal/domain/entities"
	"github.com/siterank/siterank-go/pkg/config"
	apperrors "github.com/siterank/siterank-go/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.BackendConfig{URL: server.URL + "/", Timeout: 5 * time.Second}
	return NewClient(cfg, func() string { return token })
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(entities.DashboardStats{})
	})

	client := newTestClient(t, handler, "token-123")
	_, err := client.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-123", gotAuth)
}

func TestClientOmitsAuthorizationWhenAnonymous(t *testing.T) {
	var hasAuth bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		json.NewEncoder(w).Encode(entities.DashboardStats{})
	})

	client := newTestClient(t, handler, "")
	_, err := client.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.False(t, hasAuth)
}

func TestClientCreateAnalysis(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/analyses", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req entities.AnalysisCreate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com", req.UserSiteURL)

		json.NewEncoder(w).Encode(entities.Analysis{
			ID:          "a1",
			UserSiteURL: req.UserSiteURL,
			Status:      entities.StatusPending,
		})
	})

	client := newTestClient(t, handler, "t")
	analysis, err := client.CreateAnalysis(context.Background(), entities.AnalysisCreate{
		UserSiteURL:    "https://example.com",
		CompetitorURLs: []string{"https://rival.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", analysis.ID)
	assert.Equal(t, entities.StatusPending, analysis.Status)
}

func TestClientMapsErrorDetail(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantType   apperrors.ErrorType
		wantDetail string
	}{
		{
			name:       "not found with detail",
			status:     http.StatusNotFound,
			body:       `{"detail": "Analysis not found"}`,
			wantType:   apperrors.ErrorTypeNotFound,
			wantDetail: "Analysis not found",
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			body:       `{"detail": "Could not validate credentials"}`,
			wantType:   apperrors.ErrorTypeUnauthorized,
			wantDetail: "Could not validate credentials",
		},
		{
			name:       "forbidden maps to unauthorized",
			status:     http.StatusForbidden,
			body:       `{}`,
			wantType:   apperrors.ErrorTypeUnauthorized,
			wantDetail: "authentication required",
		},
		{
			name:       "bad request",
			status:     http.StatusBadRequest,
			body:       `{"detail": "At most 5 competitor URLs"}`,
			wantType:   apperrors.ErrorTypeRequest,
			wantDetail: "At most 5 competitor URLs",
		},
		{
			name:     "unparseable body",
			status:   http.StatusInternalServerError,
			body:     `<html>boom</html>`,
			wantType: apperrors.ErrorTypeRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			client := newTestClient(t, handler, "t")
			_, err := client.GetAnalysis(context.Background(), "a1")
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, apperrors.UserMessage(err, ""))
			}
		})
	}
}

func TestClientDownloadReportReturnsRawBytes(t *testing.T) {
	payload := []byte("SITE ANALYSIS REPORT\n====================\n")
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/analyses/a1/report", r.URL.Path)
		w.Write(payload)
	})

	client := newTestClient(t, handler, "t")
	data, err := client.DownloadReport(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestClientAnalyzeCategoryRejectsUnknownCategory(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	}), "t")

	_, err := client.AnalyzeCategory(context.Background(), "security", "https://example.com")
	require.Error(t, err)
}

func TestClientGenerateFixesPath(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/fix/speed", r.URL.Path)

		var req entities.FixRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nginx", req.ServerType)

		json.NewEncoder(w).Encode(entities.FixResponse{
			Fixes: []entities.Fix{{FixedCode: "gzip on;", ConfigType: "nginx"}},
		})
	})

	client := newTestClient(t, handler, "t")
	resp, err := client.GenerateFixes(context.Background(), entities.CategorySpeed, entities.FixRequest{
		URL:        "https://example.com",
		Issues:     []string{"No compression"},
		ServerType: "nginx",
	})
	require.NoError(t, err)
	require.Len(t, resp.Fixes, 1)
	assert.Equal(t, "gzip on;", resp.Fixes[0].FixedCode)
}

func TestClientGetAnalysisRequiresID(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler(), "t")
	_, err := client.GetAnalysis(context.Background(), "  ")
	require.Error(t, err)
}
