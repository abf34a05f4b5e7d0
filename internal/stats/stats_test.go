// v0
// internal/stats/stats_test.go
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josecookai/clawdmetrics/internal/supabase"
)

func TestParseUsage(t *testing.T) {
	t.Parallel()

	u, err := ParseUsage([]string{"10", "5000", "3000"})
	require.NoError(t, err)
	assert.Equal(t, Usage{InteractionCount: 10, InputTokens: 5000, OutputTokens: 3000}, u)

	_, err = ParseUsage([]string{"10", "5000"})
	assert.Error(t, err)

	_, err = ParseUsage([]string{"10", "x", "3"})
	assert.ErrorContains(t, err, "must be integers")

	_, err = ParseUsage([]string{"1", "-1", "0"})
	assert.ErrorContains(t, err, "non-negative")
}

func TestReportSendsServiceKeyAndPayload(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey string
	var gotBody map[string]int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"date":"2026-10-18","interaction_count":12}`))
	}))
	defer srv.Close()

	client := supabase.NewClient(srv.URL, "anon", srv.Client()).WithKey("service")
	result, err := Report(context.Background(), client, Usage{InteractionCount: 2, InputTokens: 30, OutputTokens: 40})
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/rpc/upsert_daily_stats", gotPath)
	assert.Equal(t, "Bearer service", gotKey)
	assert.Equal(t, map[string]int{"interaction_count": 2, "input_tokens": 30, "output_tokens": 40}, gotBody)
	assert.Equal(t, [][2]string{{"date", "2026-10-18"}, {"interaction_count", "12"}}, Summary(result))
}

func TestReportStatusErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status   int
		body     string
		wantText string
		wantHint string
	}{
		{http.StatusNotFound, `{"message":"Could not find the function"}`, "HTTP 404: Could not find the function", "may not exist"},
		{http.StatusUnauthorized, `{"error":"Invalid API key"}`, "HTTP 401: Invalid API key", "SUPABASE_SERVICE_KEY"},
		{http.StatusForbidden, `{"hint":"grant execute"}`, "HTTP 403 - Hint: grant execute", "permission"},
		{http.StatusInternalServerError, `upstream exploded`, "HTTP 500: upstream exploded", ""},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))

		_, err := Report(context.Background(), supabase.NewClient(srv.URL, "k", srv.Client()), Usage{})
		srv.Close()

		var re *ReportError
		require.True(t, errors.As(err, &re), tc.wantText)
		assert.Equal(t, tc.status, re.Status)
		assert.Equal(t, tc.wantText, re.Error())
		if tc.wantHint == "" {
			assert.Empty(t, re.Hint)
		} else {
			assert.Contains(t, re.Hint, tc.wantHint)
		}
	}
}

func TestReportNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Report(context.Background(), supabase.NewClient(url, "k", nil), Usage{})
	var re *ReportError
	require.True(t, errors.As(err, &re))
	assert.Zero(t, re.Status)
	assert.True(t, strings.HasPrefix(re.Error(), "Network error: "))
}

func TestReportRejectsNegativeWithoutCalling(t *testing.T) {
	t.Parallel()

	_, err := Report(context.Background(), supabase.NewClient("", "", nil), Usage{OutputTokens: -1})
	assert.ErrorContains(t, err, "non-negative")
}

func TestTruncateKeepsRunes(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("a", 199) + "用户"
	out := truncate(s, 200)
	assert.Equal(t, strings.Repeat("a", 199), out)
	assert.Equal(t, "short", truncate("short", 200))
}

func TestSummaryShapes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, [][2]string{{"a", "1"}}, Summary(json.RawMessage(`[{"a":1},{"b":2}]`)))
	assert.Equal(t, [][2]string{{"Result", "true"}}, Summary(json.RawMessage(`true`)))
	assert.Equal(t, [][2]string{{"Result", ""}}, Summary(nil))
}
