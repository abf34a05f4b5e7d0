// v0
// cmd/clawdctl/main_test.go
package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func isolate(t *testing.T, env map[string]string) {
	t.Helper()
	t.Setenv("CLAWDMETRICS_PROPERTIES_PATH", filepath.Join(t.TempDir(), "absent.properties"))
	for _, k := range []string{"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_SERVICE_KEY", "NEXT_PUBLIC_SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_ANON_KEY"} {
		t.Setenv(k, env[k])
	}
}

func backend() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/rest/v1/rpc/get_leaderboard":
			_, _ = w.Write([]byte(`[{"id":"1","name":"ada","score":12.5,"rank":1},{"id":"2","score":3}]`))
		case "/rest/v1/rpc/upsert_daily_stats":
			_, _ = w.Write([]byte(`{"interaction_count":10}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestRunWithoutCommandPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), nil, &out, nil))
	assert.Contains(t, out.String(), "report-stats")
}

func TestRunUnknownCommand(t *testing.T) {
	isolate(t, nil)
	var out bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"deploy"}, &out, nil))
	assert.Contains(t, out.String(), "unknown command deploy")
}

func TestVerifyFailsWithoutEnvironment(t *testing.T) {
	isolate(t, nil)
	var out bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"verify"}, &out, nil))
	assert.Contains(t, out.String(), "SUPABASE_URL, SUPABASE_ANON_KEY")
}

func TestReportStats(t *testing.T) {
	srv := backend()
	defer srv.Close()
	isolate(t, map[string]string{"SUPABASE_URL": srv.URL, "SUPABASE_SERVICE_KEY": "service"})

	var out bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"report-stats", "10", "5000", "3000"}, &out, srv.Client()))
	assert.Contains(t, out.String(), "Successfully reported stats")
	assert.Contains(t, out.String(), "interaction_count")

	out.Reset()
	assert.Equal(t, 1, run(context.Background(), []string{"report-stats", "10", "-1", "3"}, &out, srv.Client()))
	assert.Contains(t, out.String(), "non-negative")
}

func TestReportStatsNeedsServiceKey(t *testing.T) {
	isolate(t, map[string]string{"SUPABASE_URL": "https://abc.supabase.co"})
	var out bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"report-stats", "1", "2", "3"}, &out, nil))
	assert.Contains(t, out.String(), "SUPABASE_SERVICE_KEY")
}

func TestLeaderboardTable(t *testing.T) {
	srv := backend()
	defer srv.Close()
	isolate(t, map[string]string{"SUPABASE_URL": srv.URL, "SUPABASE_ANON_KEY": "anon"})

	var out bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"leaderboard", "-days", "30"}, &out, srv.Client()))
	text := out.String()
	assert.Contains(t, text, "last 30 days")
	assert.Contains(t, text, "ada")
	assert.Contains(t, text, "12.50")
	assert.Contains(t, text, "用户 2")
}

func TestLeaderboardMissingConfigShowsDiagnostic(t *testing.T) {
	isolate(t, nil)
	var out bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"leaderboard"}, &out, nil))
	assert.Contains(t, out.String(), "错误: ")
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "1000", formatScore(1000))
	assert.Equal(t, "7.50", formatScore(7.5))
}
