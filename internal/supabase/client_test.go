// v0
// internal/supabase/client_test.go
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/josecookai/clawdmetrics/internal/config"
)

func TestRPCSendsParamsAndKeys(t *testing.T) {
	var gotPath, gotKey, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"A"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "anon", srv.Client())
	raw, err := c.RPC(context.Background(), "get_leaderboard", map[string]int{"days_ago": 7})
	if err != nil {
		t.Fatalf("rpc: %v", err)
	}
	if string(raw) != `[{"name":"A"}]` {
		t.Fatalf("unexpected body %s", raw)
	}
	if gotPath != "/rest/v1/rpc/get_leaderboard" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "anon" || gotAuth != "Bearer anon" {
		t.Fatalf("unexpected auth headers %q %q", gotKey, gotAuth)
	}
	if gotBody != `{"days_ago":7}` {
		t.Fatalf("unexpected request body %q", gotBody)
	}
}

func TestRPCEmptyBodyIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	raw, err := NewClient(srv.URL, "anon", nil).RPC(context.Background(), "get_leaderboard", nil)
	if err != nil {
		t.Fatalf("rpc: %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil payload, got %s", raw)
	}
}

func TestRPCParsesPostgrestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"42883","details":null,"hint":"No function matches.","message":"function public.get_leaderboard(days_ago => integer) does not exist"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "anon", nil).RPC(context.Background(), "get_leaderboard", nil)
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Status != http.StatusNotFound || re.Code != "42883" || re.Hint != "No function matches." {
		t.Fatalf("unexpected error fields %+v", re)
	}
	if re.Message != "function public.get_leaderboard(days_ago => integer) does not exist" {
		t.Fatalf("unexpected message %q", re.Message)
	}
	if re.Details != "" {
		t.Fatalf("null details should be empty, got %q", re.Details)
	}
	if re.Transport != TransportRPC {
		t.Fatalf("unexpected transport %q", re.Transport)
	}
}

func TestRPCNonJSONErrorFallsBackToBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "anon", nil).RPC(context.Background(), "get_leaderboard", nil)
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Message != "upstream exploded" {
		t.Fatalf("unexpected message %q", re.Message)
	}
}

func TestInvokeStatusErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
		details string
	}{
		{"not deployed", http.StatusNotFound, `{"code":"NOT_FOUND","message":"Requested function was not found"}`, "Function not found (404)", "Requested function was not found"},
		{"handler failure", http.StatusBadRequest, `{"error":"boom","details":"stack"}`, "Edge Function returned a non-2xx status code", "boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/functions/v1/get_leaderboard" {
					t.Errorf("unexpected path %q", r.URL.Path)
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "anon", nil).Invoke(context.Background(), "get_leaderboard", nil)
			var re *RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("expected RemoteError, got %v", err)
			}
			if re.Message != tc.message || re.Details != tc.details || re.Status != tc.status {
				t.Fatalf("unexpected error %+v", re)
			}
		})
	}
}

func TestNetworkErrorsArePhrasedPerTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(base, "anon", nil)
	_, err := c.RPC(context.Background(), "get_leaderboard", nil)
	var re *RemoteError
	if !errors.As(err, &re) || re.Transport != TransportRPC {
		t.Fatalf("expected rpc RemoteError, got %v", err)
	}
	if got := re.Message; len(got) < len("fetch failed") || got[:len("fetch failed")] != "fetch failed" {
		t.Fatalf("unexpected rpc message %q", got)
	}

	_, err = c.Invoke(context.Background(), "get_leaderboard", nil)
	if !errors.As(err, &re) || re.Transport != TransportFunction {
		t.Fatalf("expected function RemoteError, got %v", err)
	}
	const prefix = "Failed to send a request to the Edge Function"
	if got := re.Message; len(got) < len(prefix) || got[:len(prefix)] != prefix {
		t.Fatalf("unexpected function message %q", got)
	}
}

func TestMissingConnectionSurfacesOnRequest(t *testing.T) {
	_, err := NewClient("", "", nil).RPC(context.Background(), "get_leaderboard", nil)
	if !errors.Is(err, config.ErrMissingConnection) {
		t.Fatalf("expected ErrMissingConnection, got %v", err)
	}
}

func TestSelectEncodesQueryAndWithKey(t *testing.T) {
	var gotQuery url.Values
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/rest/v1/_realtime" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotQuery = r.URL.Query()
		gotKey = r.Header.Get("apikey")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon", nil).WithKey("service")
	raw, err := c.Select(context.Background(), "_realtime", url.Values{"select": {"*"}, "limit": {"0"}})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil || len(rows) != 0 {
		t.Fatalf("unexpected rows %s (%v)", raw, err)
	}
	if gotQuery.Get("limit") != "0" || gotQuery.Get("select") != "*" {
		t.Fatalf("unexpected query %v", gotQuery)
	}
	if gotKey != "service" {
		t.Fatalf("expected service key, got %q", gotKey)
	}
}
