// v0
// internal/fetch/fetch_test.go
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josecookai/clawdmetrics/internal/supabase"
)

type stubCaller struct {
	rpcCalls    int
	invokeCalls int
	lastName    string
	lastBody    any
	raw         json.RawMessage
	err         error
}

func (s *stubCaller) RPC(_ context.Context, name string, body any) (json.RawMessage, error) {
	s.rpcCalls++
	s.lastName, s.lastBody = name, body
	return s.raw, s.err
}

func (s *stubCaller) Invoke(_ context.Context, name string, body any) (json.RawMessage, error) {
	s.invokeCalls++
	s.lastName, s.lastBody = name, body
	return s.raw, s.err
}

func TestNew_SelectsByTransport(t *testing.T) {
	t.Parallel()

	c := &stubCaller{}
	for _, tc := range []struct {
		in   string
		want supabase.Transport
	}{
		{"", supabase.TransportRPC},
		{"rpc", supabase.TransportRPC},
		{"function", supabase.TransportFunction},
	} {
		f, err := New(tc.in, c)
		require.NoError(t, err)
		assert.Equal(t, tc.want, f.Transport())
	}

	_, err := New("grpc", c)
	assert.Error(t, err)
}

func TestRPCFetcher_OneCallWithDaysAgo(t *testing.T) {
	t.Parallel()

	c := &stubCaller{raw: json.RawMessage(`[]`)}
	raw, err := NewRPCFetcher(c).Fetch(context.Background(), 7)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
	assert.Equal(t, 1, c.rpcCalls)
	assert.Zero(t, c.invokeCalls)
	assert.Equal(t, "get_leaderboard", c.lastName)

	body, err := json.Marshal(c.lastBody)
	require.NoError(t, err)
	assert.JSONEq(t, `{"days_ago":7}`, string(body))
}

func TestRPCFetcher_PassesDaysAgoUnchecked(t *testing.T) {
	t.Parallel()

	c := &stubCaller{}
	_, err := NewRPCFetcher(c).Fetch(context.Background(), -3)
	require.NoError(t, err)
	body, _ := json.Marshal(c.lastBody)
	assert.JSONEq(t, `{"days_ago":-3}`, string(body))
}

func TestFetchers_FailureHasNoPayload(t *testing.T) {
	t.Parallel()

	remoteErr := &supabase.RemoteError{Message: "permission denied"}
	for _, f := range []Fetcher{
		NewRPCFetcher(&stubCaller{raw: json.RawMessage(`[1]`), err: remoteErr}),
		NewFunctionFetcher(&stubCaller{raw: json.RawMessage(`[1]`), err: remoteErr}),
	} {
		raw, err := f.Fetch(context.Background(), 7)
		assert.Nil(t, raw)
		var re *supabase.RemoteError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "permission denied", re.Message)
	}
}

func TestFunctionFetcher_InvokesEndpoint(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/functions/v1/get_leaderboard", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"days_ago":30}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"leaderboard":[]}`))
	}))
	defer srv.Close()

	f, err := New("function", supabase.NewClient(srv.URL, "anon", srv.Client()))
	require.NoError(t, err)
	raw, err := f.Fetch(context.Background(), 30)
	require.NoError(t, err)
	assert.JSONEq(t, `{"leaderboard":[]}`, string(raw))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestRPCFetcher_NoRetryOnFailure(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"upstream unavailable"}`))
	}))
	defer srv.Close()

	f := NewRPCFetcher(supabase.NewClient(srv.URL, "anon", srv.Client()))
	_, err := f.Fetch(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
