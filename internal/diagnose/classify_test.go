// v1
// internal/diagnose/classify_test.go
package diagnose

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/josecookai/clawdmetrics/internal/config"
	"github.com/josecookai/clawdmetrics/internal/leaderboard"
	"github.com/josecookai/clawdmetrics/internal/supabase"
)

func remote(msg string) error {
	return &supabase.RemoteError{Transport: supabase.TransportRPC, Message: msg}
}

func TestClassify_Table(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		kind Kind
		msg  string
	}{
		{"invalid key", remote("Invalid API key"), KindCredentials, "API 密钥无效。请检查 Vercel 环境变量中的 NEXT_PUBLIC_SUPABASE_ANON_KEY 是否正确配置。"},
		{"jwt", remote("JWT expired"), KindCredentials, ""},
		{"lowercase invalid", remote("invalid input syntax"), KindCredentials, ""},
		{"missing procedure", remote("function public.get_leaderboard(integer) does not exist"), KindMissingProcedure, "PostgreSQL 函数 \"get_leaderboard\" 未找到。请确保已在 Supabase 数据库中创建该函数。"},
		{"permission", remote("permission denied for function get_leaderboard"), KindPermission, "没有权限调用该函数。请检查数据库权限设置。"},
		{"denied only", remote("access denied"), KindPermission, ""},
		{"missing config", config.ErrMissingConnection, KindMissingConfig, "环境变量未配置。请在 Vercel 设置中添加 NEXT_PUBLIC_SUPABASE_URL 和 NEXT_PUBLIC_SUPABASE_ANON_KEY。"},
		{"undefined", errors.New("supabaseUrl is undefined"), KindMissingConfig, ""},
		{"function not found", remote("Function not found (404)"), KindMissingEndpoint, ""},
		{"status 404", remote("HTTP 404"), KindMissingEndpoint, ""},
		{"failed to send", remote("Failed to send a request to the Edge Function"), KindNetwork, ""},
		{"fetch", remote("fetch failed"), KindNetwork, ""},
		{"generic", remote("relation leaderboard has no rows"), KindGeneric, "数据库函数错误: relation leaderboard has no rows"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := Classify(tc.err, supabase.TransportRPC)
			assert.Equal(t, tc.kind, d.Kind)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, d.Message)
			}
			assert.NotEmpty(t, d.Message)
		})
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	t.Parallel()

	// Matches credentials, procedure and permission rules; credentials is first.
	d := Classify(remote("invalid: function x does not exist, permission denied"), supabase.TransportRPC)
	assert.Equal(t, KindCredentials, d.Kind)

	// Procedure needs both substrings.
	d = Classify(remote("function call does not return"), supabase.TransportRPC)
	assert.Equal(t, KindGeneric, d.Kind)

	d = Classify(remote("Missing rows after 404"), supabase.TransportRPC)
	assert.Equal(t, KindMissingConfig, d.Kind)
}

func TestClassify_CaseSensitive(t *testing.T) {
	t.Parallel()

	d := Classify(remote("INVALID API KEY"), supabase.TransportRPC)
	assert.Equal(t, KindGeneric, d.Kind)
	assert.Equal(t, "数据库函数错误: INVALID API KEY", d.Message)
}

func TestClassify_NilIsNone(t *testing.T) {
	t.Parallel()

	d := Classify(nil, supabase.TransportRPC)
	assert.Equal(t, KindNone, d.Kind)
	assert.Empty(t, d.Message)
}

func TestClassify_ShapeErrorBeforeTable(t *testing.T) {
	t.Parallel()

	_, err := leaderboard.Normalize([]byte(`{"error":"Invalid API key"}`))
	require.Error(t, err)

	d := Classify(fmt.Errorf("normalize: %w", err), supabase.TransportRPC)
	assert.Equal(t, KindUnexpectedShape, d.Kind)
	assert.Equal(t, "返回的数据格式不正确。期望格式: {leaderboard: [...]} 或 [...]", d.Message)
	assert.Equal(t, `{"error":"Invalid API key"}`, d.Raw)
}

func TestClassify_GenericWordingFollowsTransport(t *testing.T) {
	t.Parallel()

	err := &supabase.RemoteError{Transport: supabase.TransportFunction, Message: "boom"}
	assert.Equal(t, "Edge Function 错误: boom", Classify(err, supabase.TransportFunction).Message)
	assert.Equal(t, "数据库函数错误: boom", Classify(err, supabase.TransportRPC).Message)
}

func TestClassify_PlainErrorUsesErrorString(t *testing.T) {
	t.Parallel()

	d := Classify(errors.New("context deadline exceeded"), supabase.TransportRPC)
	assert.Equal(t, KindGeneric, d.Kind)
	assert.Equal(t, "context deadline exceeded", d.Raw)
}

func TestClassify_Deterministic(t *testing.T) {
	t.Parallel()

	err := remote("permission denied")
	first := Classify(err, supabase.TransportRPC)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(err, supabase.TransportRPC))
	}
}

func TestNew_Locales(t *testing.T) {
	t.Parallel()

	en := New("en-US")
	assert.Equal(t, language.English, en.Locale())
	d := en.Classify(remote("permission denied"), supabase.TransportRPC)
	assert.Equal(t, "Not allowed to call the function. Check the database permission settings.", d.Message)

	generic := en.Classify(remote("boom"), supabase.TransportFunction)
	assert.Equal(t, "Edge Function error: boom", generic.Message)

	for _, locale := range []string{"", "zh-Hans", "not a locale"} {
		c := New(locale)
		assert.Equal(t, language.SimplifiedChinese, c.Locale(), locale)
		assert.True(t, strings.HasPrefix(c.Classify(remote("x"), supabase.TransportRPC).Message, "数据库函数错误"), locale)
	}
}

// The function transport replaces non-404 backend messages, so a rejected
// key there reads as a generic function error while rpc keeps the text.
func TestClassify_RejectedKeyPerTransport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	}))
	defer srv.Close()
	client := supabase.NewClient(srv.URL, "bad", srv.Client())

	_, err := client.Invoke(context.Background(), "get_leaderboard", nil)
	require.Error(t, err)
	var re *supabase.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "Invalid API key", re.Details)

	d := Classify(err, supabase.TransportFunction)
	assert.Equal(t, KindGeneric, d.Kind)
	assert.Equal(t, "Edge Function returned a non-2xx status code", d.Raw)

	_, err = client.RPC(context.Background(), "get_leaderboard", nil)
	require.Error(t, err)
	assert.Equal(t, KindCredentials, Classify(err, supabase.TransportRPC).Kind)
}
