// v0
// internal/stats/stats.go
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/josecookai/clawdmetrics/internal/supabase"
)

// ProcedureName is the database procedure that upserts today's totals.
const ProcedureName = "upsert_daily_stats"

// Usage is one batch of usage counters to add to today's row.
type Usage struct {
	InteractionCount int64 `json:"interaction_count"`
	InputTokens      int64 `json:"input_tokens"`
	OutputTokens     int64 `json:"output_tokens"`
}

// Validate rejects negative counters.
func (u Usage) Validate() error {
	if u.InteractionCount < 0 || u.InputTokens < 0 || u.OutputTokens < 0 {
		return errors.New("all values must be non-negative integers")
	}
	return nil
}

// ParseUsage reads the three counters from command-line arguments.
func ParseUsage(args []string) (Usage, error) {
	if len(args) != 3 {
		return Usage{}, fmt.Errorf("expected <interaction_count> <input_tokens> <output_tokens>, got %d arguments", len(args))
	}
	var vals [3]int64
	for i, a := range args {
		n, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return Usage{}, fmt.Errorf("invalid argument %q: all arguments must be integers", a)
		}
		vals[i] = n
	}
	u := Usage{InteractionCount: vals[0], InputTokens: vals[1], OutputTokens: vals[2]}
	return u, u.Validate()
}

// Caller is the part of the backend client the reporter needs.
type Caller interface {
	RPC(ctx context.Context, name string, params any) (json.RawMessage, error)
}

// ReportError is a rejected report. Hint is empty for statuses without
// a known cause.
type ReportError struct {
	Status int
	Text   string
	Hint   string
	Err    error
}

func (e *ReportError) Error() string { return e.Text }

func (e *ReportError) Unwrap() error { return e.Err }

// Report sends u and returns the procedure's result document.
func Report(ctx context.Context, c Caller, u Usage) (json.RawMessage, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	result, err := c.RPC(ctx, ProcedureName, u)
	if err == nil {
		return result, nil
	}

	var re *supabase.RemoteError
	if !errors.As(err, &re) || re.Status == 0 {
		return nil, &ReportError{Text: "Network error: " + err.Error(), Err: err}
	}
	return nil, &ReportError{
		Status: re.Status,
		Text:   statusText(re),
		Hint:   statusHint(re.Status),
		Err:    err,
	}
}

func statusText(re *supabase.RemoteError) string {
	msg := fmt.Sprintf("HTTP %d", re.Status)
	switch {
	case re.Message == "":
		return msg
	case re.Hint != "" && re.Message == re.Hint:
		return msg + " - Hint: " + re.Hint
	default:
		return msg + ": " + truncate(re.Message, 200)
	}
}

func statusHint(status int) string {
	switch status {
	case http.StatusNotFound:
		return "The RPC function '" + ProcedureName + "' may not exist. Please create it in your Supabase database."
	case http.StatusUnauthorized:
		return "Check that SUPABASE_SERVICE_KEY is correct."
	case http.StatusForbidden:
		return "The service role key may not have permission to call this function."
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Summary flattens the result document into key/value lines. An array
// result shows its first element.
func Summary(result json.RawMessage) [][2]string {
	var v any
	if len(result) == 0 || json.Unmarshal(result, &v) != nil {
		return [][2]string{{"Result", string(result)}}
	}
	if arr, ok := v.([]any); ok && len(arr) > 0 {
		v = arr[0]
	}
	obj, ok := v.(map[string]any)
	if !ok {
		b, _ := json.Marshal(v)
		return [][2]string{{"Result", string(b)}}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		switch val := obj[k].(type) {
		case string:
			out = append(out, [2]string{k, val})
		default:
			b, _ := json.Marshal(val)
			out = append(out, [2]string{k, string(b)})
		}
	}
	return out
}
