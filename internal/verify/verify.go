// v0
// internal/verify/verify.go
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/josecookai/clawdmetrics/internal/config"
	"github.com/josecookai/clawdmetrics/internal/fetch"
	"github.com/josecookai/clawdmetrics/internal/leaderboard"
	"github.com/josecookai/clawdmetrics/internal/supabase"
)

var (
	projectURLPattern = regexp.MustCompile(`^https://[a-z0-9-]+\.supabase\.co$`)
	keyShapePattern   = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)
)

// Status is the outcome of one check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
	Skip
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	default:
		return "skip"
	}
}

// Check is one line of the verification report.
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Report collects the checks in the order they ran.
type Report struct {
	Checks  []Check
	Key     *KeyInfo
	Payload json.RawMessage
}

// OK reports whether no check failed. Warnings do not count.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if c.Status == Fail {
			return false
		}
	}
	return true
}

func (r *Report) add(name string, status Status, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, Status: status, Detail: detail})
}

// KeyInfo is what the unverified access key payload says about itself.
type KeyInfo struct {
	Issuer string
	Ref    string
	Role   string
	// Expected is empty when no project ref was configured to compare with.
	Expected   string
	RefMatches bool
}

// ValidURL reports whether raw looks like a hosted project URL.
func ValidURL(raw string) bool {
	return projectURLPattern.MatchString(raw)
}

// LooksLikeJWT reports whether key has three base64url segments.
func LooksLikeJWT(key string) bool {
	return keyShapePattern.MatchString(key)
}

// InspectKey decodes the key payload without checking its signature.
func InspectKey(key, expectedRef string) (KeyInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return KeyInfo{}, fmt.Errorf("decode key payload: %w", err)
	}
	info := KeyInfo{
		Issuer:   claimString(claims, "iss"),
		Ref:      claimString(claims, "ref"),
		Role:     claimString(claims, "role"),
		Expected: expectedRef,
	}
	info.RefMatches = expectedRef != "" && info.Ref == expectedRef
	return info, nil
}

func claimString(claims jwt.MapClaims, name string) string {
	v, ok := claims[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Prober is the part of the backend client the probes need.
type Prober interface {
	Select(ctx context.Context, table string, query url.Values) (json.RawMessage, error)
	Invoke(ctx context.Context, name string, body any) (json.RawMessage, error)
}

// Check names, in run order.
const (
	CheckEnvironment = "environment"
	CheckURL         = "url_format"
	CheckKey         = "key_format"
	CheckKeyRef      = "key_project_ref"
	CheckConnection  = "connection"
	CheckFunction    = "function"
)

// Run verifies cfg and, when the environment is complete, probes the
// backend through p. Missing connection values stop the run early.
func Run(ctx context.Context, cfg config.Config, p Prober) Report {
	var r Report

	if missing := cfg.MissingConnection(); len(missing) > 0 {
		r.add(CheckEnvironment, Fail, "missing "+strings.Join(missing, ", "))
		return r
	}
	r.add(CheckEnvironment, Pass, "SUPABASE_URL and SUPABASE_ANON_KEY set")

	if ValidURL(cfg.SupabaseURL) {
		r.add(CheckURL, Pass, cfg.SupabaseURL)
	} else {
		r.add(CheckURL, Fail, "unexpected project URL "+cfg.SupabaseURL)
	}

	checkKey(&r, cfg.AnonKey, cfg.ExpectedProjectRef)

	if !probeConnection(ctx, &r, p) {
		return r
	}
	probeFunction(ctx, &r, p)
	return r
}

func checkKey(r *Report, key, expectedRef string) {
	if !LooksLikeJWT(key) {
		r.add(CheckKey, Fail, "access key is not a JWT")
		return
	}
	info, err := InspectKey(key, expectedRef)
	if err != nil {
		r.add(CheckKey, Warn, err.Error())
		return
	}
	r.Key = &info
	r.add(CheckKey, Pass, fmt.Sprintf("iss=%s ref=%s role=%s", info.Issuer, info.Ref, info.Role))

	switch {
	case expectedRef == "":
		r.add(CheckKeyRef, Skip, "no expected project ref configured")
	case info.RefMatches:
		r.add(CheckKeyRef, Pass, "project ref matches "+expectedRef)
	default:
		r.add(CheckKeyRef, Warn, fmt.Sprintf("project ref %q does not match %q", info.Ref, expectedRef))
	}
}

// probeConnection returns false when the backend could not be reached at
// all, in which case the function probe is pointless.
func probeConnection(ctx context.Context, r *Report, p Prober) bool {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("limit", "0")

	_, err := p.Select(ctx, "_realtime", query)
	if err == nil {
		r.add(CheckConnection, Pass, "connected")
		return true
	}

	var re *supabase.RemoteError
	if !errors.As(err, &re) || re.Status == 0 {
		r.add(CheckConnection, Fail, err.Error())
		return false
	}
	if missingRelation(re) {
		r.add(CheckConnection, Pass, "connected (probe table absent: "+re.Message+")")
		return true
	}
	r.add(CheckConnection, Warn, re.Message)
	return true
}

// missingRelation matches the errors a reachable backend returns for a
// table that does not exist.
func missingRelation(re *supabase.RemoteError) bool {
	return re.Code == "PGRST116" ||
		strings.Contains(re.Message, "relation") ||
		strings.Contains(re.Message, "does not exist")
}

func probeFunction(ctx context.Context, r *Report, p Prober) {
	payload, err := p.Invoke(ctx, fetch.ProcedureName, nil)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "Function not found") || strings.Contains(msg, "404") {
			r.add(CheckFunction, Warn, "get_leaderboard is not deployed")
			return
		}
		r.add(CheckFunction, Warn, msg)
		return
	}
	r.Payload = payload

	entries, err := leaderboard.Normalize(payload)
	if err != nil {
		r.add(CheckFunction, Warn, "deployed, but "+err.Error())
		return
	}
	r.add(CheckFunction, Pass, fmt.Sprintf("deployed, %d entries", len(entries)))
}
