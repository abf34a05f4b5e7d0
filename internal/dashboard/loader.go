// v0
// internal/dashboard/loader.go
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/josecookai/clawdmetrics/internal/diagnose"
	"github.com/josecookai/clawdmetrics/internal/fetch"
	"github.com/josecookai/clawdmetrics/internal/leaderboard"
	"github.com/josecookai/clawdmetrics/internal/metrics"
	"github.com/josecookai/clawdmetrics/internal/supabase"
)

// View is the outcome of one dashboard load. Exactly one of three states
// holds: Entries is non-empty, Error is set, or Empty is true.
type View struct {
	Entries   []leaderboard.Entry
	Error     string
	Empty     bool
	Kind      diagnose.Kind
	DaysAgo   int
	Transport supabase.Transport
	LoadedAt  time.Time
}

// Loader runs the fetch, normalize and classify pipeline behind every
// dashboard request.
type Loader struct {
	fetcher    fetch.Fetcher
	classifier *diagnose.Classifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewLoader wires a loader. A nil classifier renders Simplified Chinese; a
// nil metrics records nothing.
func NewLoader(f fetch.Fetcher, c *diagnose.Classifier, m *metrics.Metrics, logger *slog.Logger) *Loader {
	if c == nil {
		c = diagnose.New("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: f, classifier: c, metrics: m, logger: logger, now: time.Now}
}

// Transport reports the transport the loader fetches through.
func (l *Loader) Transport() supabase.Transport { return l.fetcher.Transport() }

// Load performs one fetch and never returns an error: every failure ends
// up as the single message in View.Error.
func (l *Loader) Load(ctx context.Context, daysAgo int) View {
	transport := l.fetcher.Transport()
	view := View{DaysAgo: daysAgo, Transport: transport, LoadedAt: l.now().UTC()}

	start := time.Now()
	raw, err := l.fetcher.Fetch(ctx, daysAgo)
	l.metrics.ObserveFetch(string(transport), time.Since(start), err)
	if err != nil {
		return l.fail(view, err, slog.String("stage", "fetch"))
	}

	shape := leaderboard.DetectShape(raw)
	entries, err := leaderboard.Normalize(raw)
	if err != nil {
		return l.fail(view, err,
			slog.String("stage", "normalize"),
			slog.String("raw", string(raw)),
		)
	}

	l.metrics.ObserveEntries(len(entries))
	l.logger.Info("leaderboard_loaded",
		slog.String("transport", string(transport)),
		slog.Int("days_ago", daysAgo),
		slog.String("shape", shape.String()),
		slog.Int("entry_count", len(entries)),
	)

	if len(entries) == 0 {
		view.Empty = true
		return view
	}
	view.Entries = entries
	return view
}

func (l *Loader) fail(view View, err error, attrs ...slog.Attr) View {
	d := l.classifier.Classify(err, view.Transport)
	l.metrics.IncDiagnostic(d.Kind.String())

	args := []any{
		slog.String("transport", string(view.Transport)),
		slog.Int("days_ago", view.DaysAgo),
		slog.String("kind", d.Kind.String()),
		slog.Any("err", err),
	}
	for _, a := range attrs {
		args = append(args, a)
	}
	l.logger.Error("leaderboard_load_failed", args...)

	view.Error = d.Message
	view.Kind = d.Kind
	return view
}
