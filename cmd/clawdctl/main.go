// v0
// cmd/clawdctl/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/josecookai/clawdmetrics/internal/config"
	"github.com/josecookai/clawdmetrics/internal/dashboard"
	"github.com/josecookai/clawdmetrics/internal/diagnose"
	"github.com/josecookai/clawdmetrics/internal/fetch"
	"github.com/josecookai/clawdmetrics/internal/logging"
	"github.com/josecookai/clawdmetrics/internal/stats"
	"github.com/josecookai/clawdmetrics/internal/supabase"
	"github.com/josecookai/clawdmetrics/internal/verify"
)

const requestTimeout = 30 * time.Second

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("240"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, http.DefaultClient)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render("clawdctl"))
	fmt.Fprintln(w, "  verify                                              check configuration and backend reachability")
	fmt.Fprintln(w, "  report-stats <interactions> <input> <output>        add today's usage counters")
	fmt.Fprintln(w, "  leaderboard [-days N]                               print the current leaderboard")
}

func run(ctx context.Context, args []string, out io.Writer, httpClient *http.Client) int {
	if len(args) == 0 {
		usage(out)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Bootstrap().Error("config_load_failed", slog.Any("err", err))
		return 1
	}

	switch args[0] {
	case "verify":
		return runVerify(ctx, cfg, out, httpClient)
	case "report-stats":
		return runReportStats(ctx, cfg, args[1:], out, httpClient)
	case "leaderboard":
		return runLeaderboard(ctx, cfg, args[1:], out, httpClient)
	case "help", "-h", "--help":
		usage(out)
		return 0
	default:
		fmt.Fprintln(out, failStyle.Render("unknown command "+args[0]))
		usage(out)
		return 1
	}
}

func runVerify(ctx context.Context, cfg config.Config, out io.Writer, httpClient *http.Client) int {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	fmt.Fprintln(out, titleStyle.Render("Verifying Supabase configuration"))
	client := supabase.NewClient(cfg.SupabaseURL, cfg.AnonKey, httpClient)
	report := verify.Run(ctx, cfg, client)

	for _, c := range report.Checks {
		fmt.Fprintf(out, "  %s %-16s %s\n", statusMark(c.Status), c.Name, c.Detail)
	}
	if report.Payload != nil {
		fmt.Fprintln(out, dimStyle.Render("  function payload: "+string(report.Payload)))
	}

	if !report.OK() {
		fmt.Fprintln(out, failStyle.Render("verification failed"))
		return 1
	}
	fmt.Fprintln(out, passStyle.Render("verification complete"))
	return 0
}

func statusMark(s verify.Status) string {
	switch s {
	case verify.Pass:
		return passStyle.Render("✓")
	case verify.Warn:
		return warnStyle.Render("!")
	case verify.Fail:
		return failStyle.Render("✗")
	default:
		return dimStyle.Render("-")
	}
}

func runReportStats(ctx context.Context, cfg config.Config, args []string, out io.Writer, httpClient *http.Client) int {
	usageCounts, err := stats.ParseUsage(args)
	if err != nil {
		fmt.Fprintln(out, failStyle.Render("Error: "+err.Error()))
		fmt.Fprintln(out, "Usage: clawdctl report-stats <interaction_count> <input_tokens> <output_tokens>")
		return 1
	}

	var missing []string
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if cfg.ServiceKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_KEY")
	}
	if len(missing) > 0 {
		fmt.Fprintln(out, failStyle.Render("Error: "+strings.Join(missing, ", ")+" environment variable is not set."))
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	fmt.Fprintln(out, titleStyle.Render("Reporting stats"))
	fmt.Fprintf(out, "  interactions %d  input tokens %d  output tokens %d\n",
		usageCounts.InteractionCount, usageCounts.InputTokens, usageCounts.OutputTokens)

	client := supabase.NewClient(cfg.SupabaseURL, cfg.ServiceKey, httpClient)
	result, err := stats.Report(ctx, client, usageCounts)
	if err != nil {
		fmt.Fprintln(out, failStyle.Render("Error reporting stats: "+err.Error()))
		var re *stats.ReportError
		if errors.As(err, &re) && re.Hint != "" {
			fmt.Fprintln(out, warnStyle.Render("  Hint: "+re.Hint))
		}
		return 1
	}

	fmt.Fprintln(out, passStyle.Render("Successfully reported stats"))
	for _, kv := range stats.Summary(result) {
		fmt.Fprintf(out, "  %s: %s\n", headerStyle.Render(kv[0]), kv[1])
	}
	return 0
}

func runLeaderboard(ctx context.Context, cfg config.Config, args []string, out io.Writer, httpClient *http.Client) int {
	fs := flag.NewFlagSet("leaderboard", flag.ContinueOnError)
	fs.SetOutput(out)
	days := fs.Int("days", cfg.DaysAgo, "lookback window in days")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *days < 0 {
		fmt.Fprintln(out, failStyle.Render("Error: -days must be non-negative"))
		return 1
	}

	client := supabase.NewClient(cfg.SupabaseURL, cfg.AnonKey, httpClient)
	fetcher, err := fetch.New(cfg.Transport, client)
	if err != nil {
		fmt.Fprintln(out, failStyle.Render("Error: "+err.Error()))
		return 1
	}
	loader := dashboard.NewLoader(fetcher, diagnose.New(cfg.Locale), nil, logging.Discard())

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	view := loader.Load(ctx, *days)

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Leaderboard (last %d days, %s)", view.DaysAgo, view.Transport)))
	switch view.State() {
	case dashboard.StateError:
		fmt.Fprintln(out, failStyle.Render("错误: "+view.Error))
		return 1
	case dashboard.StateEmpty:
		fmt.Fprintln(out, dimStyle.Render("暂无数据"))
		return 0
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-6s %-24s %12s", "排名", "名称", "分数")))
	for _, row := range view.Rows() {
		line := fmt.Sprintf("%-6d %-24s %12s", row.Rank, row.Name, formatScore(row.Score))
		fmt.Fprintln(out, rankStyle(row.Rank).Render(line))
	}
	return 0
}

func rankStyle(rank int) lipgloss.Style {
	switch rank {
	case 1:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	case 2:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	case 3:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	default:
		return lipgloss.NewStyle()
	}
}

func formatScore(score float64) string {
	if score == float64(int64(score)) {
		return fmt.Sprintf("%d", int64(score))
	}
	return fmt.Sprintf("%.2f", score)
}
