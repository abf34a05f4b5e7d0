// v0
// internal/http/page.go
package httpserver

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/josecookai/clawdmetrics/internal/dashboard"
)

const (
	chartLabelWidth = 160
	chartBarWidth   = 560
	chartRowHeight  = 36
)

const dashboardHTML = `<!DOCTYPE html>
<html lang="zh-Hans">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>ClawdMetrics Dashboard</title>
    <style>
        body { background: #000; color: #fff; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; margin: 0; padding: 2rem; }
        .container { max-width: 80rem; margin: 0 auto; }
        h1 { font-size: 2.25rem; font-weight: 700; }
        h2 { font-size: 1.5rem; font-weight: 600; margin-bottom: 1rem; }
        .windows a { color: #9ca3af; margin-right: 1rem; text-decoration: none; }
        .windows a.selected { color: #60a5fa; font-weight: 600; }
        .panel { background: #111827; border-radius: 0.5rem; padding: 1.5rem; margin-bottom: 2rem; }
        .error { background: rgba(127, 29, 29, 0.2); border: 1px solid #ef4444; border-radius: 0.5rem; padding: 1rem; color: #f87171; }
        .empty { text-align: center; padding: 3rem 0; color: #9ca3af; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 0.5rem; border-bottom: 1px solid #1f2937; color: #d1d5db; }
        th { color: #fff; }
        svg text { fill: #d1d5db; font-size: 14px; }
        svg rect { fill: #3b82f6; }
    </style>
</head>
<body>
<main class="container">
    <h1>ClawdMetrics Dashboard</h1>
    <nav class="windows">
        {{range .Windows}}<a href="/?window={{.Name}}"{{if .Selected}} class="selected"{{end}}>{{.Name}}</a>{{end}}
    </nav>
    {{if eq .State "error"}}
    <div class="error"><p>错误: {{.Error}}</p></div>
    {{else if eq .State "empty"}}
    <div class="empty"><p>暂无数据</p></div>
    {{else}}
    <section class="panel">
        <h2>排行榜图表</h2>
        <svg width="{{.ChartWidth}}" height="{{.ChartHeight}}" role="img" aria-label="排行榜图表">
            {{range .Bars}}
            <text x="0" y="{{.TextY}}">{{.Label}}</text>
            <rect x="{{.X}}" y="{{.Y}}" width="{{.Width}}" height="24" rx="3"></rect>
            <text x="{{.ValueX}}" y="{{.TextY}}">{{.Score}}</text>
            {{end}}
        </svg>
    </section>
    <section class="panel">
        <h2>排行榜详情</h2>
        <table>
            <thead><tr><th>排名</th><th>名称</th><th>分数</th></tr></thead>
            <tbody>
            {{range .Rows}}<tr data-key="{{.Key}}"><td>{{.Rank}}</td><td>{{.Name}}</td><td>{{.Score}}</td></tr>
            {{end}}
            </tbody>
        </table>
    </section>
    {{end}}
</main>
</body>
</html>
`

var dashboardTemplate = template.Must(template.New("dashboard").Parse(dashboardHTML))

type pageWindow struct {
	Name     string
	Selected bool
}

type pageBar struct {
	Label  string
	Score  string
	X      int
	Y      int
	Width  int
	TextY  int
	ValueX int
}

type pageRow struct {
	Key   string
	Rank  int
	Name  string
	Score string
}

type pageData struct {
	State       string
	Error       string
	Windows     []pageWindow
	Bars        []pageBar
	Rows        []pageRow
	ChartWidth  int
	ChartHeight int
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func buildPage(view dashboard.View, windows windowResolver, selected Window) pageData {
	data := pageData{
		State:       string(view.State()),
		Error:       view.Error,
		ChartWidth:  chartLabelWidth + chartBarWidth + 80,
		ChartHeight: chartRowHeight * len(view.Entries),
	}
	for _, w := range windows.order {
		data.Windows = append(data.Windows, pageWindow{Name: w.Name, Selected: w.Name == selected.Name})
	}
	for i, b := range view.Bars() {
		width := int(b.Ratio * chartBarWidth)
		y := i * chartRowHeight
		data.Bars = append(data.Bars, pageBar{
			Label:  b.Label,
			Score:  formatScore(b.Score),
			X:      chartLabelWidth,
			Y:      y + 4,
			Width:  width,
			TextY:  y + 21,
			ValueX: chartLabelWidth + width + 8,
		})
	}
	for _, r := range view.Rows() {
		data.Rows = append(data.Rows, pageRow{Key: r.Key, Rank: r.Rank, Name: r.Name, Score: formatScore(r.Score)})
	}
	return data
}

// pageHandler renders the dashboard for one load. The page is rendered
// into a buffer first so a template failure never leaves half a document.
func pageHandler(logger *slog.Logger, loader leaderboardLoader, windows windowResolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		window, _ := windows.resolve(r.URL.Query().Get("window"))
		view := loader.Load(r.Context(), window.Days)

		var buf bytes.Buffer
		if err := dashboardTemplate.Execute(&buf, buildPage(view, windows, window)); err != nil {
			logger.Error("dashboard_render_failed",
				slog.String("request_id", RequestID(r.Context())),
				slog.Any("err", err),
			)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			logger.Error("write_response_failed", slog.Any("err", err))
		}
	})
}
