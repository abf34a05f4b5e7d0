// v2
// internal/http/api_config.go
package httpserver

import (
	"os"
	"strconv"
	"strings"
)

// Window is a named lookback period selectable with ?window=.
type Window struct {
	Name string
	Days int
}

// APIConfig captures HTTP layer environment toggles.
type APIConfig struct {
	// Windows lists the selectable lookback periods in display order.
	Windows []Window
}

const defaultWindowsRaw = "1d,7d,30d"

// LoadAPIConfig inspects environment variables dedicated to the HTTP
// surface. Missing or malformed values fall back to the defaults so the
// server can boot even in incomplete environments.
func LoadAPIConfig() APIConfig {
	windows := parseWindows(defaultWindowsRaw)
	if raw, ok := lookupEnvTrimmed("CLAWDMETRICS_WINDOWS"); ok {
		parsed := parseWindows(raw)
		if len(parsed) > 0 {
			windows = parsed
		}
	}
	return APIConfig{Windows: windows}
}

// parseWindows accepts "<n>d", "<n>h" (whole days only) and bare day
// counts. Invalid and duplicate entries are skipped.
func parseWindows(raw string) []Window {
	chunks := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(chunks))
	result := make([]Window, 0, len(chunks))
	for _, chunk := range chunks {
		name := strings.ToLower(strings.TrimSpace(chunk))
		if name == "" {
			continue
		}
		days, ok := windowDays(name)
		if !ok {
			continue
		}
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, Window{Name: name, Days: days})
	}
	return result
}

func windowDays(name string) (int, bool) {
	if strings.HasSuffix(name, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(name, "h"))
		if err != nil || hours <= 0 || hours%24 != 0 {
			return 0, false
		}
		return hours / 24, true
	}
	n, err := strconv.Atoi(strings.TrimSuffix(name, "d"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func lookupEnvTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}
