// v2
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrMissingConnection reports that the service URL or the access key is
// absent. The function server treats it as fatal; the dashboard only logs it.
var ErrMissingConnection = errors.New("Missing Supabase environment variables")

// Transport names accepted for the leaderboard fetcher.
const (
	TransportRPC      = "rpc"
	TransportFunction = "function"
)

// Leaderboard sources served by the function endpoint.
const (
	SourceMock     = "mock"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Mock payload shapes.
const (
	MockShapeRows     = "rows"
	MockShapeEnvelope = "envelope"
)

// Config captures all runtime settings shared by the dashboard, the
// function endpoint and the operator CLI. Values come from defaults, an
// optional properties file and finally environment variables.
type Config struct {
	// SupabaseURL is the base URL of the backend project.
	SupabaseURL string
	// AnonKey is the public access key sent with every request.
	AnonKey string
	// ServiceKey is only needed to report usage statistics.
	ServiceKey string
	// Transport selects how the leaderboard is fetched: rpc or function.
	Transport string
	// DaysAgo is the default lookback window sent to get_leaderboard.
	DaysAgo int
	// Locale selects the language of diagnostic messages.
	Locale string

	// ListenAddress is the dashboard HTTP address.
	ListenAddress string
	// FunctionListenAddress is the get_leaderboard endpoint address.
	FunctionListenAddress string
	// LogFilePath is the absolute or relative path to the log file.
	LogFilePath string
	// HTTPReadTimeout bounds the time to read incoming requests.
	HTTPReadTimeout time.Duration
	// HTTPWriteTimeout bounds the time to write responses.
	HTTPWriteTimeout time.Duration
	// ShutdownTimeout limits graceful shutdown attempts.
	ShutdownTimeout time.Duration
	// PropertiesPath records the path used to load property values.
	PropertiesPath string

	// LeaderboardSource picks the rows served by the function endpoint.
	LeaderboardSource string
	// MockShape picks between the bare array and the enveloped mock payload.
	MockShape string
	// MockFixture optionally points at a YAML file replacing the mock rows.
	MockFixture string
	// DatabaseURL is the Postgres DSN or SQLite path for database sources.
	DatabaseURL string
	// LeaderboardLimit caps the rows returned by database sources.
	LeaderboardLimit int
	// ExpectedProjectRef is compared with the ref claim of the access key.
	ExpectedProjectRef string
}

const (
	defaultTransport        = TransportRPC
	defaultDaysAgo          = 7
	defaultLocale           = "zh-Hans"
	defaultListenAddress    = ":8090"
	defaultFunctionAddress  = ":8091"
	defaultLogFile          = "logs/clawdmetrics.log"
	defaultReadTimeout      = 5 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultShutdown         = 5 * time.Second
	defaultPropsPath        = "clawdmetrics.properties"
	defaultSource           = SourceMock
	defaultMockShape        = MockShapeRows
	defaultLeaderboardLimit = 100
)

// Load resolves configuration by layering defaults, an optional
// properties file, and finally environment variables. The properties
// file location can be overridden with CLAWDMETRICS_PROPERTIES_PATH.
// Missing connection values are not an error here; callers decide.
func Load() (Config, error) {
	cfg := Defaults()

	propsPath := strings.TrimSpace(os.Getenv("CLAWDMETRICS_PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Defaults returns the configuration used when nothing else is provided.
func Defaults() Config {
	return Config{
		Transport:             defaultTransport,
		DaysAgo:               defaultDaysAgo,
		Locale:                defaultLocale,
		ListenAddress:         defaultListenAddress,
		FunctionListenAddress: defaultFunctionAddress,
		LogFilePath:           filepath.Clean(defaultLogFile),
		HTTPReadTimeout:       defaultReadTimeout,
		HTTPWriteTimeout:      defaultWriteTimeout,
		ShutdownTimeout:       defaultShutdown,
		LeaderboardSource:     defaultSource,
		MockShape:             defaultMockShape,
		LeaderboardLimit:      defaultLeaderboardLimit,
	}
}

// MissingConnection lists the names of the connection values that are
// absent, in a stable order. An empty slice means both are configured.
func (c Config) MissingConnection() []string {
	var missing []string
	if strings.TrimSpace(c.SupabaseURL) == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if strings.TrimSpace(c.AnonKey) == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	return missing
}

// RequireConnection returns ErrMissingConnection wrapped with the absent
// names when the service URL or access key is not configured.
func (c Config) RequireConnection() error {
	missing := c.MissingConnection()
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingConnection, strings.Join(missing, ", "))
}

func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		// Close errors are ignored because configuration loading has
		// already completed and there is no logger available at this
		// stage of initialization.
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	switch key {
	case "supabase_url":
		cfg.SupabaseURL = strings.TrimRight(value, "/")
	case "supabase_anon_key":
		cfg.AnonKey = value
	case "supabase_service_key":
		cfg.ServiceKey = value
	case "transport":
		t, err := parseTransport(value)
		if err != nil {
			return err
		}
		cfg.Transport = t
	case "days_ago":
		n, err := parseNonNegative(value)
		if err != nil {
			return err
		}
		cfg.DaysAgo = n
	case "locale":
		if value == "" {
			return errors.New("locale cannot be empty")
		}
		cfg.Locale = value
	case "listen_address":
		if value == "" {
			return errors.New("listen_address cannot be empty")
		}
		cfg.ListenAddress = value
	case "function_listen_address":
		if value == "" {
			return errors.New("function_listen_address cannot be empty")
		}
		cfg.FunctionListenAddress = value
	case "log_path":
		if value == "" {
			return errors.New("log_path cannot be empty")
		}
		cfg.LogFilePath = filepath.Clean(value)
	case "http_read_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPReadTimeout = d
	case "http_write_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPWriteTimeout = d
	case "shutdown_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.ShutdownTimeout = d
	case "leaderboard_source":
		s, err := parseSource(value)
		if err != nil {
			return err
		}
		cfg.LeaderboardSource = s
	case "mock_shape":
		s, err := parseMockShape(value)
		if err != nil {
			return err
		}
		cfg.MockShape = s
	case "mock_fixture":
		cfg.MockFixture = value
	case "database_url":
		cfg.DatabaseURL = value
	case "leaderboard_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid leaderboard_limit: %w", err)
		}
		if n <= 0 {
			return errors.New("leaderboard_limit must be positive")
		}
		cfg.LeaderboardLimit = n
	case "expected_project_ref":
		cfg.ExpectedProjectRef = value
	default:
		// Unknown keys are ignored to keep the loader forward-compatible.
	}
	return nil
}

// envKeys maps each property to the environment variables that override
// it, first match wins.
var envKeys = []struct {
	property string
	names    []string
}{
	{"supabase_url", []string{"SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"}},
	{"supabase_anon_key", []string{"SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"}},
	{"supabase_service_key", []string{"SUPABASE_SERVICE_KEY"}},
	{"transport", []string{"CLAWDMETRICS_TRANSPORT"}},
	{"days_ago", []string{"CLAWDMETRICS_DAYS_AGO"}},
	{"locale", []string{"CLAWDMETRICS_LOCALE"}},
	{"listen_address", []string{"CLAWDMETRICS_LISTEN_ADDRESS"}},
	{"function_listen_address", []string{"CLAWDMETRICS_FUNCTION_LISTEN_ADDRESS"}},
	{"log_path", []string{"CLAWDMETRICS_LOG_PATH"}},
	{"http_read_timeout_ms", []string{"CLAWDMETRICS_HTTP_READ_TIMEOUT_MS"}},
	{"http_write_timeout_ms", []string{"CLAWDMETRICS_HTTP_WRITE_TIMEOUT_MS"}},
	{"shutdown_timeout_ms", []string{"CLAWDMETRICS_SHUTDOWN_TIMEOUT_MS"}},
	{"leaderboard_source", []string{"CLAWDMETRICS_LEADERBOARD_SOURCE"}},
	{"mock_shape", []string{"CLAWDMETRICS_MOCK_SHAPE"}},
	{"mock_fixture", []string{"CLAWDMETRICS_MOCK_FIXTURE"}},
	{"database_url", []string{"DATABASE_URL"}},
	{"leaderboard_limit", []string{"CLAWDMETRICS_LEADERBOARD_LIMIT"}},
	{"expected_project_ref", []string{"CLAWDMETRICS_PROJECT_REF"}},
}

func applyEnv(cfg *Config) error {
	for _, entry := range envKeys {
		for _, name := range entry.names {
			v, ok := lookupEnvTrimmed(name)
			if !ok {
				continue
			}
			if err := setProperty(cfg, entry.property, v); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			break
		}
	}
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func parseTransport(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case TransportRPC:
		return TransportRPC, nil
	case TransportFunction, "functions":
		return TransportFunction, nil
	default:
		return "", fmt.Errorf("unsupported transport %q (use rpc|function)", v)
	}
}

func parseSource(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case SourceMock:
		return SourceMock, nil
	case SourcePostgres, "postgresql":
		return SourcePostgres, nil
	case SourceSQLite:
		return SourceSQLite, nil
	default:
		return "", fmt.Errorf("unsupported leaderboard source %q (use mock|postgres|sqlite)", v)
	}
}

func parseMockShape(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case MockShapeRows:
		return MockShapeRows, nil
	case MockShapeEnvelope:
		return MockShapeEnvelope, nil
	default:
		return "", fmt.Errorf("unsupported mock shape %q (use rows|envelope)", v)
	}
}

func parseNonNegative(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return 0, errors.New("value must not be negative")
	}
	return n, nil
}

func parsePositiveMillis(v string) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errors.New("value cannot be empty")
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if ms <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return time.Duration(ms) * time.Millisecond, nil
}
