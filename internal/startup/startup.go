package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"hashdrop/internal/digest"
	"hashdrop/internal/logging"
	"hashdrop/internal/rules"
	"hashdrop/internal/signature"
	"hashdrop/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool
	DatabaseDir     string
	RulesDir        string

	// Pipeline
	HashWorkers         int
	DefaultAlgorithms   []digest.Algorithm
	SkipHidden          bool
	FollowSymlinks      bool
	MaxDepth            int
	ChannelBuffer       int
	SniffLargeFileLimit int64
	MaxScanSize         int64

	// APITokenHash is a bcrypt hash; empty disables token checks
	APITokenHash string

	// Derived paths
	DatabasePath string

	// Feature flags based on directory availability
	RulesEnabled bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	port := getEnv("HASHDROP_PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	databaseDir := getEnv("DATABASE_DIR", "./data")
	rulesDir := getEnv("RULES_DIR", "./rules")
	algorithmList := getEnv("DEFAULT_ALGORITHMS", "sha256")
	skipHidden := getEnvBool("SKIP_HIDDEN", true)
	followSymlinks := getEnvBool("FOLLOW_SYMLINKS", true)
	maxDepth := getEnvInt("MAX_DEPTH", 64)
	channelBuffer := getEnvInt("CHANNEL_BUFFER", 256)
	sniffLimit := getEnvInt64("SNIFF_LARGE_FILE_LIMIT", signature.LargeFileLimit())
	maxScanSize := getEnvInt64("MAX_SCAN_SIZE", rules.DefaultMaxScanSize)
	tokenHash := strings.TrimSpace(os.Getenv("API_TOKEN_HASH"))
	hashWorkers := workers.ForCPU(0)

	logging.Info("  HASHDROP_PORT:          %s", port)
	logging.Info("  METRICS_PORT:           %s", metricsPort)
	logging.Info("  METRICS_ENABLED:        %v", metricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:      %v", logHealthChecks)
	logging.Info("  DATABASE_DIR:           %s", databaseDir)
	logging.Info("  RULES_DIR:              %s", rulesDir)
	logging.Info("  HASH_WORKERS:           %d", hashWorkers)
	logging.Info("  DEFAULT_ALGORITHMS:     %s", algorithmList)
	logging.Info("  SKIP_HIDDEN:            %v", skipHidden)
	logging.Info("  FOLLOW_SYMLINKS:        %v", followSymlinks)
	logging.Info("  MAX_DEPTH:              %d", maxDepth)
	logging.Info("  CHANNEL_BUFFER:         %d", channelBuffer)
	logging.Info("  SNIFF_LARGE_FILE_LIMIT: %d", sniffLimit)
	logging.Info("  MAX_SCAN_SIZE:          %d", maxScanSize)
	logging.Info("  API_TOKEN_HASH:         %s", setString(tokenHash != ""))
	logging.Info("  LOG_LEVEL:              %s", logging.GetLevel())

	algorithms, err := digest.ParseList(algorithmList)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_ALGORITHMS: %w", err)
	}
	if channelBuffer == 0 {
		logging.Warn("  CHANNEL_BUFFER must be positive, using default: 256")
		channelBuffer = 256
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	rulesDir, err = filepath.Abs(rulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rules directory path: %w", err)
	}
	logging.Info("  Rules directory (absolute): %s", rulesDir)

	config := &Config{
		Port:                port,
		MetricsPort:         metricsPort,
		MetricsEnabled:      metricsEnabled,
		LogHealthChecks:     logHealthChecks,
		DatabaseDir:         databaseDir,
		RulesDir:            rulesDir,
		HashWorkers:         hashWorkers,
		DefaultAlgorithms:   algorithms,
		SkipHidden:          skipHidden,
		FollowSymlinks:      followSymlinks,
		MaxDepth:            maxDepth,
		ChannelBuffer:       channelBuffer,
		SniffLargeFileLimit: sniffLimit,
		MaxScanSize:         maxScanSize,
		APITokenHash:        tokenHash,
		DatabasePath:        filepath.Join(databaseDir, "history.db"),
	}

	// Ensure base database directory exists (required for batch history)
	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	// Rules directory (optional)
	if err := ensureDirectory(rulesDir, "rules"); err != nil {
		logging.Warn("  Rules directory issue: %v", err)
		logging.Warn("  Content scanning will be disabled")
	} else {
		config.RulesEnabled = true
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Batch history:   ENABLED (required)")
	logging.Info("    Content scan:    %s", enabledString(config.RulesEnabled))
	logging.Info("    Metrics:         %s", enabledString(config.MetricsEnabled))
	logging.Info("    API token:       %s", enabledString(config.APITokenHash != ""))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func setString(set bool) string {
	if set {
		return "(set)"
	}
	return "(not set)"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogRulesInit logs the outcome of the initial rule compile.
func LogRulesInit(enabled bool, diags rules.Diagnostics) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CONTENT RULES")
	logging.Info("------------------------------------------------------------")

	if !enabled {
		logging.Warn("  Content scanning disabled (rules directory unavailable)")
		return
	}

	for _, d := range diags {
		logging.Info("  %s", d)
	}
	switch {
	case diags.HasErrors():
		logging.Warn("  Rules loaded with %d errors", diags.Count(rules.LevelError))
	case len(diags) == 0:
		logging.Info("  No rule sources found")
	default:
		logging.Info("  [OK] Rules loaded")
	}
}

// LogPipelineInit logs the digest pool configuration
func LogPipelineInit(workers int, algorithms []digest.Algorithm) {
	labels := make([]string, len(algorithms))
	for i, a := range algorithms {
		labels[i] = a.Label()
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("PIPELINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Digest workers:     %d", workers)
	logging.Info("  Default algorithms: %s", strings.Join(labels, ", "))
	logging.Info("  [OK] Coordinator started")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		// Sort group keys
		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		// Print routes by group
		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	// Remove leading slash
	path = strings.TrimPrefix(path, "/")

	// Get first segment
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	// Special handling for API routes
	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	AuthEnabled     bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	logging.Info("    Events:        http://0.0.0.0:%s/api/events", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	}
	if config.AuthEnabled {
		logging.Info("  API token:       REQUIRED for /api")
	} else {
		logging.Info("  API token:       not configured, /api is open")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __               __         __
   / /_  ____ ______/ /_   ____/ /________  ____
  / __ \/ __ ` + "`" + `/ ___/ __ \ / __  / ___/ __ \/ __ \
 / / / / /_/ (__  ) / / // /_/ / /  / /_/ / /_/ /
/_/ /_/\__,_/____/_/ /_/ \__,_/_/   \____/ .___/
                                        /_/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "rules" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
