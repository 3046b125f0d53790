package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultPath is read when Load is given no path.
const DefaultPath = "config.yaml"

// EnvPrefix prefixes environment overrides. Nested keys use "__", e.g.
// DAGVIEW_SERVER__PORT.
const EnvPrefix = "DAGVIEW_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Source    SourceConfig    `koanf:"source"`
	Viewer    ViewerConfig    `koanf:"viewer"`
	Terminal  TerminalConfig  `koanf:"terminal"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"` // non-streaming API routes only
}

type StorageConfig struct {
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// SourceConfig controls how the event log is watched for changes.
type SourceConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"` // 0 disables polling
	Watch        bool          `koanf:"watch"`         // fsnotify on the database file
}

// ViewerConfig describes the browser viewport.
type ViewerConfig struct {
	Name    string `koanf:"name"` // shown in the page title as "DAG - <name>"
	Width   int    `koanf:"width"`
	Height  int    `koanf:"height"`
	Layout  string `koanf:"layout"`
	Overlay bool   `koanf:"overlay"` // pointer-blocking layer above the graph
}

// TerminalConfig is the viewport size, in cells, of the watch command.
type TerminalConfig struct {
	Width  int `koanf:"width"`
	Height int `koanf:"height"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

var defaults = map[string]any{
	"server.port":            8080,
	"server.request_timeout": "30s",
	"storage.sqlite.path":    "dagview.db",
	"source.poll_interval":   "2s",
	"source.watch":           true,
	"viewer.name":            "dagview",
	"viewer.width":           425,
	"viewer.height":          500,
	"viewer.layout":          "dagre",
	"viewer.overlay":         true,
	"terminal.width":         100,
	"terminal.height":        40,
	"telemetry.service_name": "dagview",
}

// Load reads path (DefaultPath when empty), then DAGVIEW_ environment
// variables, then fills in defaults for anything still unset.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = DefaultPath
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Storage.SQLite.Path = substituteEnvVars(cfg.Storage.SQLite.Path)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
