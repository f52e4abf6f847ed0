package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for porthole.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Relays  RelaysConfig  `mapstructure:"relays"  yaml:"relays"`
	Preview PreviewConfig `mapstructure:"preview" yaml:"preview"`
	Export  ExportConfig  `mapstructure:"export"  yaml:"export"`
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig controls the local web app.
type ServerConfig struct {
	Host            string        `mapstructure:"host"             yaml:"host"`
	Port            int           `mapstructure:"port"             yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// FetcherConfig controls outbound page retrieval.
type FetcherConfig struct {
	Mode            string        `mapstructure:"mode"              yaml:"mode"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout"   yaml:"attempt_timeout"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// RelaysConfig controls the ordered relay chain.
type RelaysConfig struct {
	Endpoints     []RelayEndpoint `mapstructure:"endpoints"      yaml:"endpoints"`
	HealthCheck   bool            `mapstructure:"health_check"   yaml:"health_check"`
	HealthTarget  string          `mapstructure:"health_target"  yaml:"health_target"`
	HealthTimeout time.Duration   `mapstructure:"health_timeout" yaml:"health_timeout"`
}

// RelayEndpoint is one relay: a name and the URL prefix the
// percent-encoded target is appended to.
type RelayEndpoint struct {
	Name   string `mapstructure:"name"   yaml:"name"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// PreviewConfig controls preview processing.
type PreviewConfig struct {
	Sanitize bool `mapstructure:"sanitize" yaml:"sanitize"`
	Summary  bool `mapstructure:"summary"  yaml:"summary"`
}

// ExportConfig controls saved page files.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ArchiveConfig controls fetch-history persistence.
type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"          yaml:"enabled"`
	Type            string `mapstructure:"type"             yaml:"type"`
	OutputPath      string `mapstructure:"output_path"      yaml:"output_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8750,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Fetcher: FetcherConfig{
			Mode:            "relay",
			AttemptTimeout:  20 * time.Second,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
		},
		Relays: RelaysConfig{
			Endpoints: []RelayEndpoint{
				{Name: "allorigins", Prefix: "https://api.allorigins.win/raw?url="},
				{Name: "corsproxy", Prefix: "https://corsproxy.io/?url="},
				{Name: "codetabs", Prefix: "https://api.codetabs.com/v1/proxy?quest="},
			},
			HealthCheck:   true,
			HealthTarget:  "https://example.com",
			HealthTimeout: 10 * time.Second,
		},
		Preview: PreviewConfig{
			Sanitize: false,
			Summary:  true,
		},
		Export: ExportConfig{
			Dir: "./exports",
		},
		Archive: ArchiveConfig{
			Enabled:         false,
			Type:            "jsonl",
			OutputPath:      "./history",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "porthole",
			MongoCollection: "fetches",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
