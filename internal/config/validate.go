package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must be >= 0")
	}

	if cfg.Fetcher.Mode != "relay" && cfg.Fetcher.Mode != "direct" && cfg.Fetcher.Mode != "browser" {
		return fmt.Errorf("fetcher.mode must be 'relay', 'direct' or 'browser', got %q", cfg.Fetcher.Mode)
	}
	if cfg.Fetcher.AttemptTimeout <= 0 {
		return fmt.Errorf("fetcher.attempt_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	seen := make(map[string]bool, len(cfg.Relays.Endpoints))
	for _, ep := range cfg.Relays.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("relay endpoint with prefix %q has no name", ep.Prefix)
		}
		if seen[ep.Name] {
			return fmt.Errorf("duplicate relay name %q", ep.Name)
		}
		seen[ep.Name] = true

		u, err := url.Parse(ep.Prefix)
		if err != nil {
			return fmt.Errorf("relay %q has invalid prefix %q: %w", ep.Name, ep.Prefix, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("relay %q prefix must be http or https, got %q", ep.Name, ep.Prefix)
		}
		if u.Host == "" {
			return fmt.Errorf("relay %q prefix %q has no host", ep.Name, ep.Prefix)
		}
	}

	validArchiveTypes := map[string]bool{
		"jsonl": true, "html": true, "mongo": true,
	}
	if cfg.Archive.Enabled {
		// A comma list like "jsonl,mongo" selects several backends.
		needsPath, needsMongo := false, false
		for _, part := range strings.Split(cfg.Archive.Type, ",") {
			part = strings.TrimSpace(part)
			if !validArchiveTypes[part] {
				return fmt.Errorf("archive.type %q is not supported (valid: jsonl, html, mongo)", part)
			}
			if part == "mongo" {
				needsMongo = true
			} else {
				needsPath = true
			}
		}
		if needsPath && cfg.Archive.OutputPath == "" {
			return fmt.Errorf("archive.output_path is required for %s archives", cfg.Archive.Type)
		}
		if needsMongo && cfg.Archive.MongoURI == "" {
			return fmt.Errorf("archive.mongo_uri is required for mongo archives")
		}
	}

	if cfg.Export.Dir == "" {
		return fmt.Errorf("export.dir must not be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}
