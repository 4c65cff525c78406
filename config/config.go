// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	// AnthropicKey authenticates language-model calls. Without it every
	// model call fails, so startup refuses to proceed.
	AnthropicKey string

	// Model is the language model used for chat and fact extraction.
	Model string

	// TavilyKey authenticates web-search calls. Optional: search requests
	// fail with a configuration error when unset.
	TavilyKey string

	// QdrantHost and QdrantPort locate the external vector store.
	// An explicitly empty QDRANT_URL selects the embedded store instead.
	QdrantHost string
	QdrantPort int
	UseQdrant  bool

	// DataDir is the directory holding chat transcript files.
	DataDir string

	// Port is the HTTP listen port.
	Port string
}

// FromEnv reads configuration from environment variables, loading a .env
// file first if one exists.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:        envOr("LLM_MODEL", "claude-sonnet-4-20250514"),
		TavilyKey:    os.Getenv("TAVILY_API_KEY"),
		DataDir:      envOr("MEMCHAT_DATA_DIR", "data"),
		Port:         envOr("PORT", "8080"),
	}

	if cfg.AnthropicKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
	}

	qdrantURL, set := os.LookupEnv("QDRANT_URL")
	if set && strings.TrimSpace(qdrantURL) == "" {
		// Explicitly disabled: run on the embedded store.
		cfg.UseQdrant = false
		return cfg, nil
	}
	if qdrantURL == "" {
		qdrantURL = "http://localhost:6334"
	}

	host, port, err := parseQdrantURL(qdrantURL)
	if err != nil {
		return nil, fmt.Errorf("invalid QDRANT_URL: %w", err)
	}
	cfg.QdrantHost = host
	cfg.QdrantPort = port
	cfg.UseQdrant = true
	return cfg, nil
}

// parseQdrantURL extracts host and gRPC port from a URL-ish value.
// Accepts "host", "host:port" and "scheme://host:port" forms.
func parseQdrantURL(raw string) (string, int, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, err
	}
	if u.Hostname() == "" {
		return "", 0, fmt.Errorf("missing host in %q", raw)
	}
	port := 6334
	if p := u.Port(); p != "" {
		if _, err := fmt.Sscanf(p, "%d", &port); err != nil {
			return "", 0, fmt.Errorf("invalid port in %q", raw)
		}
	}
	return u.Hostname(), port, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
