// Package config loads factgraph configuration from the environment with an
// optional YAML file underneath, and sets up structured logging.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"` // "root" or "database"

	// LLM extraction
	LLMProvider  string        `yaml:"llm_provider"` // "ollama", "openai", "anthropic"
	LLMModel     string        `yaml:"llm_model"`
	LLMTimeout   time.Duration `yaml:"llm_timeout"`
	OllamaHost   string        `yaml:"ollama_host"`
	OpenAIKey    string        `yaml:"openai_api_key"`
	AnthropicKey string        `yaml:"anthropic_api_key"`

	// Embeddings
	EmbedProvider  string        `yaml:"embed_provider"`
	EmbedModel     string        `yaml:"embed_model"`
	EmbedDimension int           `yaml:"embed_dimension"`
	EmbedTimeout   time.Duration `yaml:"embed_timeout"`

	// Job queue / worker
	MaxAttempts      int           `yaml:"max_attempts"`
	BackoffBase      time.Duration `yaml:"backoff_base"`
	BackoffCap       time.Duration `yaml:"backoff_cap"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	ClaimTimeout     time.Duration `yaml:"claim_timeout"`
	WorkerCount      int           `yaml:"worker_count"`
	MinExtractLength int           `yaml:"min_extract_length"`

	// Content windowing
	WindowSize    int `yaml:"window_size"`
	WindowOverlap int `yaml:"window_overlap"`

	// Entity resolution
	MatchThreshold float64 `yaml:"match_threshold"`
	ReviewMargin   float64 `yaml:"review_margin"`

	// Retrieval
	SearchLimit   int           `yaml:"search_limit"`
	GraphBudget   int           `yaml:"graph_budget"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
	ExpandTimeout time.Duration `yaml:"expand_timeout"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "factgraph",
		SurrealDBDatabase:  "events",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		LLMProvider: "ollama",
		LLMModel:    "llama3.1",
		LLMTimeout:  120 * time.Second,
		OllamaHost:  "http://localhost:11434",

		EmbedProvider:  "ollama",
		EmbedModel:     "all-minilm:l6-v2",
		EmbedDimension: 384,
		EmbedTimeout:   30 * time.Second,

		MaxAttempts:      3,
		BackoffBase:      5 * time.Second,
		BackoffCap:       5 * time.Minute,
		PollInterval:     2 * time.Second,
		ClaimTimeout:     10 * time.Second,
		WorkerCount:      1,
		MinExtractLength: 40,

		WindowSize:    4000,
		WindowOverlap: 400,

		MatchThreshold: 0.85,
		ReviewMargin:   0.10,

		SearchLimit:   10,
		GraphBudget:   20,
		SearchTimeout: 15 * time.Second,
		ExpandTimeout: 5 * time.Second,

		LogFile:  "/tmp/factgraph.log",
		LogLevel: slog.LevelInfo,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// FACTGRAPH_CONFIG (if set and readable), then environment overrides.
func Load() Config {
	cfg := Defaults()

	if path := os.Getenv("FACTGRAPH_CONFIG"); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			slog.Warn("config file not loaded", "path", path, "error", err)
		}
	}

	applyEnv(&cfg)
	return cfg
}

// loadFile overlays YAML values onto cfg.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setStr(&cfg.SurrealDBURL, "SURREALDB_URL")
	setStr(&cfg.SurrealDBNamespace, "SURREALDB_NAMESPACE")
	setStr(&cfg.SurrealDBDatabase, "SURREALDB_DATABASE")
	setStr(&cfg.SurrealDBUser, "SURREALDB_USER")
	setStr(&cfg.SurrealDBPass, "SURREALDB_PASS")
	setStr(&cfg.SurrealDBAuthLevel, "SURREALDB_AUTH_LEVEL")

	setStr(&cfg.LLMProvider, "FACTGRAPH_LLM_PROVIDER")
	setStr(&cfg.LLMModel, "FACTGRAPH_LLM_MODEL")
	setDur(&cfg.LLMTimeout, "FACTGRAPH_LLM_TIMEOUT")
	setStr(&cfg.OllamaHost, "OLLAMA_HOST")
	setStr(&cfg.OpenAIKey, "OPENAI_API_KEY")
	setStr(&cfg.AnthropicKey, "ANTHROPIC_API_KEY")

	setStr(&cfg.EmbedProvider, "FACTGRAPH_EMBED_PROVIDER")
	setStr(&cfg.EmbedModel, "FACTGRAPH_EMBED_MODEL")
	setInt(&cfg.EmbedDimension, "FACTGRAPH_EMBED_DIMENSION")
	setDur(&cfg.EmbedTimeout, "FACTGRAPH_EMBED_TIMEOUT")

	setInt(&cfg.MaxAttempts, "FACTGRAPH_MAX_ATTEMPTS")
	setDur(&cfg.BackoffBase, "FACTGRAPH_BACKOFF_BASE")
	setDur(&cfg.BackoffCap, "FACTGRAPH_BACKOFF_CAP")
	setDur(&cfg.PollInterval, "FACTGRAPH_POLL_INTERVAL")
	setDur(&cfg.ClaimTimeout, "FACTGRAPH_CLAIM_TIMEOUT")
	setInt(&cfg.WorkerCount, "FACTGRAPH_WORKERS")
	setInt(&cfg.MinExtractLength, "FACTGRAPH_MIN_EXTRACT_LENGTH")

	setInt(&cfg.WindowSize, "FACTGRAPH_WINDOW_SIZE")
	setInt(&cfg.WindowOverlap, "FACTGRAPH_WINDOW_OVERLAP")

	setFloat(&cfg.MatchThreshold, "FACTGRAPH_MATCH_THRESHOLD")
	setFloat(&cfg.ReviewMargin, "FACTGRAPH_REVIEW_MARGIN")

	setInt(&cfg.SearchLimit, "FACTGRAPH_SEARCH_LIMIT")
	setInt(&cfg.GraphBudget, "FACTGRAPH_GRAPH_BUDGET")
	setDur(&cfg.SearchTimeout, "FACTGRAPH_SEARCH_TIMEOUT")
	setDur(&cfg.ExpandTimeout, "FACTGRAPH_EXPAND_TIMEOUT")

	setStr(&cfg.LogFile, "FACTGRAPH_LOG_FILE")
	if v := os.Getenv("FACTGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDur(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
