// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (SYNCBRAIN_* prefix, runtime override)
//  2. Config file (~/.syncbrain/config.yaml)
//  3. Default values
//
// Error handling uses sentinel errors so callers can check categories with
// errors.Is; validation wraps them with detail via fmt.Errorf("%w: ...").
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidEmbedderModel indicates the embedder model name is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidVectorProvider indicates an unsupported vector index provider.
	ErrInvalidVectorProvider = errors.New("invalid vector provider")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidPostgres indicates the PostgreSQL connection settings are invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidLimit indicates a retrieval or embedding limit is out of range.
	ErrInvalidLimit = errors.New("invalid limit")
)

// Vector index provider identifiers used in Config.Vector.Provider.
const (
	VectorPgvector = "pgvector"
	VectorQdrant   = "qdrant"
)

// DefaultEmbedderModel is the default Gemini embedder model. It supports
// truncation to 768 dimensions via OutputDimensionality; the pgvector schema
// uses 768 (see db/migrations).
const DefaultEmbedderModel = "gemini-embedding-001"

// Config stores application configuration.
type Config struct {
	// AI model configuration
	ModelName     string `mapstructure:"model_name"`     // generative model, e.g. "gemini-2.5-flash"
	EmbedderModel string `mapstructure:"embedder_model"` // embedding model

	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Search    SearchConfig    `mapstructure:"search"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Video     VideoConfig     `mapstructure:"video"`
	Server    ServerConfig    `mapstructure:"server"`
	Otel      OtelConfig      `mapstructure:"otel"`

	// PostgreSQL connection (record store, share links, pgvector index)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// EmbeddingConfig bounds the embedding input-size policy. The thresholds are
// configuration, not hidden constants: embeddings have an input-size ceiling,
// and naive truncation loses meaning for long documents, so texts over
// MaxDirectChars are summarized first with truncation as the safety net.
type EmbeddingConfig struct {
	// MaxDirectChars is the largest text embedded without summarization.
	MaxDirectChars int `mapstructure:"max_direct_chars"`

	// SummaryInputChars bounds the leading portion of the text handed to
	// the summarizer.
	SummaryInputChars int `mapstructure:"summary_input_chars"`
}

// SearchConfig tunes the two-stage retrieval narrowing. The index returns
// TopK nearest neighbors; after hydration the list is cut to KeepN because
// near-ties often turn out redundant once the full records are visible.
type SearchConfig struct {
	TopK         int `mapstructure:"top_k"`
	KeepN        int `mapstructure:"keep_n"`
	SnippetChars int `mapstructure:"snippet_chars"` // vector metadata snippet
	ExcerptChars int `mapstructure:"excerpt_chars"` // grounding context per record
}

// VectorConfig selects and configures the vector index provider.
type VectorConfig struct {
	Provider  string `mapstructure:"provider"` // "pgvector" (default) or "qdrant"
	Dimension int    `mapstructure:"dimension"`

	QdrantHost       string `mapstructure:"qdrant_host"`
	QdrantPort       int    `mapstructure:"qdrant_port"`
	QdrantCollection string `mapstructure:"qdrant_collection"`
	QdrantTLS        bool   `mapstructure:"qdrant_tls"`
}

// ScraperConfig tunes rendered and static page fetching.
type ScraperConfig struct {
	NavigationTimeoutMs int    `mapstructure:"navigation_timeout_ms"`
	Parallelism         int    `mapstructure:"parallelism"` // static-fetch collector only
	DelayMs             int    `mapstructure:"delay_ms"`
	BrowserPath         string `mapstructure:"browser_path"` // optional explicit browser binary
	UserAgent           string `mapstructure:"user_agent"`
}

// VideoConfig configures the video platform metadata API.
type VideoConfig struct {
	APIKey    string  `mapstructure:"api_key"`
	TimeoutMs int     `mapstructure:"timeout_ms"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second to the metadata API
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr      string  `mapstructure:"addr"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second per client
	RateBurst int     `mapstructure:"rate_burst"`
}

// OtelConfig enables OTLP trace export to a local agent. Tracing is disabled
// when AgentHost is empty.
type OtelConfig struct {
	AgentHost   string `mapstructure:"agent_host"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

// Load reads configuration from defaults, the optional config file, and
// environment variables, then resolves DATABASE_URL if set.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	home, err := os.UserHomeDir()
	if err == nil {
		v.AddConfigPath(filepath.Join(home, ".syncbrain"))
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SYNCBRAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; defaults plus env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("embedder_model", DefaultEmbedderModel)

	v.SetDefault("embedding.max_direct_chars", 6000)
	v.SetDefault("embedding.summary_input_chars", 24000)

	v.SetDefault("search.top_k", 5)
	v.SetDefault("search.keep_n", 2)
	v.SetDefault("search.snippet_chars", 100)
	v.SetDefault("search.excerpt_chars", 2000)

	v.SetDefault("vector.provider", VectorPgvector)
	v.SetDefault("vector.dimension", 768)
	v.SetDefault("vector.qdrant_host", "localhost")
	v.SetDefault("vector.qdrant_port", 6334)
	v.SetDefault("vector.qdrant_collection", "syncbrain_content")

	v.SetDefault("scraper.navigation_timeout_ms", 30000)
	v.SetDefault("scraper.parallelism", 2)
	v.SetDefault("scraper.delay_ms", 200)
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	v.SetDefault("video.timeout_ms", 15000)
	v.SetDefault("video.rate_limit", 5.0)

	v.SetDefault("server.addr", "127.0.0.1:3400")
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)

	v.SetDefault("otel.service_name", "syncbrain")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "syncbrain")
	v.SetDefault("postgres_db_name", "syncbrain")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// Validate checks the configuration ranges needed before serving.
func (c *Config) Validate() error {
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidEmbedderModel)
	}
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrMissingAPIKey)
	}

	switch c.Vector.Provider {
	case VectorPgvector, VectorQdrant:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)",
			ErrInvalidVectorProvider, c.Vector.Provider, VectorPgvector, VectorQdrant)
	}
	if c.Vector.Dimension <= 0 || c.Vector.Dimension > 4096 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, c.Vector.Dimension)
	}

	if c.Embedding.MaxDirectChars <= 0 {
		return fmt.Errorf("%w: embedding.max_direct_chars must be positive", ErrInvalidLimit)
	}
	if c.Embedding.SummaryInputChars < c.Embedding.MaxDirectChars {
		return fmt.Errorf("%w: embedding.summary_input_chars must be >= max_direct_chars", ErrInvalidLimit)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("%w: search.top_k must be positive", ErrInvalidLimit)
	}
	if c.Search.KeepN <= 0 || c.Search.KeepN > c.Search.TopK {
		return fmt.Errorf("%w: search.keep_n must be in [1, top_k]", ErrInvalidLimit)
	}

	if c.PostgresHost == "" || c.PostgresDBName == "" {
		return fmt.Errorf("%w: host and db name are required", ErrInvalidPostgres)
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidPostgres, c.PostgresPort)
	}

	return nil
}
