// Package config loads and validates Veracite configuration.
//
// Precedence, lowest to highest:
//  1. Built-in defaults
//  2. Config file (.veracite.yaml in the corpus root)
//  3. Environment variables (VERACITE_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the per-corpus configuration file name.
const ConfigFileName = ".veracite.yaml"

// DataDirName is the directory holding the index, lock and log files.
const DataDirName = ".veracite"

// Config represents the complete Veracite configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Paths      PathsConfig      `yaml:"paths"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	LLM        LLMConfig        `yaml:"llm"`
	Grounding  GroundingConfig  `yaml:"grounding"`
	Watch      WatchConfig      `yaml:"watch"`
	Server     ServerConfig     `yaml:"server"`
}

// PathsConfig configures corpus and data locations.
type PathsConfig struct {
	// CorpusDir is the directory containing the document corpus.
	CorpusDir string `yaml:"corpus_dir"`
	// DataDir is where the index, lock and log files live.
	// Defaults to <corpus_dir>/.veracite.
	DataDir string `yaml:"data_dir"`
}

// ChunkingConfig configures the document chunker.
type ChunkingConfig struct {
	// WindowSize is the target chunk size in characters.
	WindowSize int `yaml:"window_size"`
	// Overlap is the character overlap between consecutive chunks.
	Overlap int `yaml:"overlap"`
	// MinChunkChars drops chunks at or below this trimmed length.
	MinChunkChars int `yaml:"min_chunk_chars"`
}

// SearchConfig configures similarity search.
type SearchConfig struct {
	// SimilarityThreshold discards results at or below this cosine value.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// MaxResults caps the number of chunk-level results per query.
	MaxResults int `yaml:"max_results"`
	// MaxExcerpts caps excerpts per consolidated document.
	MaxExcerpts int `yaml:"max_excerpts"`
	// ANNCutoff is the per-scope corpus size above which the HNSW
	// shortlist is consulted instead of brute-force scanning.
	ANNCutoff int `yaml:"ann_cutoff"`
	// ANNOverfetch multiplies MaxResults when shortlisting so that exact
	// rescoring rarely misses an above-threshold neighbor.
	ANNOverfetch int `yaml:"ann_overfetch"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the backend: "openai" (any OpenAI-compatible
	// /v1/embeddings endpoint) or "static" (offline hash embedder).
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	// APIKeyEnv names the environment variable holding the bearer token.
	APIKeyEnv string `yaml:"api_key_env"`
	// RequestDelay is the fixed pause between successive embedding calls.
	RequestDelay string `yaml:"request_delay"`
	// RateLimitBackoff is the fixed wait before the single retry after a 429.
	RateLimitBackoff string `yaml:"rate_limit_backoff"`
	Timeout          string `yaml:"timeout"`
	// CacheSize is the query-embedding LRU capacity.
	CacheSize int `yaml:"cache_size"`
}

// LLMConfig configures the answer-drafting LLM provider.
type LLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	Timeout   string `yaml:"timeout"`
	// MaxContextChunks caps how many retrieved chunks go into the prompt.
	MaxContextChunks int `yaml:"max_context_chunks"`
}

// GroundingConfig configures the citation grounder.
type GroundingConfig struct {
	// MinSentenceChars drops candidate sentences shorter than this.
	MinSentenceChars int `yaml:"min_sentence_chars"`
	// AcceptThreshold is the minimum relevance score to keep a sentence.
	AcceptThreshold float64 `yaml:"accept_threshold"`
	// MaxSentences caps grounded sentences per document.
	MaxSentences int `yaml:"max_sentences"`
}

// WatchConfig configures the corpus file watcher.
type WatchConfig struct {
	// Debounce coalesces rapid file events within this window.
	Debounce string `yaml:"debounce"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport"`
	LogLevel  string `yaml:"log_level"`
}

// NewConfig creates a Config with built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Chunking: ChunkingConfig{
			WindowSize:    1000,
			Overlap:       200,
			MinChunkChars: 50,
		},
		Search: SearchConfig{
			SimilarityThreshold: 0.7,
			MaxResults:          10,
			MaxExcerpts:         3,
			ANNCutoff:           2048,
			ANNOverfetch:        4,
		},
		Embeddings: EmbeddingsConfig{
			Provider:         "openai",
			BaseURL:          "https://api.openai.com/v1",
			Model:            "text-embedding-3-small",
			Dimensions:       1536,
			APIKeyEnv:        "OPENAI_API_KEY",
			RequestDelay:     "100ms",
			RateLimitBackoff: "2s",
			Timeout:          "30s",
			CacheSize:        1000,
		},
		LLM: LLMConfig{
			BaseURL:          "https://api.openai.com/v1",
			Model:            "gpt-4o-mini",
			APIKeyEnv:        "OPENAI_API_KEY",
			Timeout:          "60s",
			MaxContextChunks: 10,
		},
		Grounding: GroundingConfig{
			MinSentenceChars: 30,
			AcceptThreshold:  0.6,
			MaxSentences:     3,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// Load reads configuration for the given corpus root.
// A missing config file is not an error; defaults apply.
func Load(root string) (*Config, error) {
	cfg := NewConfig()
	cfg.Paths.CorpusDir = root

	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Paths.CorpusDir == "" {
		cfg.Paths.CorpusDir = root
	}
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = filepath.Join(cfg.Paths.CorpusDir, DataDirName)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the corpus root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(root, ConfigFileName), data, 0o644)
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Chunking.WindowSize <= 0 {
		return fmt.Errorf("chunking.window_size must be positive, got %d", c.Chunking.WindowSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.WindowSize {
		return fmt.Errorf("chunking.overlap must be in [0, window_size), got %d", c.Chunking.Overlap)
	}
	if c.Search.SimilarityThreshold < -1 || c.Search.SimilarityThreshold > 1 {
		return fmt.Errorf("search.similarity_threshold must be in [-1, 1], got %f", c.Search.SimilarityThreshold)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Embeddings.Dimensions <= 0 && c.Embeddings.Provider != "static" {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Grounding.AcceptThreshold < 0 {
		return fmt.Errorf("grounding.accept_threshold must be non-negative, got %f", c.Grounding.AcceptThreshold)
	}
	return nil
}

// RequestDelay parses the embedding inter-call delay.
func (c *EmbeddingsConfig) RequestDelayDuration() time.Duration {
	return parseDuration(c.RequestDelay, 100*time.Millisecond)
}

// RateLimitBackoffDuration parses the rate-limit retry backoff.
func (c *EmbeddingsConfig) RateLimitBackoffDuration() time.Duration {
	return parseDuration(c.RateLimitBackoff, 2*time.Second)
}

// TimeoutDuration parses the per-request embedding timeout.
func (c *EmbeddingsConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// TimeoutDuration parses the per-request LLM timeout.
func (c *LLMConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 60*time.Second)
}

// DebounceDuration parses the watch debounce window.
func (c *WatchConfig) DebounceDuration() time.Duration {
	return parseDuration(c.Debounce, 500*time.Millisecond)
}

// applyEnvOverrides applies VERACITE_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VERACITE_CORPUS_DIR"); v != "" {
		cfg.Paths.CorpusDir = v
	}
	if v := os.Getenv("VERACITE_DATA_DIR"); v != "" {
		cfg.Paths.DataDir = v
	}
	if v := os.Getenv("VERACITE_EMBED_BASE_URL"); v != "" {
		cfg.Embeddings.BaseURL = v
	}
	if v := os.Getenv("VERACITE_EMBED_MODEL"); v != "" {
		cfg.Embeddings.Model = v
	}
	if v := os.Getenv("VERACITE_EMBED_PROVIDER"); v != "" {
		cfg.Embeddings.Provider = v
	}
	if v := os.Getenv("VERACITE_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("VERACITE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("VERACITE_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("VERACITE_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
}

// parseDuration parses a duration string, falling back on empty or invalid input.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
