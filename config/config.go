// Package config loads vidchat settings.
//
// Values are layered, later sources winning:
//
//  1. Default()
//  2. an optional YAML file
//  3. a .env file, which only fills variables not already in the environment
//  4. VIDCHAT_* environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/vidchat/ai"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VIDCHAT_"

// Transcriber backends.
const (
	TranscriberGemini   = "gemini"
	TranscriberCaptions = "captions"
)

// Config holds application configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Storage struct {
		// Path of the badger directory. Empty keeps everything in memory.
		Path string `yaml:"path"`
		// PostgresDSN moves the vector index to postgres when set.
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"storage"`

	Providers struct {
		EmbeddingHost      string        `yaml:"embedding_host"`
		GenerationHost     string        `yaml:"generation_host"`
		EmbeddingModel     string        `yaml:"embedding_model"`
		GenerationModel    string        `yaml:"generation_model"`
		EmbeddingToken     string        `yaml:"embedding_token"`
		GenerationToken    string        `yaml:"generation_token"`
		Generator          string        `yaml:"generator"` // openai or gemini
		Transcriber        string        `yaml:"transcriber"`
		GeminiModel        string        `yaml:"gemini_model"`
		GeminiAPIKey       string        `yaml:"gemini_api_key"`
		ConcurrentRequests int           `yaml:"concurrent_requests"`
		RequestTimeout     time.Duration `yaml:"request_timeout"`
	} `yaml:"providers"`

	Ingestion struct {
		PoolSize     int `yaml:"pool_size"`
		ChunkTarget  int `yaml:"chunk_target"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"ingestion"`

	Chat struct {
		TopK             int     `yaml:"top_k"`
		MinSimilarity    float32 `yaml:"min_similarity"`
		HistoryWindow    int     `yaml:"history_window"`
		MinChunks        int     `yaml:"min_chunks"`
		ContextBudget    int     `yaml:"context_budget"`
		MaxAnswerTokens  int     `yaml:"max_answer_tokens"`
		GeneralKnowledge bool    `yaml:"general_knowledge"`
	} `yaml:"chat"`

	Summary struct {
		InputBudget int `yaml:"input_budget"`
		MaxTokens   int `yaml:"max_tokens"`
		Concurrency int `yaml:"concurrency"`
	} `yaml:"summary"`

	Events struct {
		RedisURL      string `yaml:"redis_url"`
		ChannelPrefix string `yaml:"channel_prefix"`
	} `yaml:"events"`
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{LogLevel: "info"}

	defaults := ai.DefaultConfig()
	cfg.Providers.EmbeddingHost = defaults.EmbeddingHost
	cfg.Providers.GenerationHost = defaults.GenerationHost
	cfg.Providers.EmbeddingModel = defaults.EmbeddingModel
	cfg.Providers.GenerationModel = defaults.GenerationModel
	cfg.Providers.EmbeddingToken = defaults.EmbeddingToken
	cfg.Providers.Generator = "openai"
	cfg.Providers.Transcriber = TranscriberCaptions
	cfg.Providers.GeminiModel = defaults.GeminiModel
	cfg.Providers.ConcurrentRequests = defaults.ConcurrentRequests
	cfg.Providers.RequestTimeout = defaults.RequestTimeout

	cfg.Ingestion.PoolSize = 4
	cfg.Ingestion.ChunkTarget = 250
	cfg.Ingestion.ChunkOverlap = 50

	cfg.Chat.TopK = 5
	cfg.Chat.MinSimilarity = 0.3
	cfg.Chat.HistoryWindow = 6
	cfg.Chat.MinChunks = 1
	cfg.Chat.ContextBudget = 3000
	cfg.Chat.MaxAnswerTokens = 512

	cfg.Summary.InputBudget = 24000
	cfg.Summary.MaxTokens = 1024
	cfg.Summary.Concurrency = 4

	cfg.Events.ChannelPrefix = "vidchat:jobs"
	return cfg
}

// Load reads configuration from path (optional) and the environment.
// envFiles default to ".env"; missing env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log level %q", c.LogLevel)
	}
	switch c.Providers.Generator {
	case "openai", "gemini":
	default:
		return fmt.Errorf("config: unknown generator %q", c.Providers.Generator)
	}
	switch c.Providers.Transcriber {
	case TranscriberGemini, TranscriberCaptions:
	default:
		return fmt.Errorf("config: unknown transcriber %q", c.Providers.Transcriber)
	}
	if c.Ingestion.PoolSize <= 0 {
		return errors.New("config: ingestion pool size must be positive")
	}
	if c.Ingestion.ChunkTarget <= 0 || c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkTarget {
		return errors.New("config: chunk overlap must be smaller than a positive chunk target")
	}
	if c.Chat.TopK <= 0 || c.Chat.ContextBudget <= 0 || c.Chat.MaxAnswerTokens <= 0 {
		return errors.New("config: chat top k, context budget and max answer tokens must be positive")
	}
	if c.Chat.MinSimilarity < -1 || c.Chat.MinSimilarity > 1 {
		return fmt.Errorf("config: min similarity %v out of range", c.Chat.MinSimilarity)
	}
	if c.Summary.InputBudget <= 0 || c.Summary.MaxTokens <= 0 || c.Summary.Concurrency <= 0 {
		return errors.New("config: summary budget, max tokens and concurrency must be positive")
	}
	return c.AI().Validate()
}

// AI returns the provider configuration.
func (c *Config) AI() *ai.Config {
	p := c.Providers
	return ai.NewConfig(
		ai.WithEmbeddingHost(p.EmbeddingHost),
		ai.WithGenerationHost(p.GenerationHost),
		ai.WithEmbeddingModel(p.EmbeddingModel),
		ai.WithGenerationModel(p.GenerationModel),
		ai.WithEmbeddingToken(p.EmbeddingToken),
		ai.WithGenerationToken(p.GenerationToken),
		ai.WithGemini(p.GeminiModel, p.GeminiAPIKey),
		ai.WithConcurrentRequests(p.ConcurrentRequests),
		ai.WithRequestTimeout(p.RequestTimeout),
	)
}
