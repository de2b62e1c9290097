package config

import (
	"fmt"
	"strconv"
	"time"
)

// setter parses one environment value into a field.
type setter func(string) error

func str(field *string) setter {
	return func(v string) error {
		*field = v
		return nil
	}
}

func integer(field *int) setter {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field = n
		return nil
	}
}

func float(field *float32) setter {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return err
		}
		*field = float32(f)
		return nil
	}
}

func boolean(field *bool) setter {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field = b
		return nil
	}
}

func duration(field *time.Duration) setter {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field = d
		return nil
	}
}

func (c *Config) envSetters() map[string]setter {
	return map[string]setter{
		"LOG_LEVEL":            str(&c.LogLevel),
		"DB_PATH":              str(&c.Storage.Path),
		"POSTGRES_DSN":         str(&c.Storage.PostgresDSN),
		"EMBEDDING_HOST":       str(&c.Providers.EmbeddingHost),
		"GENERATION_HOST":      str(&c.Providers.GenerationHost),
		"EMBEDDING_MODEL":      str(&c.Providers.EmbeddingModel),
		"GENERATION_MODEL":     str(&c.Providers.GenerationModel),
		"EMBEDDING_TOKEN":      str(&c.Providers.EmbeddingToken),
		"GENERATION_TOKEN":     str(&c.Providers.GenerationToken),
		"GENERATOR":            str(&c.Providers.Generator),
		"TRANSCRIBER":          str(&c.Providers.Transcriber),
		"GEMINI_MODEL":         str(&c.Providers.GeminiModel),
		"GEMINI_API_KEY":       str(&c.Providers.GeminiAPIKey),
		"CONCURRENT_REQUESTS":  integer(&c.Providers.ConcurrentRequests),
		"REQUEST_TIMEOUT":      duration(&c.Providers.RequestTimeout),
		"POOL_SIZE":            integer(&c.Ingestion.PoolSize),
		"CHUNK_TARGET":         integer(&c.Ingestion.ChunkTarget),
		"CHUNK_OVERLAP":        integer(&c.Ingestion.ChunkOverlap),
		"TOP_K":                integer(&c.Chat.TopK),
		"MIN_SIMILARITY":       float(&c.Chat.MinSimilarity),
		"HISTORY_WINDOW":       integer(&c.Chat.HistoryWindow),
		"MIN_CHUNKS":           integer(&c.Chat.MinChunks),
		"CONTEXT_BUDGET":       integer(&c.Chat.ContextBudget),
		"MAX_ANSWER_TOKENS":    integer(&c.Chat.MaxAnswerTokens),
		"GENERAL_KNOWLEDGE":    boolean(&c.Chat.GeneralKnowledge),
		"SUMMARY_INPUT_BUDGET": integer(&c.Summary.InputBudget),
		"SUMMARY_MAX_TOKENS":   integer(&c.Summary.MaxTokens),
		"SUMMARY_CONCURRENCY":  integer(&c.Summary.Concurrency),
		"REDIS_URL":            str(&c.Events.RedisURL),
		"REDIS_CHANNEL_PREFIX": str(&c.Events.ChannelPrefix),
	}
}

// applyEnv overrides fields from VIDCHAT_* variables found by lookup.
// GEMINI_API_KEY is honoured when VIDCHAT_GEMINI_API_KEY is unset.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("GEMINI_API_KEY"); ok && v != "" {
		c.Providers.GeminiAPIKey = v
	}
	for name, set := range c.envSetters() {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		if err := set(v); err != nil {
			return fmt.Errorf("config: invalid %s%s: %w", EnvPrefix, name, err)
		}
	}
	return nil
}
