package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/conversation"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/retrieval"
	"github.com/poiesic/docqa/splitter"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendBadger   = "badger"
	BackendPgvector = "pgvector"
	BackendQdrant   = "qdrant"
)

// AIConfig configures the embedding and generation services.
type AIConfig struct {
	EmbeddingHost      string  `yaml:"embedding_host" validate:"required,url"`
	GenerationHost     string  `yaml:"generation_host" validate:"required,url"`
	EmbeddingModel     string  `yaml:"embedding_model" validate:"required"`
	GenerationModel    string  `yaml:"generation_model" validate:"required"`
	APIKey             string  `yaml:"api_key"`
	EmbeddingDimension int     `yaml:"embedding_dimension" validate:"min=0"`
	MaxInputLength     int     `yaml:"max_input_length" validate:"min=1"`
	Temperature        float64 `yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens          int     `yaml:"max_tokens" validate:"min=0"`
	RequestsPerSecond  float64 `yaml:"requests_per_second" validate:"min=0"`
}

// StorageConfig selects the vector index backend.
type StorageConfig struct {
	Backend string `yaml:"backend" validate:"oneof=badger pgvector qdrant"`
	// Path is the badger directory. Empty runs badger in memory.
	Path             string `yaml:"path"`
	PostgresDSN      string `yaml:"postgres_dsn" validate:"required_if=Backend pgvector"`
	PostgresTable    string `yaml:"postgres_table"`
	QdrantURL        string `yaml:"qdrant_url" validate:"required_if=Backend qdrant"`
	QdrantAPIKey     string `yaml:"qdrant_api_key"`
	QdrantCollection string `yaml:"qdrant_collection"`
}

// SplittingConfig controls chunking.
type SplittingConfig struct {
	// Threshold is the rune length above which documents are split.
	Threshold    int `yaml:"threshold" validate:"min=1"`
	ChunkSize    int `yaml:"chunk_size" validate:"min=1"`
	ChunkOverlap int `yaml:"chunk_overlap" validate:"min=0,ltfield=ChunkSize"`
}

// IndexingConfig controls document loading.
type IndexingConfig struct {
	Paths   []string `yaml:"paths"`
	Workers int      `yaml:"workers" validate:"min=0"`
	// EmbedAttempts is how many times a failed embedding call is tried.
	EmbedAttempts int           `yaml:"embed_attempts" validate:"min=1"`
	RetryDelay    time.Duration `yaml:"retry_delay" validate:"min=0"`
}

type RetrievalConfig struct {
	TopK          int `yaml:"top_k" validate:"min=1,max=50"`
	HistoryWindow int `yaml:"history_window"`
}

type SessionsConfig struct {
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`
	MaxMessages   int           `yaml:"max_messages" validate:"min=1"`
	// Persist saves sessions to the badger store on shutdown.
	Persist bool `yaml:"persist"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Config is the application configuration.
type Config struct {
	AI        AIConfig        `yaml:"ai"`
	Storage   StorageConfig   `yaml:"storage"`
	Splitting SplittingConfig `yaml:"splitting"`
	Indexing  IndexingConfig  `yaml:"indexing"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Server    ServerConfig    `yaml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	split := core.DefaultSplitConfig()
	return &Config{
		AI: AIConfig{
			EmbeddingHost:   aiDefaults.EmbeddingHost,
			GenerationHost:  aiDefaults.GenerationHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			GenerationModel: aiDefaults.GenerationModel,
			APIKey:          aiDefaults.APIKey,
			MaxInputLength:  aiDefaults.MaxInputLength,
			Temperature:     aiDefaults.Temperature,
			MaxTokens:       aiDefaults.MaxTokens,
		},
		Storage: StorageConfig{Backend: BackendBadger},
		Indexing: IndexingConfig{
			EmbedAttempts: 1,
			RetryDelay:    500 * time.Millisecond,
		},
		Splitting: SplittingConfig{
			Threshold:    splitter.DefaultThreshold,
			ChunkSize:    split.ChunkSize,
			ChunkOverlap: split.ChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK:          retrieval.DefaultTopK,
			HistoryWindow: retrieval.DefaultHistoryWindow,
		},
		Sessions: SessionsConfig{
			Timeout:       conversation.DefaultSessionTimeout,
			SweepInterval: time.Minute,
			MaxMessages:   conversation.MaxMessages,
		},
		Server: ServerConfig{Addr: ":8000"},
	}
}

// Load builds the configuration. Values in a .env file in the working
// directory are exported first, then the YAML file at path (if any) is
// applied over the defaults, then DOCQA_* environment variables override
// both. The result is validated.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "err", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ProviderConfig converts the AI section into a normalized ai.Config.
func (c *Config) ProviderConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGenerationHost(c.AI.GenerationHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGenerationModel(c.AI.GenerationModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithEmbeddingDimension(c.AI.EmbeddingDimension),
		ai.WithMaxInputLength(c.AI.MaxInputLength),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithMaxTokens(c.AI.MaxTokens),
		ai.WithRequestsPerSecond(c.AI.RequestsPerSecond),
	)
	cfg.Normalize()
	return cfg
}

// SplitConfig converts the splitting section into a core.SplitConfig.
func (c *Config) SplitConfig() core.SplitConfig {
	split := core.DefaultSplitConfig()
	split.ChunkSize = c.Splitting.ChunkSize
	split.ChunkOverlap = c.Splitting.ChunkOverlap
	return split
}

type envBinding struct {
	name  string
	apply func(cfg *Config, value string) error
}

func str(set func(*Config, string)) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		set(cfg, v)
		return nil
	}
}

func integer(set func(*Config, int)) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		set(cfg, n)
		return nil
	}
}

func float(set func(*Config, float64)) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		set(cfg, f)
		return nil
	}
}

var envBindings = []envBinding{
	{"DOCQA_HOST", str(func(c *Config, v string) { c.AI.EmbeddingHost, c.AI.GenerationHost = v, v })},
	{"DOCQA_EMBEDDING_HOST", str(func(c *Config, v string) { c.AI.EmbeddingHost = v })},
	{"DOCQA_GENERATION_HOST", str(func(c *Config, v string) { c.AI.GenerationHost = v })},
	{"DOCQA_EMBEDDING_MODEL", str(func(c *Config, v string) { c.AI.EmbeddingModel = v })},
	{"DOCQA_GENERATION_MODEL", str(func(c *Config, v string) { c.AI.GenerationModel = v })},
	{"DOCQA_API_KEY", str(func(c *Config, v string) { c.AI.APIKey = v })},
	{"DOCQA_EMBEDDING_DIMENSION", integer(func(c *Config, n int) { c.AI.EmbeddingDimension = n })},
	{"DOCQA_REQUESTS_PER_SECOND", float(func(c *Config, f float64) { c.AI.RequestsPerSecond = f })},
	{"DOCQA_STORAGE_BACKEND", str(func(c *Config, v string) { c.Storage.Backend = v })},
	{"DOCQA_STORAGE_PATH", str(func(c *Config, v string) { c.Storage.Path = v })},
	{"DOCQA_PG_DSN", str(func(c *Config, v string) { c.Storage.PostgresDSN = v })},
	{"DOCQA_QDRANT_URL", str(func(c *Config, v string) { c.Storage.QdrantURL = v })},
	{"DOCQA_QDRANT_API_KEY", str(func(c *Config, v string) { c.Storage.QdrantAPIKey = v })},
	{"DOCQA_SPLIT_THRESHOLD", integer(func(c *Config, n int) { c.Splitting.Threshold = n })},
	{"DOCQA_EMBED_ATTEMPTS", integer(func(c *Config, n int) { c.Indexing.EmbedAttempts = n })},
	{"DOCQA_TOP_K", integer(func(c *Config, n int) { c.Retrieval.TopK = n })},
	{"DOCQA_SERVER_ADDR", str(func(c *Config, v string) { c.Server.Addr = v })},
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(b.name)
		if !ok || v == "" {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, b.name, v, err)
		}
	}
	return nil
}
