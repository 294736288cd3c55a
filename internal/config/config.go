package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory  = "memory"
	DriverRedis   = "redis"
	DriverValkey  = "valkey"
	DriverChromem = "chromem"
	DriverQdrant  = "qdrant"
)

// Providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds the ragchat configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Storage    StorageConfig    `yaml:"storage"`
	Ingest     IngestConfig     `yaml:"ingest"`
}

// LoggingConfig holds logging settings.
// Empty fields fall back to the environment defaults.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"`
	// StrictErrors maps /ask failures to 4xx/5xx instead of a 200 with a message answer.
	StrictErrors bool `yaml:"strict_errors"`
}

// CorpusConfig holds the startup corpus sources.
type CorpusConfig struct {
	TextPath         string `yaml:"text_path"`
	PDFPath          string `yaml:"pdf_path"`
	DefaultK         int    `yaml:"default_k" validate:"min=1,max=100"`
	ChunkOnBootstrap bool   `yaml:"chunk_on_bootstrap"`
}

// Paths returns the configured sources in load order, skipping empty ones.
func (c CorpusConfig) Paths() []string {
	var out []string
	for _, p := range []string{c.TextPath, c.PDFPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider" validate:"oneof=openai ollama"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model" validate:"required"`
	Dimensions          int    `yaml:"dimensions" validate:"min=0"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	MaxConcurrency      int    `yaml:"max_concurrency"`
}

// GenerationConfig holds chat model settings.
type GenerationConfig struct {
	Provider       string  `yaml:"provider" validate:"oneof=openai ollama"`
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model" validate:"required"`
	Temperature    float32 `yaml:"temperature" validate:"min=0,max=2"`
	TimeoutSec     int     `yaml:"timeout_sec"`
	MaxConcurrency int     `yaml:"max_concurrency"`
}

// StorageConfig selects and configures the corpus index.
type StorageConfig struct {
	Driver    string        `yaml:"driver" validate:"oneof=memory redis valkey chromem qdrant"`
	KeyPrefix string        `yaml:"key_prefix"`
	Redis     RedisConfig   `yaml:"redis"`
	Chromem   ChromemConfig `yaml:"chromem"`
	Qdrant    QdrantConfig  `yaml:"qdrant"`
}

// RedisConfig holds Redis/Valkey connection and index settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Collection       string   `yaml:"collection"`
	Algorithm        string   `yaml:"algorithm" validate:"oneof=FLAT HNSW"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`

	// CacheQueryEmbeddings memoizes question embeddings in the same store.
	CacheQueryEmbeddings bool `yaml:"cache_query_embeddings"`
}

// ChromemConfig holds embedded vector store settings.
type ChromemConfig struct {
	Path       string `yaml:"path"`
	Persistent bool   `yaml:"persistent"`
	Collection string `yaml:"collection"`
}

// QdrantConfig holds Qdrant gRPC connection settings.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port" validate:"min=1,max=65535"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// IngestConfig holds offline ingestion settings.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size" validate:"min=1"`
	ChunkOverlap int `yaml:"chunk_overlap" validate:"min=0"`
	BatchSize    int `yaml:"batch_size" validate:"min=1"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded into the environment first.
func Load(env string) (Config, error) {
	_ = godotenv.Load()

	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates one config file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Corpus.DefaultK == 0 {
		c.Corpus.DefaultK = 2
	}

	c.Embedding.applyDefaults()
	c.Generation.applyDefaults()

	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "ragchat:"
	}
	if c.Storage.Redis.Collection == "" {
		c.Storage.Redis.Collection = "rag_collection"
	}
	if c.Storage.Redis.Algorithm == "" {
		c.Storage.Redis.Algorithm = "FLAT"
	}
	if c.Storage.Redis.ReadinessTimeout <= 0 {
		c.Storage.Redis.ReadinessTimeout = 10
	}
	if c.Storage.Chromem.Collection == "" {
		c.Storage.Chromem.Collection = "rag_collection"
	}
	if c.Storage.Qdrant.Host == "" {
		c.Storage.Qdrant.Host = "localhost"
	}
	if c.Storage.Qdrant.Port == 0 {
		c.Storage.Qdrant.Port = 6334
	}
	if c.Storage.Qdrant.Collection == "" {
		c.Storage.Qdrant.Collection = "rag_collection"
	}

	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = 800
	}
	if c.Ingest.ChunkOverlap == 0 {
		c.Ingest.ChunkOverlap = 100
	}
	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = 64
	}
}

func (e *EmbeddingConfig) applyDefaults() {
	if e.Provider == "" {
		e.Provider = ProviderOpenAI
	}
	if e.Model == "" {
		e.Model = "text-embedding-3-small"
		if e.Provider == ProviderOllama {
			e.Model = "nomic-embed-text"
		}
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 30
	}
	if e.MaxConcurrency <= 0 {
		e.MaxConcurrency = 8
	}
}

func (g *GenerationConfig) applyDefaults() {
	if g.Provider == "" {
		g.Provider = ProviderOpenAI
	}
	if g.Model == "" {
		g.Model = "gpt-4o"
		if g.Provider == ProviderOllama {
			g.Model = "llama3"
		}
	}
	if g.TimeoutSec <= 0 {
		g.TimeoutSec = 60
	}
	if g.MaxConcurrency <= 0 {
		g.MaxConcurrency = 4
	}
}

// validate reports fields by their yaml names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("validate config: %w", err)
	}

	switch c.Storage.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Storage.Redis.Addrs) == 0 {
			return fmt.Errorf("storage.redis.addrs is required for driver %q", c.Storage.Driver)
		}
	case DriverChromem:
		if c.Storage.Chromem.Persistent && c.Storage.Chromem.Path == "" {
			return errors.New("storage.chromem.path is required when persistent is true")
		}
	}

	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap (%d) must be less than ingest.chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	return nil
}

// fieldPath turns a validator namespace such as "Config.storage.driver" into "storage.driver".
func fieldPath(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return rest
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
