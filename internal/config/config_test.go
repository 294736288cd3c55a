package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
	if !strings.Contains(err.Error(), "http.port") {
		t.Errorf("error should name http.port, got %q", err.Error())
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = "milvus"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "storage.driver") {
		t.Errorf("error should name storage.driver, got %q", err.Error())
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Generation.Provider = "anthropic"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	for _, driver := range []string{DriverRedis, DriverValkey} {
		t.Run(driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Storage.Driver = driver

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error for missing addrs")
			}
			if !strings.Contains(err.Error(), "storage.redis.addrs") {
				t.Errorf("unexpected error %q", err.Error())
			}

			cfg.Storage.Redis.Addrs = []string{"localhost:6379"}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error with addrs: %v", err)
			}
		})
	}
}

func TestValidate_PersistentChromemNeedsPath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = DriverChromem
	cfg.Storage.Chromem.Persistent = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for persistent chromem without path")
	}
}

func TestValidate_ChunkOverlap(t *testing.T) {
	cfg := validConfig()
	cfg.Ingest.ChunkSize = 100
	cfg.Ingest.ChunkOverlap = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when overlap >= size")
	}
}

func TestValidate_DefaultK(t *testing.T) {
	cfg := validConfig()
	cfg.Corpus.DefaultK = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for negative default_k")
	}
	if !strings.Contains(err.Error(), "corpus.default_k") {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8000 {
		t.Errorf("expected Port=8000, got %d", cfg.HTTP.Port)
	}
	if cfg.Corpus.DefaultK != 2 {
		t.Errorf("expected DefaultK=2, got %d", cfg.Corpus.DefaultK)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("unexpected embedding model %q", cfg.Embedding.Model)
	}
	if cfg.Generation.Model != "gpt-4o" {
		t.Errorf("unexpected generation model %q", cfg.Generation.Model)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("expected driver memory, got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Qdrant.Collection != "rag_collection" {
		t.Errorf("unexpected qdrant collection %q", cfg.Storage.Qdrant.Collection)
	}
	if cfg.Ingest.ChunkSize != 800 || cfg.Ingest.ChunkOverlap != 100 {
		t.Errorf("expected chunking 800/100, got %d/%d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Embedding.TimeoutSec != 30 || cfg.Generation.TimeoutSec != 60 {
		t.Errorf("unexpected timeouts %d/%d", cfg.Embedding.TimeoutSec, cfg.Generation.TimeoutSec)
	}
}

func TestApplyDefaults_OllamaModels(t *testing.T) {
	cfg := Config{
		Embedding:  EmbeddingConfig{Provider: ProviderOllama},
		Generation: GenerationConfig{Provider: ProviderOllama},
	}
	cfg.ApplyDefaults()

	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("unexpected embedding model %q", cfg.Embedding.Model)
	}
	if cfg.Generation.Model != "llama3" {
		t.Errorf("unexpected generation model %q", cfg.Generation.Model)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 9000, ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Corpus:  CorpusConfig{DefaultK: 4},
		Storage: StorageConfig{KeyPrefix: "custom:"},
		Ingest:  IngestConfig{ChunkSize: 500, ChunkOverlap: 50},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 {
		t.Errorf("expected Port=9000, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Corpus.DefaultK != 4 {
		t.Errorf("expected DefaultK=4, got %d", cfg.Corpus.DefaultK)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Ingest.ChunkSize != 500 || cfg.Ingest.ChunkOverlap != 50 {
		t.Errorf("unexpected chunking %d/%d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
}

func TestCorpusPaths(t *testing.T) {
	c := CorpusConfig{TextPath: "data/input.txt", PDFPath: ""}
	got := c.Paths()
	if len(got) != 1 || got[0] != "data/input.txt" {
		t.Errorf("unexpected paths %v", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RAGCHAT_TEST_KEY", "sk-test")

	got := string(expandEnvVars([]byte("a: ${RAGCHAT_TEST_KEY}\nb: ${RAGCHAT_TEST_UNSET:-fallback}\nc: ${RAGCHAT_TEST_UNSET}")))
	want := "a: sk-test\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("RAGCHAT_TEST_OPENAI_KEY", "sk-file")

	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: 8081
  strict_errors: true
embedding:
  api_key: ${RAGCHAT_TEST_OPENAI_KEY}
storage:
  driver: redis
  redis:
    addrs: ["localhost:6379"]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.HTTP.Port != 8081 || !cfg.HTTP.StrictErrors {
		t.Errorf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.Embedding.APIKey != "sk-file" {
		t.Errorf("expected expanded api key, got %q", cfg.Embedding.APIKey)
	}
	if cfg.Storage.Redis.Collection != "rag_collection" {
		t.Errorf("expected default collection, got %q", cfg.Storage.Redis.Collection)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: redis\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}
