package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Config holds the symdex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Query     QueryConfig     `yaml:"query"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW build settings for collection indexes.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	// CacheEmbeddings stores embeddings in the KV store keyed by text hash.
	CacheEmbeddings bool `yaml:"cache_embeddings"`
	// EmbeddingCacheTTL expires cached embeddings after this many seconds;
	// zero keeps them.
	EmbeddingCacheTTL int `yaml:"embedding_cache_ttl_sec"`
}

// CatalogConfig holds the component catalog settings.
type CatalogConfig struct {
	RelationshipsFile string       `yaml:"relationships_file"`
	Root              string       `yaml:"root"`
	ModulePrefix      string       `yaml:"module_prefix"`
	Strict            bool         `yaml:"strict"`
	Watch             bool         `yaml:"watch"`
	DebounceMS        int          `yaml:"debounce_ms"`
	MaxDSLDepth       int          `yaml:"max_dsl_depth"`
	Pools             *PoolsConfig `yaml:"pools"`
}

// PoolsConfig overrides the built-in symbol pools. Keys of PerLetter are
// single lower-case letters.
type PoolsConfig struct {
	PerLetter map[string][]string `yaml:"per_letter"`
	Fallback  []string            `yaml:"fallback"`
}

// QueryConfig holds executor and graph traversal settings.
type QueryConfig struct {
	DefaultCollection   string `yaml:"default_collection"`
	DefaultVector       string `yaml:"default_vector"`
	DefaultLimit        int    `yaml:"default_limit"`
	MaxLimit            int    `yaml:"max_limit"`
	RRFK                int    `yaml:"rrf_k"`
	CandidateMultiplier int    `yaml:"candidate_multiplier"`
	MaxPaths            int    `yaml:"max_paths"`
	MaxPathDepth        int    `yaml:"max_path_depth"`
}

// EmbeddingConfig holds embedding settings. Vectorizers are keyed by the
// vector space they fill.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	Driver    string `yaml:"driver"` // openai, langchain (default: openai)
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	BatchSize int    `yaml:"batch_size"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Kind       string `yaml:"kind"` // single, multi (default: single)
	// WindowSize is the number of words per multi-vector window.
	WindowSize          int    `yaml:"window_size"`
	Distance            string `yaml:"distance"`
	Algorithm           string `yaml:"algorithm"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// IsMulti reports whether the vectorizer produces multi-vectors.
func (v VectorizerConfig) IsMulti() bool {
	return v.Kind == "multi" || v.Kind == "multi-vector"
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (Config, error) {
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "symdex:"
	}
	if c.Catalog.DebounceMS <= 0 {
		c.Catalog.DebounceMS = 300
	}
	if c.Query.DefaultVector == "" {
		c.Query.DefaultVector = "dense"
	}
	if c.Query.DefaultLimit <= 0 {
		c.Query.DefaultLimit = 10
	}
	if c.Query.MaxLimit <= 0 {
		c.Query.MaxLimit = 100
	}
	if c.Query.RRFK <= 0 {
		c.Query.RRFK = 60
	}
	if c.Query.CandidateMultiplier <= 0 {
		c.Query.CandidateMultiplier = 4
	}
	if c.Query.MaxPaths <= 0 {
		c.Query.MaxPaths = 64
	}
	if c.Query.MaxPathDepth <= 0 {
		c.Query.MaxPathDepth = 12
	}
	for name, p := range c.Embedding.Providers {
		if p.Driver == "" {
			p.Driver = "openai"
			c.Embedding.Providers[name] = p
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Storage.EmbeddingCacheTTL < 0 {
		return fmt.Errorf("storage.embedding_cache_ttl_sec must not be negative, got %d", c.Storage.EmbeddingCacheTTL)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	for name, p := range c.Embedding.Providers {
		switch p.Driver {
		case "openai", "langchain":
		default:
			return fmt.Errorf(
				"embedding.providers.%s.driver must be \"openai\" or \"langchain\", got %q",
				name, p.Driver,
			)
		}
	}
	for name, v := range c.Embedding.Vectorizers {
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s.provider %q is not configured", name, v.Provider)
		}
		switch v.Kind {
		case "", "single", "single-vector", "multi", "multi-vector":
		default:
			return fmt.Errorf("embedding.vectorizers.%s.kind must be \"single\" or \"multi\", got %q", name, v.Kind)
		}
	}
	if len(c.Embedding.Vectorizers) > 0 {
		if _, ok := c.Embedding.Vectorizers[c.Query.DefaultVector]; !ok {
			return fmt.Errorf("query.default_vector %q has no vectorizer", c.Query.DefaultVector)
		}
	}
	if c.Query.DefaultLimit > c.Query.MaxLimit {
		return fmt.Errorf("query.default_limit %d exceeds query.max_limit %d", c.Query.DefaultLimit, c.Query.MaxLimit)
	}
	if c.Catalog.Watch && c.Catalog.RelationshipsFile == "" {
		return fmt.Errorf("catalog.watch requires catalog.relationships_file")
	}
	if p := c.Catalog.Pools; p != nil {
		for letter := range p.PerLetter {
			if utf8.RuneCountInString(letter) != 1 {
				return fmt.Errorf("catalog.pools.per_letter key %q must be a single letter", letter)
			}
		}
	}
	return nil
}

// SymbolPools converts the pool override, or returns false when none is set.
func (c *CatalogConfig) SymbolPools() (perLetter map[rune][]string, fallback []string, ok bool) {
	if c.Pools == nil {
		return nil, nil, false
	}
	perLetter = make(map[rune][]string, len(c.Pools.PerLetter))
	for k, v := range c.Pools.PerLetter {
		r, _ := utf8.DecodeRuneInString(strings.ToLower(k))
		perLetter[r] = v
	}
	return perLetter, c.Pools.Fallback, true
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
