package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Consensus  ConsensusConfig
	Redis      RedisConfig
	SQLite     SQLiteConfig
	Neo4j      Neo4jConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
	AllowOrigins string
}

type LLMConfig struct {
	Provider             string
	Host                 string
	BaseURL              string
	APIKey               string
	Model                string
	Temperature          float32
	MaxTokens            int
	TimeoutSec           int
	ContextWindow        int
	ContextWindowCeiling int
	HistoryThreshold     int
	MaxAttempts          int
	Breaker              BreakerConfig
}

// BreakerConfig controls the per-model circuit breaker. It is off unless
// Enabled is set.
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeoutSec   int
}

// Timeout is the hard wall-clock bound applied to every model call.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

type ExtractionConfig struct {
	Language          string
	Schema            string
	Domain            string
	MaxInputChars     int
	ChunkOverlapChars int
	MaxChunks         int
	Concurrency       int
}

type ConsensusConfig struct {
	Parallel bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type SQLiteConfig struct {
	Enabled bool
	Path    string
}

type Neo4jConfig struct {
	Enabled  bool
	URI      string
	Username string
	Password string
	Database string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/langextract")

	return load(v)
}

// LoadFile reads configuration from an explicit path instead of the search paths.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("LANGEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the extraction engine cannot run with.
func (c *Config) Validate() error {
	if c.LLM.TimeoutSec <= 0 {
		return fmt.Errorf("llm.timeoutSec must be positive, got %d", c.LLM.TimeoutSec)
	}
	if c.Extraction.MaxInputChars <= 0 {
		return fmt.Errorf("extraction.maxInputChars must be positive, got %d", c.Extraction.MaxInputChars)
	}
	if c.Extraction.ChunkOverlapChars < 0 {
		return fmt.Errorf("extraction.chunkOverlapChars must not be negative, got %d", c.Extraction.ChunkOverlapChars)
	}
	switch c.LLM.Provider {
	case "ollama", "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.readTimeout", 300)
	v.SetDefault("server.writeTimeout", 300)
	v.SetDefault("server.bodyLimit", 10485760)
	v.SetDefault("server.allowOrigins", "*")

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.host", "http://127.0.0.1:11434")
	v.SetDefault("llm.model", "gemma3:4b")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.maxTokens", 1024)
	v.SetDefault("llm.timeoutSec", 120)
	v.SetDefault("llm.contextWindow", 4096)
	v.SetDefault("llm.contextWindowCeiling", 8192)
	v.SetDefault("llm.historyThreshold", 15)
	v.SetDefault("llm.maxAttempts", 1)
	v.SetDefault("llm.breaker.enabled", false)
	v.SetDefault("llm.breaker.failureThreshold", 5)
	v.SetDefault("llm.breaker.openTimeoutSec", 30)

	v.SetDefault("extraction.language", "fa")
	v.SetDefault("extraction.schema", "general")
	v.SetDefault("extraction.domain", "general")
	v.SetDefault("extraction.maxInputChars", 12000)
	v.SetDefault("extraction.chunkOverlapChars", 200)
	v.SetDefault("extraction.maxChunks", 8)
	v.SetDefault("extraction.concurrency", 1)

	v.SetDefault("consensus.parallel", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 3600)

	v.SetDefault("sqlite.enabled", false)
	v.SetDefault("sqlite.path", "./data/langextract.db")

	v.SetDefault("neo4j.enabled", false)
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "password")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("ratelimit.requestsPerMinute", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
	v.SetDefault("logging.maxSizeMB", 100)
	v.SetDefault("logging.maxBackups", 3)
	v.SetDefault("logging.maxAgeDays", 28)
}
