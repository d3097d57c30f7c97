package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for paper-assistant
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Zotero     ZoteroConfig     `mapstructure:"zotero"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Address      string   `mapstructure:"address"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LLMConfig describes the OpenAI-compatible completion endpoint.
type LLMConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	AnalysisTemperature float64       `mapstructure:"analysis_temperature"`
	ChatTemperature     float64       `mapstructure:"chat_temperature"`
	Timeout             time.Duration `mapstructure:"timeout"`
	SiteURL             string        `mapstructure:"site_url"`
	SiteTitle           string        `mapstructure:"site_title"`
	TokensPerSecond     float64       `mapstructure:"tokens_per_second"`
	BurstTokens         int           `mapstructure:"burst_tokens"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// ProcessingConfig controls the simulated progress ticker.
type ProcessingConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	TickMaxStep  float64       `mapstructure:"tick_max_step"`
	TickCeiling  float64       `mapstructure:"tick_ceiling"`
}

type ChatConfig struct {
	// Backend is "sqlite", "redis" or "memory"
	Backend      string `mapstructure:"backend"`
	StorageName  string `mapstructure:"storage_name"`
	ContextLimit int    `mapstructure:"context_limit"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ZoteroConfig struct {
	APIKey    string `mapstructure:"api_key"`
	LibraryID string `mapstructure:"library_id"`
}

type LogConfig struct {
	Output   string `mapstructure:"output"`
	Level    string `mapstructure:"level"`
	FilePath string `mapstructure:"file_path"`
	Encoding string `mapstructure:"encoding"`
}

// Load loads configuration from an optional file and the environment.
// Environment variables use the PAPER_ASSISTANT_ prefix with dots replaced by
// underscores; a few unprefixed names are accepted as aliases.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("paper-assistant")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PAPER_ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindAliases(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Storage.DBPath == "" {
		path, err := defaultDBPath()
		if err != nil {
			return nil, err
		}
		cfg.Storage.DBPath = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "deepseek/deepseek-r1:free")
	v.SetDefault("llm.analysis_temperature", 0.2)
	v.SetDefault("llm.chat_temperature", 0.7)
	v.SetDefault("llm.timeout", 5*time.Minute)
	v.SetDefault("llm.site_url", "http://localhost:3000")
	v.SetDefault("llm.site_title", "Research Paper Assistant")
	v.SetDefault("llm.tokens_per_second", 20000)
	v.SetDefault("llm.burst_tokens", 200000)

	v.SetDefault("upload.max_bytes", 15*1024*1024)

	v.SetDefault("processing.tick_interval", 200*time.Millisecond)
	v.SetDefault("processing.tick_max_step", 3)
	v.SetDefault("processing.tick_ceiling", 90)

	v.SetDefault("chat.backend", "sqlite")
	v.SetDefault("chat.storage_name", "chat-storage")
	v.SetDefault("chat.context_limit", 4)

	v.SetDefault("storage.db_path", "")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("zotero.api_key", "")
	v.SetDefault("zotero.library_id", "")

	v.SetDefault("log.output", "")
	v.SetDefault("log.level", "")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.encoding", "console")
}

// bindAliases lets the unprefixed variable names used by existing deployments
// keep working. The prefixed name always wins.
func bindAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"llm.api_key":        {"PAPER_ASSISTANT_LLM_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY"},
		"llm.base_url":       {"PAPER_ASSISTANT_LLM_BASE_URL", "OPENROUTER_BASE_URL"},
		"llm.site_url":       {"PAPER_ASSISTANT_LLM_SITE_URL", "NEXT_PUBLIC_SITE_URL"},
		"llm.site_title":     {"PAPER_ASSISTANT_LLM_SITE_TITLE", "NEXT_PUBLIC_SITE_TITLE"},
		"storage.db_path":    {"PAPER_ASSISTANT_STORAGE_DB_PATH", "PAPER_ASSISTANT_DB_PATH"},
		"zotero.api_key":     {"PAPER_ASSISTANT_ZOTERO_API_KEY", "ZOTERO_API_KEY"},
		"zotero.library_id":  {"PAPER_ASSISTANT_ZOTERO_LIBRARY_ID", "ZOTERO_LIBRARY_ID"},
		"log.output":         {"PAPER_ASSISTANT_LOG_OUTPUT", "LOG_OUTPUT"},
		"log.level":          {"PAPER_ASSISTANT_LOG_LEVEL", "LOG_LEVEL"},
		"log.file_path":      {"PAPER_ASSISTANT_LOG_FILE_PATH", "LOG_FILE_PATH"},
		"redis.addr":         {"PAPER_ASSISTANT_REDIS_ADDR", "REDIS_ADDR"},
		"upload.max_bytes":   {"PAPER_ASSISTANT_UPLOAD_MAX_BYTES"},
		"chat.backend":       {"PAPER_ASSISTANT_CHAT_BACKEND"},
		"chat.context_limit": {"PAPER_ASSISTANT_CHAT_CONTEXT_LIMIT"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks values that would otherwise fail much later at runtime.
func (c *Config) Validate() error {
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Processing.TickCeiling <= 0 || c.Processing.TickCeiling >= 100 {
		return fmt.Errorf("processing.tick_ceiling must be between 0 and 100 exclusive, got %v", c.Processing.TickCeiling)
	}
	if c.Processing.TickInterval <= 0 {
		return fmt.Errorf("processing.tick_interval must be positive, got %v", c.Processing.TickInterval)
	}
	switch c.Chat.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("invalid chat.backend: %s (expected 'sqlite', 'redis' or 'memory')", c.Chat.Backend)
	}
	if c.Chat.StorageName == "" {
		return errors.New("chat.storage_name must not be empty")
	}
	return nil
}

// defaultDBPath returns ~/.paper-assistant/paper-assistant.db, creating the
// directory if needed.
func defaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	dbDir := filepath.Join(homeDir, ".paper-assistant")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return filepath.Join(dbDir, "paper-assistant.db"), nil
}
