// Package config loads application configuration from config.yaml and
// SQP_-prefixed environment variables, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Categorize CategorizeConfig `yaml:"categorize" mapstructure:"categorize"`
	Schema     SchemaConfig     `yaml:"schema" mapstructure:"schema"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	Model         string `yaml:"model" mapstructure:"model"`
	FallbackModel string `yaml:"fallback_model" mapstructure:"fallback_model"`
	MaxTokens     int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CategorizeConfig configures the classification scheduler.
type CategorizeConfig struct {
	BatchSize     int  `yaml:"batch_size" mapstructure:"batch_size"`
	Parallel      bool `yaml:"parallel" mapstructure:"parallel"`
	Workers       int  `yaml:"workers" mapstructure:"workers"`
	BatchDelayMS  int  `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	RetrySentinel bool `yaml:"retry_sentinel" mapstructure:"retry_sentinel"`
}

// SchemaConfig configures column normalization.
type SchemaConfig struct {
	// RulesFile optionally points at a YAML file with extra synonym rules,
	// appended after the built-in defaults.
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`
}

// ServerConfig configures the analysis HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SQP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.fallback_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("categorize.batch_size", 100)
	v.SetDefault("categorize.parallel", true)
	v.SetDefault("categorize.workers", 3)
	v.SetDefault("categorize.batch_delay_ms", 500)
	v.SetDefault("categorize.retry_sentinel", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
