// Package config provides configuration loading for kbgateway.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SERVER_PORT, BEDROCK_KNOWLEDGE_BASE_ID, ...)
//  2. YAML config file, when one is passed on the command line
//  3. Hardcoded defaults
//
// There is no global config state: Load is called once in main and the
// resulting struct is passed to every component constructor.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config is the process configuration, read-only after startup.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	AWS     AWSConfig     `koanf:"aws"`
	Bedrock BedrockConfig `koanf:"bedrock"`
	Storage StorageConfig `koanf:"storage"`
	Tenant  TenantConfig  `koanf:"tenant"`
	Upload  UploadConfig  `koanf:"upload"`
	Filters FilterConfig  `koanf:"filters"`
	Log     LogConfig     `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// AWSConfig holds shared AWS client configuration.
type AWSConfig struct {
	Region  string `koanf:"region"`
	Profile string `koanf:"profile"`
}

// BedrockConfig identifies the knowledge base and generation model.
// Empty knowledge-base identifiers disable sync signaling.
type BedrockConfig struct {
	KnowledgeBaseID string `koanf:"knowledge_base_id"`
	DataSourceID    string `koanf:"data_source_id"`
	ModelID         string `koanf:"model_id"`
}

// StorageConfig holds object store configuration.
type StorageConfig struct {
	Bucket string `koanf:"bucket"`
}

// TenantConfig holds tenant resolution configuration.
type TenantConfig struct {
	HeaderName  string   `koanf:"header_name"`
	ExemptPaths []string `koanf:"exempt_paths"`
}

// UploadConfig holds upload validation configuration.
type UploadConfig struct {
	AllowedExtensions []string `koanf:"allowed_extensions"`
}

// FilterConfig holds filter composition policy.
type FilterConfig struct {
	// StrictOperators rejects queries carrying an unrecognized filter
	// operator instead of silently dropping the predicate.
	StrictOperators bool `koanf:"strict_operators"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

// Load reads configuration from an optional YAML file and the
// environment. Environment variables map SECTION_FIELD_NAME to
// section.field_name, e.g. SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		// SECTION_FIELD_NAME -> section.field_name: split on the first
		// underscore only, field names keep theirs.
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "ap-northeast-1"
	}
	if cfg.Bedrock.ModelID == "" {
		cfg.Bedrock.ModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	if cfg.Tenant.HeaderName == "" {
		cfg.Tenant.HeaderName = "X-Tenant-ID"
	}
	if cfg.Tenant.ExemptPaths == nil {
		cfg.Tenant.ExemptPaths = []string{"/", "/health", "/metrics"}
	}
	if cfg.Upload.AllowedExtensions == nil {
		cfg.Upload.AllowedExtensions = []string{
			".pdf", ".txt", ".doc", ".docx", ".md", ".csv",
			".json", ".xml", ".html", ".htm", ".rtf", ".odt",
			".xls", ".xlsx", ".ppt", ".pptx",
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate checks invariants the rest of the process relies on.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout cannot be negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Log.Level)
	}
	return nil
}
