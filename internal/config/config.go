// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix viper uses for environment overrides, e.g.
// SBOMRISK_NVD_API_KEY.
const EnvPrefix = "SBOMRISK"

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	NVD() NVDConfig
	Analysis() AnalysisConfig
	Cache() CacheConfig
	Storage() StorageConfig
	Audit() AuditConfig
	Server() ServerConfig

	SetVulnerabilitiesEnabled(bool)
	SetAnalysisTimeout(time.Duration)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	NVDCfg      NVDConfig      `mapstructure:"nvd" yaml:"nvd"`
	AnalysisCfg AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	CacheCfg    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	StorageCfg  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	AuditCfg    AuditConfig    `mapstructure:"audit" yaml:"audit"`
	ServerCfg   ServerConfig   `mapstructure:"server" yaml:"server"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) NVD() NVDConfig           { return c.NVDCfg }
func (c *Config) Analysis() AnalysisConfig { return c.AnalysisCfg }
func (c *Config) Cache() CacheConfig       { return c.CacheCfg }
func (c *Config) Storage() StorageConfig   { return c.StorageCfg }
func (c *Config) Audit() AuditConfig       { return c.AuditCfg }
func (c *Config) Server() ServerConfig     { return c.ServerCfg }

// -- Setters, used by CLI flags --

func (c *Config) SetVulnerabilitiesEnabled(b bool)   { c.AnalysisCfg.VulnerabilitiesEnabled = b }
func (c *Config) SetAnalysisTimeout(d time.Duration) { c.AnalysisCfg.Timeout = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error dpanic panic fatal"`
	Format      string `mapstructure:"format" yaml:"format" validate:"oneof=console json"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// NVDConfig configures the National Vulnerability Database client.
type NVDConfig struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	APIKey         string        `mapstructure:"api_key" yaml:"-"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	ResultsPerPage int           `mapstructure:"results_per_page" yaml:"results_per_page" validate:"gte=1,lte=2000"`
	MaxResults     int           `mapstructure:"max_results" yaml:"max_results" validate:"gte=1"`
	// RateLimit is in requests per second. Zero picks the NVD quota for the
	// presence or absence of an API key.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `mapstructure:"burst" yaml:"burst" validate:"gte=1"`
}

// Published NVD quotas: 5 requests per 30s without a key, 50 with one.
const (
	PublicRateLimit = 5.0 / 30.0
	KeyedRateLimit  = 50.0 / 30.0
)

// EffectiveRateLimit resolves a zero RateLimit to the matching NVD quota.
func (n NVDConfig) EffectiveRateLimit() float64 {
	if n.RateLimit > 0 {
		return n.RateLimit
	}
	if n.APIKey != "" {
		return KeyedRateLimit
	}
	return PublicRateLimit
}

// AnalysisConfig tunes a single analysis run.
type AnalysisConfig struct {
	Concurrency            int           `mapstructure:"concurrency" yaml:"concurrency" validate:"gte=1"`
	Timeout                time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	MaxDocumentBytes       int64         `mapstructure:"max_document_bytes" yaml:"max_document_bytes" validate:"gte=1"`
	FlatDirectCap          int           `mapstructure:"flat_direct_cap" yaml:"flat_direct_cap" validate:"gte=1"`
	VulnerabilitiesEnabled bool          `mapstructure:"vulnerabilities_enabled" yaml:"vulnerabilities_enabled"`
}

// CacheConfig controls the on-disk vulnerability lookup cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"gt=0"`
}

// StorageConfig selects where SBOMs are read from and results written to.
type StorageConfig struct {
	Backend         string `mapstructure:"backend" yaml:"backend" validate:"oneof=fs gcs"`
	RootDir         string `mapstructure:"root_dir" yaml:"root_dir"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket" validate:"required_if=Backend gcs"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	InputPrefix     string `mapstructure:"input_prefix" yaml:"input_prefix"`
	OutputPrefix    string `mapstructure:"output_prefix" yaml:"output_prefix"`
}

// AuditConfig holds the audit record database details.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Driver  string `mapstructure:"driver" yaml:"driver" validate:"oneof=postgres sqlite"`
	URL     string `mapstructure:"url" yaml:"-"`
	Table   string `mapstructure:"table" yaml:"table" validate:"required"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "sbomrisk")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- NVD --
	v.SetDefault("nvd.base_url", "https://services.nvd.nist.gov/rest/json/cves/2.0")
	v.SetDefault("nvd.api_key", "")
	v.SetDefault("nvd.timeout", "10s")
	v.SetDefault("nvd.results_per_page", 50)
	v.SetDefault("nvd.max_results", 10)
	v.SetDefault("nvd.rate_limit", 0.0)
	v.SetDefault("nvd.burst", 1)

	// -- Analysis --
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("analysis.timeout", "2m")
	v.SetDefault("analysis.max_document_bytes", 10<<20)
	v.SetDefault("analysis.flat_direct_cap", 20)
	v.SetDefault("analysis.vulnerabilities_enabled", true)

	// -- Cache --
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "~/.cache/sbomrisk")
	v.SetDefault("cache.ttl", "24h")

	// -- Storage --
	v.SetDefault("storage.backend", "fs")
	v.SetDefault("storage.root_dir", ".")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("storage.input_prefix", "sboms/")
	v.SetDefault("storage.output_prefix", "analysis/")

	// -- Audit --
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.driver", "postgres")
	v.SetDefault("audit.url", "")
	v.SetDefault("audit.table", "sbom_analysis_audit")

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "2m")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Secrets are read from the environment even when no config file names them.
	_ = v.BindEnv("nvd.api_key", EnvPrefix+"_NVD_API_KEY")
	_ = v.BindEnv("audit.url", EnvPrefix+"_AUDIT_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.NVDCfg.APIKey == "" {
		cfg.NVDCfg.APIKey = os.Getenv("NVD_API_KEY")
	}

	if cfg.CacheCfg.Dir != "" {
		dir, err := homedir.Expand(cfg.CacheCfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("could not expand cache.dir: %w", err)
		}
		cfg.CacheCfg.Dir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.CacheCfg.Enabled && c.CacheCfg.Dir == "" {
		return fmt.Errorf("cache.dir is required when the cache is enabled")
	}
	if err := c.AuditCfg.Validate(); err != nil {
		return fmt.Errorf("audit configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the audit configuration.
func (a *AuditConfig) Validate() error {
	if !a.Enabled {
		return nil
	}
	if a.URL == "" {
		return fmt.Errorf("audit.url is required when auditing is enabled. Set it or %s_AUDIT_URL", EnvPrefix)
	}
	return nil
}

// formatValidationError flattens validator errors into one message naming
// the offending keys.
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
