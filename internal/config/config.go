package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Render  RenderConfig  `yaml:"render" mapstructure:"render"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig configures address resolution.
type GeocodeConfig struct {
	// Providers are tried in order until one matches.
	Providers     []string      `yaml:"providers" mapstructure:"providers"`
	Delay         time.Duration `yaml:"delay" mapstructure:"delay"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit     float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	RetryAttempts int           `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	GoogleAPIKey  string        `yaml:"google_api_key" mapstructure:"google_api_key"`
	ArcGISToken   string        `yaml:"arcgis_token" mapstructure:"arcgis_token"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// RenderConfig configures HTML report rendering.
type RenderConfig struct {
	TemplateDir  string `yaml:"template_dir" mapstructure:"template_dir"`
	TemplateName string `yaml:"template_name" mapstructure:"template_name"`
	OutputDir    string `yaml:"output_dir" mapstructure:"output_dir"`
}

// StoreConfig configures run history persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // none, sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("BOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geocode.providers", []string{"arcgis"})
	v.SetDefault("geocode.delay", 500*time.Millisecond)
	v.SetDefault("geocode.timeout", 30*time.Second)
	v.SetDefault("geocode.rate_limit", 5.0)
	v.SetDefault("geocode.retry_attempts", 2)
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.arcgis_token", "")
	v.SetDefault("geocode.user_agent", "bov-engine/1.0")
	v.SetDefault("render.template_dir", "templates")
	v.SetDefault("render.template_name", "bov.html")
	v.SetDefault("render.output_dir", "output")
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks the settings a command depends on. mode is the command
// name: geocode, render, preview or runs.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "geocode":
		problems = append(problems, c.validateGeocode()...)
		problems = append(problems, c.validateStore(false)...)
	case "render":
		problems = append(problems, c.validateRender()...)
	case "preview":
		problems = append(problems, c.validateRender()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	case "runs":
		problems = append(problems, c.validateStore(true)...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateGeocode() []string {
	var problems []string
	if len(c.Geocode.Providers) == 0 {
		problems = append(problems, "geocode.providers must not be empty")
	}
	for _, p := range c.Geocode.Providers {
		if strings.EqualFold(strings.TrimSpace(p), "google") && c.Geocode.GoogleAPIKey == "" {
			problems = append(problems, "geocode.google_api_key is required for the google provider")
		}
	}
	if c.Geocode.Delay < 0 {
		problems = append(problems, "geocode.delay must be >= 0")
	}
	if c.Geocode.RetryAttempts < 1 || c.Geocode.RetryAttempts > 10 {
		problems = append(problems, "geocode.retry_attempts must be between 1 and 10")
	}
	return problems
}

func (c *Config) validateRender() []string {
	var problems []string
	if c.Render.TemplateDir == "" {
		problems = append(problems, "render.template_dir is required")
	}
	if c.Render.TemplateName == "" {
		problems = append(problems, "render.template_name is required")
	}
	return problems
}

// validateStore checks the history settings. required rejects "none".
func (c *Config) validateStore(required bool) []string {
	switch c.Store.Driver {
	case "", "none":
		if required {
			return []string{"store.driver must be sqlite or postgres to use run history"}
		}
		return nil
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" && c.Store.Driver == "postgres" {
			return []string{"store.database_url is required for postgres"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver %q is not one of none, sqlite, postgres", c.Store.Driver)}
	}
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
