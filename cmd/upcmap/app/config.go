package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/upcmap"
	"github.com/agentstation/upcmap/internal/secrets"
	"github.com/agentstation/upcmap/pkg/budget"
	"github.com/agentstation/upcmap/pkg/collector"
	"github.com/agentstation/upcmap/pkg/constants"
	"github.com/agentstation/upcmap/pkg/errors"
	"github.com/agentstation/upcmap/pkg/products"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Lookup configuration
	Sources          []string           `validate:"dive,required"`
	DefaultHostLimit int                `validate:"gte=0"`
	HostLimits       []budget.HostLimit `validate:"dive"`
	HostRates        []budget.HostRate  `validate:"dive"`
	HTTPTimeout      time.Duration      `validate:"gt=0"`
	Concurrency      int                `validate:"gte=1,lte=16"`
	OverflowPolicy   string             `validate:"omitempty,oneof=skip_source abort_run skip abort"`

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// DefaultConfig returns a configuration with built-in defaults and no
// config file or environment applied.
func DefaultConfig() *Config {
	return &Config{
		DefaultHostLimit: constants.DefaultHostLimit,
		HTTPTimeout:      constants.DefaultHTTPTimeout,
		Concurrency:      constants.DefaultConcurrency,
		OverflowPolicy:   collector.OverflowSkipSource.String(),
		LogFormat:        "auto",
		LogOutput:        "stderr",
	}
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (UPCMAP_ prefix, plus FDC_API_KEY)
// 3. .env files
// 4. Config file (~/.upcmap.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	viper.SetEnvPrefix("upcmap")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()
	bindAPIKeys()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Search for config in standard locations
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".upcmap")
		}
	}

	// A missing config file is fine unless one was named explicitly
	if err := viper.ReadInConfig(); err != nil && configFile != "" {
		return nil, errors.NewConfigError("config", "failed to read "+configFile, err)
	}

	var hostLimits []budget.HostLimit
	if err := viper.UnmarshalKey("host_limits", &hostLimits); err != nil {
		return nil, errors.NewConfigError("config", "host_limits must be a list of host and limit pairs", err)
	}
	var hostRates []budget.HostRate
	if err := viper.UnmarshalKey("host_rates", &hostRates); err != nil {
		return nil, errors.NewConfigError("config", "host_rates must be a list of host, per_second and burst entries", err)
	}

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),
		Format:  viper.GetString("format"),

		ConfigFile: viper.ConfigFileUsed(),

		Sources:          splitList(viper.GetStringSlice("sources")),
		DefaultHostLimit: viper.GetInt("default_host_limit"),
		HostLimits:       hostLimits,
		HostRates:        hostRates,
		HTTPTimeout:      viper.GetDuration("http_timeout"),
		Concurrency:      viper.GetInt("concurrency"),
		OverflowPolicy:   viper.GetString("overflow_policy"),

		// An unset LOG_LEVEL leaves room for -v/-q
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.NewConfigError("config", "invalid configuration", err)
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// Options translates the configuration into upcmap options.
func (c *Config) Options() ([]upcmap.Option, error) {
	policy, err := collector.ParseOverflowPolicy(c.OverflowPolicy)
	if err != nil {
		return nil, err
	}

	opts := []upcmap.Option{
		upcmap.WithDefaultHostLimit(c.DefaultHostLimit),
		upcmap.WithOverflowPolicy(policy),
		upcmap.WithConcurrency(c.Concurrency),
		upcmap.WithCredentials(secrets.EnvLookup()),
	}
	if c.HTTPTimeout > 0 {
		opts = append(opts, upcmap.WithTimeout(c.HTTPTimeout))
	}
	if len(c.Sources) > 0 {
		ids := make([]products.SourceID, len(c.Sources))
		for i, s := range c.Sources {
			ids[i] = products.SourceID(s)
		}
		opts = append(opts, upcmap.WithSources(ids...))
	}

	for _, hl := range c.HostLimits {
		opts = append(opts, upcmap.WithHostLimit(hl.Host, hl.Limit))
	}
	if len(c.HostRates) > 0 {
		opts = append(opts, upcmap.WithStateOptions(budget.WithHostRates(c.HostRates)))
	}

	return opts, nil
}

func setDefaults() {
	viper.SetDefault("default_host_limit", constants.DefaultHostLimit)
	viper.SetDefault("http_timeout", constants.DefaultHTTPTimeout)
	viper.SetDefault("concurrency", constants.DefaultConcurrency)
	viper.SetDefault("overflow_policy", collector.OverflowSkipSource.String())
}

// loadEnvFiles loads environment variables from .env files. godotenv never
// replaces a variable that is already set, so the process environment wins,
// then .env.local, then .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// bindAPIKeys binds source credentials to Viper under their plain
// environment names, outside the UPCMAP_ prefix.
func bindAPIKeys() {
	apiKeys := []string{
		constants.FoodDataCentralKeyName,
	}

	for _, key := range apiKeys {
		if err := viper.BindEnv(key, key); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable %s: %v\n", key, err)
		}
	}
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
