// Package config handles configuration loading and validation.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/awardintel/award-engine/internal/pkg/errors"
)

// DefaultEnvFiles are read, in order, when no env file is given explicitly.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config holds all application configuration.
type Config struct {
	// Store connection
	Store StoreConfig `yaml:"store"`

	// Synthetic observation source
	Generator GeneratorConfig `yaml:"generator"`

	// Exit policy
	Policy PolicyConfig `yaml:"policy"`

	// Price alerts
	Alert AlertConfig `yaml:"alert"`

	// Event bus
	Bus BusConfig `yaml:"bus"`

	// Price history
	History HistoryConfig `yaml:"history"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// StoreConfig holds the persistence settings.
type StoreConfig struct {
	Backend     string        `envconfig:"AWARD_STORE_BACKEND" yaml:"backend"`
	URL         string        `envconfig:"NEXT_PUBLIC_SUPABASE_URL" yaml:"url"`
	Key         string        `envconfig:"NEXT_PUBLIC_SUPABASE_ANON_KEY" yaml:"key"`
	DatabaseURL string        `envconfig:"AWARD_DATABASE_URL" yaml:"database_url"`
	SQLitePath  string        `envconfig:"AWARD_SQLITE_PATH" yaml:"sqlite_path"`
	Table       string        `envconfig:"AWARD_TABLE" yaml:"table"`
	Timeout     time.Duration `envconfig:"AWARD_STORE_TIMEOUT" yaml:"timeout"`
}

// GeneratorConfig holds the observation generator settings.
type GeneratorConfig struct {
	Route        string        `envconfig:"AWARD_ROUTE" yaml:"route"`
	Airline      string        `envconfig:"AWARD_AIRLINE" yaml:"airline"`
	Program      string        `envconfig:"AWARD_PROGRAM" yaml:"program"`
	MilesChoices []int         `envconfig:"AWARD_MILES_CHOICES" yaml:"miles_choices"`
	TaxMin       int           `envconfig:"AWARD_TAX_MIN" yaml:"tax_min"`
	TaxMax       int           `envconfig:"AWARD_TAX_MAX" yaml:"tax_max"`
	Seed         uint64        `envconfig:"AWARD_SEED" yaml:"seed"` // 0 = random
	SearchDelay  time.Duration `envconfig:"AWARD_SEARCH_DELAY" yaml:"search_delay"`
}

// PolicyConfig decides how ingest failures affect the exit status.
type PolicyConfig struct {
	FailOnIngestError bool `envconfig:"AWARD_FAIL_ON_INGEST_ERROR" yaml:"fail_on_ingest_error"`
}

// AlertConfig holds price alert settings.
type AlertConfig struct {
	Enabled      bool     `envconfig:"AWARD_ALERTS_ENABLED" yaml:"enabled"`
	Threshold    int      `envconfig:"AWARD_ALERT_THRESHOLD" yaml:"threshold"`
	ResendAPIKey string   `envconfig:"RESEND_API_KEY" yaml:"resend_api_key"`
	From         string   `envconfig:"AWARD_ALERT_FROM" yaml:"from"`
	To           []string `envconfig:"AWARD_ALERT_TO" yaml:"to"`
	DashboardURL string   `envconfig:"AWARD_DASHBOARD_URL" yaml:"dashboard_url"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"AWARD_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"AWARD_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"AWARD_KAFKA_GROUP" yaml:"kafka_group"`
	RedisURL     string `envconfig:"AWARD_BUS_REDIS_URL" yaml:"redis_url"`
	JournalPath  string `envconfig:"AWARD_BUS_JOURNAL" yaml:"journal_path"` // empty = no journal
}

// HistoryConfig holds price history settings.
type HistoryConfig struct {
	Type     string        `envconfig:"AWARD_HISTORY_TYPE" yaml:"type"`
	RedisURL string        `envconfig:"AWARD_HISTORY_REDIS_URL" yaml:"redis_url"`
	Window   time.Duration `envconfig:"AWARD_HISTORY_WINDOW" yaml:"window"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"AWARD_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"AWARD_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from defaults, an optional YAML file, env files
// and the process environment, in increasing order of priority. When
// envFiles is empty DefaultEnvFiles are tried; missing env files are skipped.
func Load(configPath string, envFiles ...string) (*Config, error) {
	cfg, err := load(configPath, envFiles)
	if err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithoutStore is Load for commands that never open the store or run
// the generator. Only the bus, history and log sections are validated.
func LoadWithoutStore(configPath string, envFiles ...string) (*Config, error) {
	cfg, err := load(configPath, envFiles)
	if err != nil {
		return nil, err
	}

	var errs []string
	errs = cfg.validateBus(errs)
	errs = cfg.validateHistory(errs)
	errs = cfg.validateLog(errs)
	if err := validationError(errs); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func load(configPath string, envFiles []string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, errors.Wrap(errors.CodeConfiguration, "loading config file", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration, "loading env file", err)
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration, "processing env config", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadEnvFiles applies dotenv files without overriding variables that are
// already set in the process environment.
func loadEnvFiles(paths []string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func setDefaults(cfg *Config) {
	cfg.Store = StoreConfig{
		Backend:    "postgrest",
		Table:      "award_snapshots",
		SQLitePath: "award_snapshots.db",
		Timeout:    10 * time.Second,
	}

	cfg.Generator = GeneratorConfig{
		Route:        "BOM ⇄ JFK",
		Airline:      "Air India",
		Program:      "Aeroplan",
		MilesChoices: []int{80000, 85000, 90000, 110000, 120000},
		TaxMin:       200,
		TaxMax:       600,
		SearchDelay:  2 * time.Second,
	}

	cfg.Alert = AlertConfig{
		Threshold:    90000,
		From:         "AwardEngine <onboarding@resend.dev>",
		DashboardURL: "https://award-intelligence-engine-m8l3.vercel.app/",
	}

	cfg.Bus = BusConfig{
		Type:       "memory",
		KafkaGroup: "award-engine",
	}

	cfg.History = HistoryConfig{
		Type:   "memory",
		Window: 7 * 24 * time.Hour,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string
	errs = c.validateStore(errs)
	errs = c.validateGenerator(errs)
	errs = c.validateAlert(errs)
	errs = c.validateBus(errs)
	errs = c.validateHistory(errs)
	errs = c.validateLog(errs)
	return validationError(errs)
}

func validationError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.ConfigurationError(fmt.Sprintf("config validation failed:\n  - %s", strings.Join(errs, "\n  - ")))
}

func (c *Config) validateStore(errs []string) []string {
	switch c.Store.Backend {
	case "postgrest":
		if strings.TrimSpace(c.Store.URL) == "" {
			errs = append(errs, "NEXT_PUBLIC_SUPABASE_URL is required for the postgrest backend")
		}
		if strings.TrimSpace(c.Store.Key) == "" {
			errs = append(errs, "NEXT_PUBLIC_SUPABASE_ANON_KEY is required for the postgrest backend")
		}
	case "postgres":
		if strings.TrimSpace(c.Store.DatabaseURL) == "" {
			errs = append(errs, "AWARD_DATABASE_URL is required for the postgres backend")
		}
	case "sqlite":
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			errs = append(errs, "sqlite_path is required for the sqlite backend")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("invalid store backend: %s (must be postgrest, postgres, sqlite, or memory)", c.Store.Backend))
	}

	if strings.TrimSpace(c.Store.Table) == "" {
		errs = append(errs, "table must not be empty")
	}

	if c.Store.Timeout <= 0 {
		errs = append(errs, "store timeout must be positive")
	}
	return errs
}

func (c *Config) validateGenerator(errs []string) []string {
	if strings.TrimSpace(c.Generator.Airline) == "" {
		errs = append(errs, "airline must not be empty")
	}

	if strings.TrimSpace(c.Generator.Program) == "" {
		errs = append(errs, "program must not be empty")
	}

	if len(c.Generator.MilesChoices) == 0 {
		errs = append(errs, "miles_choices must not be empty")
	}
	for _, m := range c.Generator.MilesChoices {
		if m <= 0 {
			errs = append(errs, fmt.Sprintf("miles_choices must be positive, got %d", m))
			break
		}
	}

	if c.Generator.TaxMin < 0 || c.Generator.TaxMax < c.Generator.TaxMin {
		errs = append(errs, "tax range must satisfy 0 <= tax_min <= tax_max")
	}

	if c.Generator.SearchDelay < 0 {
		errs = append(errs, "search_delay must not be negative")
	}
	return errs
}

func (c *Config) validateAlert(errs []string) []string {
	if c.Alert.Threshold <= 0 {
		errs = append(errs, "alert threshold must be positive")
	}

	if c.Alert.ResendAPIKey != "" && len(c.Alert.To) == 0 {
		errs = append(errs, "AWARD_ALERT_TO is required when RESEND_API_KEY is set")
	}
	return errs
}

func (c *Config) validateBus(errs []string) []string {
	validBusTypes := map[string]bool{"memory": true, "kafka": true, "redis": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory, kafka, or redis)", c.Bus.Type))
	}
	return errs
}

func (c *Config) validateHistory(errs []string) []string {
	validHistoryTypes := map[string]bool{"none": true, "memory": true, "redis": true}
	if !validHistoryTypes[c.History.Type] {
		errs = append(errs, fmt.Sprintf("invalid history type: %s (must be none, memory, or redis)", c.History.Type))
	}

	if c.History.Type == "redis" && c.History.RedisURL == "" {
		errs = append(errs, "AWARD_HISTORY_REDIS_URL is required for redis history")
	}
	return errs
}

func (c *Config) validateLog(errs []string) []string {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}
	return errs
}
