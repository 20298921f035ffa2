// Package config loads application settings from the config file, a .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/llm"
	"github.com/Veraticus/expensesbot/internal/money"
	"github.com/Veraticus/expensesbot/internal/timezone"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the typed application configuration.
type Config struct {
	LLM              LLMConfig
	Database         DatabaseConfig
	TelegramToken    string
	VisionAPIKey     string
	DefaultCurrency  string
	DefaultTimezone  string
	ReceiptDir       string
	StatePath        string
	ReceiptRetention time.Duration
	HealthPort       int
}

// LLMConfig selects the text-completion provider.
type LLMConfig struct {
	Provider   string
	APIKey     string
	Model      string
	DailyLimit int
}

// Configured reports whether a provider key is present.
func (c LLMConfig) Configured() bool {
	return c.APIKey != ""
}

// DatabaseConfig locates the relational store.
type DatabaseConfig struct {
	Driver string
	Path   string
	URL    string
}

// DSN returns the data source for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == DriverPostgres {
		return c.URL
	}
	return c.Path
}

// env maps viper keys to the environment variables that override them.
var env = map[string]string{
	"telegram.token":          "TELEGRAM_BOT_TOKEN",
	"llm.provider":            "LLM_PROVIDER",
	"llm.model":               "LLM_MODEL",
	"llm.daily_limit":         "LLM_DAILY_LIMIT",
	"llm.keys.deepseek":       "DEEPSEEK_API_KEY",
	"llm.keys.openai":         "OPENAI_API_KEY",
	"llm.keys.anthropic":      "ANTHROPIC_API_KEY",
	"vision.api_key":          "GOOGLE_VISION_API_KEY",
	"database.driver":         "DB_DRIVER",
	"database.path":           "DB_PATH",
	"database.url":            "DATABASE_URL",
	"defaults.currency":       "DEFAULT_CURRENCY",
	"defaults.timezone":       "DEFAULT_TIMEZONE",
	"receipts.retention_days": "RECEIPT_RETENTION_DAYS",
	"receipts.dir":            "RECEIPT_DIR",
	"health.port":             "HEALTH_PORT",
	"state.path":              "STATE_PATH",
	"sheets.service_account":  "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
	"sheets.client_id":        "GOOGLE_SHEETS_CLIENT_ID",
	"sheets.client_secret":    "GOOGLE_SHEETS_CLIENT_SECRET",
	"sheets.refresh_token":    "GOOGLE_SHEETS_REFRESH_TOKEN",
	"sheets.token_file":       "GOOGLE_SHEETS_TOKEN_FILE",
	"sheets.spreadsheet_id":   "GOOGLE_SHEETS_SPREADSHEET_ID",
	"sheets.spreadsheet_name": "GOOGLE_SHEETS_SPREADSHEET_NAME",
}

// providerOrder is the order in which keys are tried when no provider is
// named.
var providerOrder = []string{llm.ProviderDeepSeek, llm.ProviderOpenAI, llm.ProviderAnthropic}

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are named. Variables already set in the environment win. Missing files are
// not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("no .env file", "path", p)
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		slog.Debug("loaded .env file", "path", p)
	}
	return nil
}

// Bind registers defaults and environment bindings on v.
func Bind(v *viper.Viper) error {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "~/.local/share/expensesbot/expenses.db")
	v.SetDefault("defaults.currency", "EUR")
	v.SetDefault("defaults.timezone", "UTC+0")
	v.SetDefault("receipts.retention_days", 90)
	v.SetDefault("receipts.dir", "~/.local/share/expensesbot/receipts")
	v.SetDefault("health.port", 5000)
	v.SetDefault("state.path", "~/.local/share/expensesbot/state.db")
	v.SetDefault("sheets.spreadsheet_name", "Expense Report")

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the typed configuration from v. Bind must have been called.
// Missing API keys are not errors; the features that need them are
// disabled instead.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		TelegramToken: v.GetString("telegram.token"),
		VisionAPIKey:  v.GetString("vision.api_key"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("database.driver")),
			Path:   ExpandPath(v.GetString("database.path")),
			URL:    v.GetString("database.url"),
		},
		DefaultTimezone:  v.GetString("defaults.timezone"),
		ReceiptDir:       ExpandPath(v.GetString("receipts.dir")),
		StatePath:        ExpandPath(v.GetString("state.path")),
		ReceiptRetention: time.Duration(v.GetInt("receipts.retention_days")) * 24 * time.Hour,
		HealthPort:       v.GetInt("health.port"),
	}

	currency, ok := money.NormalizeCurrency(v.GetString("defaults.currency"))
	if !ok {
		return nil, fmt.Errorf("%w: invalid DEFAULT_CURRENCY %q", common.ErrInvalidConfig, v.GetString("defaults.currency"))
	}
	cfg.DefaultCurrency = currency

	label, ok := timezoneLabel(cfg.DefaultTimezone)
	if !ok {
		return nil, fmt.Errorf("%w: invalid DEFAULT_TIMEZONE %q", common.ErrInvalidConfig, cfg.DefaultTimezone)
	}
	cfg.DefaultTimezone = label

	switch cfg.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("%w: DATABASE_URL is required for postgres", common.ErrMissingConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported DB_DRIVER %q", common.ErrInvalidConfig, cfg.Database.Driver)
	}

	if cfg.ReceiptRetention <= 0 {
		return nil, fmt.Errorf("%w: RECEIPT_RETENTION_DAYS must be positive", common.ErrInvalidConfig)
	}
	if cfg.HealthPort < 0 || cfg.HealthPort > 65535 {
		return nil, fmt.Errorf("%w: invalid HEALTH_PORT %d", common.ErrInvalidConfig, cfg.HealthPort)
	}

	llmCfg, err := loadLLM(v)
	if err != nil {
		return nil, err
	}
	cfg.LLM = llmCfg
	return cfg, nil
}

// timezoneLabel accepts a label ("UTC+9", "UTC-3.5") or a city name.
func timezoneLabel(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if rest, ok := strings.CutPrefix(strings.ToUpper(input), "UTC"); ok {
		if rest == "" {
			return timezone.FormatLabel(0), true
		}
		offset, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return "", false
		}
		info, ok := timezone.ByOffset(offset)
		return info.Label(), ok
	}
	info, ok := timezone.ByCity(input)
	if !ok {
		return "", false
	}
	return info.Label(), true
}

// loadLLM picks the named provider, or the first one with a key.
func loadLLM(v *viper.Viper) (LLMConfig, error) {
	c := LLMConfig{
		Provider: strings.ToLower(v.GetString("llm.provider")),
		Model:    v.GetString("llm.model"),
	}

	if c.Provider == "" {
		for _, p := range providerOrder {
			if v.GetString("llm.keys."+p) != "" {
				c.Provider = p
				break
			}
		}
	}
	if c.Provider == "" {
		c.Provider = llm.ProviderDeepSeek
	}
	if !slices.Contains(providerOrder, c.Provider) {
		return LLMConfig{}, fmt.Errorf("%w: unsupported LLM_PROVIDER %q", common.ErrInvalidConfig, c.Provider)
	}

	c.APIKey = v.GetString("llm.keys." + c.Provider)
	c.DailyLimit = v.GetInt("llm.daily_limit")
	if c.DailyLimit <= 0 {
		c.DailyLimit = llm.DefaultDailyLimit(c.Provider)
	}
	return c, nil
}
