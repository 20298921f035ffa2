package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/llm"
)

// newViper returns a bound viper with every known variable cleared, so the
// test environment cannot leak in.
func newViper(t *testing.T, vars map[string]string) *viper.Viper {
	t.Helper()
	for _, name := range env {
		t.Setenv(name, "")
	}
	for k, val := range vars {
		t.Setenv(k, val)
	}
	v := viper.New()
	require.NoError(t, Bind(v))
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t, nil))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "expenses.db", filepath.Base(cfg.Database.DSN()))
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, "UTC+0", cfg.DefaultTimezone)
	assert.Equal(t, 90*24*time.Hour, cfg.ReceiptRetention)
	assert.Equal(t, 5000, cfg.HealthPort)
	assert.Equal(t, llm.ProviderDeepSeek, cfg.LLM.Provider)
	assert.False(t, cfg.LLM.Configured())
	assert.Equal(t, llm.DefaultDailyLimit(llm.ProviderDeepSeek), cfg.LLM.DailyLimit)
	assert.Empty(t, cfg.TelegramToken)
	assert.Empty(t, cfg.VisionAPIKey)
}

func TestLoad_Environment(t *testing.T) {
	tests := []struct {
		vars  map[string]string
		check func(t *testing.T, cfg *Config)
		name  string
	}{
		{
			name: "postgres",
			vars: map[string]string{"DB_DRIVER": "Postgres", "DATABASE_URL": "postgres://u:p@db/expenses"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DriverPostgres, cfg.Database.Driver)
				assert.Equal(t, "postgres://u:p@db/expenses", cfg.Database.DSN())
			},
		},
		{
			name: "first provider with a key",
			vars: map[string]string{"ANTHROPIC_API_KEY": "sk-ant", "OPENAI_API_KEY": "sk-oa"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Provider)
				assert.Equal(t, "sk-oa", cfg.LLM.APIKey)
			},
		},
		{
			name: "named provider",
			vars: map[string]string{"LLM_PROVIDER": "anthropic", "ANTHROPIC_API_KEY": "sk-ant", "DEEPSEEK_API_KEY": "ds", "LLM_DAILY_LIMIT": "50"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, llm.ProviderAnthropic, cfg.LLM.Provider)
				assert.Equal(t, "sk-ant", cfg.LLM.APIKey)
				assert.Equal(t, 50, cfg.LLM.DailyLimit)
			},
		},
		{
			name: "defaults and secrets",
			vars: map[string]string{
				"DEFAULT_CURRENCY":       "usd",
				"DEFAULT_TIMEZONE":       "Tokyo",
				"RECEIPT_RETENTION_DAYS": "7",
				"TELEGRAM_BOT_TOKEN":     "123:abc",
				"GOOGLE_VISION_API_KEY":  "vision",
				"HEALTH_PORT":            "8081",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "USD", cfg.DefaultCurrency)
				assert.Equal(t, "UTC+9", cfg.DefaultTimezone)
				assert.Equal(t, 7*24*time.Hour, cfg.ReceiptRetention)
				assert.Equal(t, "123:abc", cfg.TelegramToken)
				assert.Equal(t, "vision", cfg.VisionAPIKey)
				assert.Equal(t, 8081, cfg.HealthPort)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(newViper(t, tt.vars))
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		vars    map[string]string
		wantErr error
		name    string
	}{
		{name: "unknown driver", vars: map[string]string{"DB_DRIVER": "mysql"}, wantErr: common.ErrInvalidConfig},
		{name: "postgres without url", vars: map[string]string{"DB_DRIVER": "postgres"}, wantErr: common.ErrMissingConfig},
		{name: "bad currency", vars: map[string]string{"DEFAULT_CURRENCY": "EURO"}, wantErr: common.ErrInvalidConfig},
		{name: "bad timezone", vars: map[string]string{"DEFAULT_TIMEZONE": "Atlantis"}, wantErr: common.ErrInvalidConfig},
		{name: "bad provider", vars: map[string]string{"LLM_PROVIDER": "gemini"}, wantErr: common.ErrInvalidConfig},
		{name: "zero retention", vars: map[string]string{"RECEIPT_RETENTION_DAYS": "0"}, wantErr: common.ErrInvalidConfig},
		{name: "bad port", vars: map[string]string{"HEALTH_PORT": "70000"}, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.vars))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTimezoneLabel(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{input: "UTC", want: "UTC+0", wantOK: true},
		{input: "UTC+0", want: "UTC+0", wantOK: true},
		{input: "utc-3.5", want: "UTC-3.5", wantOK: true},
		{input: "UTC+5.5", want: "UTC+5.5", wantOK: true},
		{input: "New York", want: "UTC-5", wantOK: true},
		{input: "UTC+13", wantOK: false},
		{input: "UTCfoo", wantOK: false},
		{input: "14:30", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := timezoneLabel(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "EXPENSESBOT_DOTENV_TEST"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv(key))

	// Variables already present are not overwritten.
	t.Setenv(key, "from-env")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv(key))
}

func TestLoadSheetsConfig(t *testing.T) {
	_, err := LoadSheetsConfig(newViper(t, nil))
	require.Error(t, err)

	cfg, err := LoadSheetsConfig(newViper(t, map[string]string{
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH": "/etc/expensesbot/sa.json",
		"GOOGLE_SHEETS_SPREADSHEET_NAME":     "Household",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/etc/expensesbot/sa.json", cfg.ServiceAccountPath)
	assert.Equal(t, "Household", cfg.SpreadsheetName)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("EXPENSESBOT_DIR", "/srv/bot")

	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: ""},
		{input: "~", want: home},
		{input: "~/data/expenses.db", want: filepath.Join(home, "data/expenses.db")},
		{input: "$EXPENSESBOT_DIR/state.db", want: "/srv/bot/state.db"},
		{input: "/abs/path", want: "/abs/path"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}
