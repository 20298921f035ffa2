package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		config  Config
		wantErr bool
	}{
		{
			name: "valid oauth config",
			config: Config{
				ClientID:      "test-client",
				ClientSecret:  "test-secret",
				RefreshToken:  "test-token",
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
		},
		{
			name: "oauth with saved token file",
			config: Config{
				ClientID:     "test-client",
				ClientSecret: "test-secret",
				TokenFile:    "/tmp/token.json",
				BatchSize:    100,
			},
		},
		{
			name: "valid service account config",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         time.Second,
			},
		},
		{
			name:    "missing auth",
			config:  Config{BatchSize: 100},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "partial oauth credentials",
			config: Config{
				ClientID:     "test-client",
				RefreshToken: "test-token",
				BatchSize:    100,
			},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "multiple auth methods",
			config: Config{
				ClientID:           "test-client",
				ClientSecret:       "test-secret",
				RefreshToken:       "test-token",
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
			wantErr: true,
			errMsg:  "multiple authentication methods configured",
		},
		{
			name:    "invalid batch size",
			config:  Config{ServiceAccountPath: "/k.json"},
			wantErr: true,
			errMsg:  "batch size must be positive",
		},
		{
			name:    "negative retry attempts",
			config:  Config{ServiceAccountPath: "/k.json", BatchSize: 1, RetryAttempts: -1},
			wantErr: true,
			errMsg:  "retry attempts cannot be negative",
		},
		{
			name:    "negative retry delay",
			config:  Config{ServiceAccountPath: "/k.json", BatchSize: 1, RetryDelay: -time.Second},
			wantErr: true,
			errMsg:  "retry delay cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceAccountPath = "/k.json"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "Expense Report", cfg.SpreadsheetName)
}
