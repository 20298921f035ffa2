// Package sheets writes expense reports to Google Sheets.
package sheets

import (
	"errors"
	"time"
)

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TokenFile          string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName:  "Expense Report",
		EnableFormatting: true,
		TimeZone:         "UTC",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// HasOAuth reports whether OAuth2 client credentials are present. The
// refresh token may come from RefreshToken or a saved TokenFile.
func (c *Config) HasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && (c.RefreshToken != "" || c.TokenFile != "")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.HasOAuth()
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return errors.New("no authentication method configured")
	}
	if hasOAuth && hasServiceAccount {
		return errors.New("multiple authentication methods configured; use either OAuth2 or service account")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}
	if c.RetryAttempts < 0 {
		return errors.New("retry attempts cannot be negative")
	}
	if c.RetryDelay < 0 {
		return errors.New("retry delay cannot be negative")
	}
	return nil
}
