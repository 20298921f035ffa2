package config

import (
	"github.com/spf13/viper"

	"github.com/Veraticus/expensesbot/internal/sheets"
)

// LoadSheetsConfig reads the Google Sheets export settings from v, which
// must have been prepared with Bind. The result is validated, so a missing
// credential is reported before any API call.
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	cfg := sheets.DefaultConfig()
	cfg.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account"))
	cfg.ClientID = v.GetString("sheets.client_id")
	cfg.ClientSecret = v.GetString("sheets.client_secret")
	cfg.RefreshToken = v.GetString("sheets.refresh_token")
	cfg.TokenFile = ExpandPath(v.GetString("sheets.token_file"))
	cfg.SpreadsheetID = v.GetString("sheets.spreadsheet_id")
	if name := v.GetString("sheets.spreadsheet_name"); name != "" {
		cfg.SpreadsheetName = name
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
