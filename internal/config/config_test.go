package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "https://login.questrade.com", cfg.Questrade.LoginURL)
	assert.Equal(t, filepath.Join(home, ".questrade.json"), cfg.Questrade.TokenFile)
	assert.Equal(t, filepath.Join(home, ".questrade_syms.json"), cfg.Storage.SymbolCache)
	assert.Equal(t, "orders.json", cfg.Storage.OrdersFile)
	assert.Equal(t, "executions.json", cfg.Storage.ExecutionsFile)
	assert.Equal(t, "orders.csv", cfg.Storage.ExportFile)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Zero(t, cfg.Questrade.RateLimit)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
questrade:
  account_id: "11111111"
  token_file: /tmp/token.json
storage:
  orders_file: data/orders.json
logger:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o644))
	t.Setenv("QUESTRADE_ACCOUNT_ID", "51779544")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "51779544", cfg.Questrade.AccountID)
	assert.Equal(t, "/tmp/token.json", cfg.Questrade.TokenFile)
	assert.Equal(t, "data/orders.json", cfg.Storage.OrdersFile)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoadConfig_ExpandsEveryPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	dir := t.TempDir()
	yml := `
storage:
  orders_file: ~/journal/orders.json
  executions_file: ~/journal/executions.json
  export_file: ~/journal/orders.csv
logger:
  file: ~/journal/journal.log
database:
  dsn: ~/journal/journal.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "journal", "orders.json"), cfg.Storage.OrdersFile)
	assert.Equal(t, filepath.Join(home, "journal", "executions.json"), cfg.Storage.ExecutionsFile)
	assert.Equal(t, filepath.Join(home, "journal", "orders.csv"), cfg.Storage.ExportFile)
	assert.Equal(t, filepath.Join(home, "journal", "journal.log"), cfg.Logger.File)
	assert.Equal(t, filepath.Join(home, "journal", "journal.db"), cfg.Database.DSN)
}

func TestLoadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("questrade: [unclosed"), 0o644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	testCases := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/.questrade.json", filepath.Join(home, ".questrade.json")},
		{"/abs/path.json", "/abs/path.json"},
		{"relative.json", "relative.json"},
		{"~other/x", "~other/x"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ExpandHome(tc.in)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
