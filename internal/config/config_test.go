package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigConvertsUnits(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: sqlite
  path: test.db
jwt:
  secret: short
  expire_hours: 2
storage:
  type: local
  local_path: `+uploads+`
web3:
  payout_timeout_seconds: 30
sweep:
  interval_minutes: 5
  cron_secret: s3cret
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 30*time.Second, cfg.Web3.PayoutTimeout)
	assert.Equal(t, 2*time.Second, cfg.Web3.ConfirmationPoll, "default poll interval")
	assert.Equal(t, 5*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, "s3cret", cfg.Sweep.CronSecret)
	assert.Equal(t, "base", cfg.Web3.ChainName)
	assert.Equal(t, "USDC", cfg.Web3.TokenSymbol)
	assert.Equal(t, 600, cfg.RateLimit.MaxRequests)
	assert.Equal(t, "whisper-1", cfg.OpenAI.TranscriptionModel)

	info, err := os.Stat(uploads)
	require.NoError(t, err, "local storage directory is created")
	assert.True(t, info.IsDir())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
storage:
  local_path: `+t.TempDir()+`
`)
	t.Setenv("JWT_SECRET", "from-the-environment")
	t.Setenv("CRON_SECRET", "env-cron")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-the-environment", cfg.JWT.Secret)
	assert.Equal(t, "env-cron", cfg.Sweep.CronSecret)
	assert.Equal(t, 90*time.Second, cfg.Web3.PayoutTimeout)
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]string{
		"unknown driver": `
database:
  driver: oracle
`,
		"short secret in release": `
server:
  mode: release
database:
  driver: sqlite
jwt:
  secret: too-short
`,
		"web3 without contracts": `
database:
  driver: sqlite
web3:
  enabled: true
  rpc_url: http://127.0.0.1:8545
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body+`
storage:
  local_path: `+t.TempDir()+`
`))
			assert.Error(t, err)
		})
	}
}
