package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefaultsNeedOnlyAPlayer(t *testing.T) {
	t.Setenv("WEB3_PLAYER_ID", "p1")

	cfg, err := Load("", noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "p1", cfg.Player.ID)
	assert.Equal(t, "http://127.0.0.1:8789", cfg.Bridge.URL)
	assert.Equal(t, 5*time.Second, cfg.Bridge.GetTimeout)
	assert.Equal(t, 10*time.Second, cfg.Bridge.PostTimeout)
	assert.Equal(t, 300*time.Second, cfg.Wallet.ConnectTimeout)
	assert.Equal(t, 2*time.Second, cfg.Wallet.PollInterval)
	assert.Equal(t, 120*time.Second, cfg.Sign.Timeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Sign.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.Prover.ProveTimeout)
	assert.Equal(t, TestnetPassphrase, cfg.Soroban.NetworkPassphrase)
	assert.Equal(t, 0, cfg.MaxInFlight)
}

func TestMissingPlayerIsRejected(t *testing.T) {
	t.Setenv("WEB3_PLAYER_ID", "")

	_, err := Load("", noEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEB3_PLAYER_ID")
}

func TestYAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "chainplay.yaml", `
player:
  id: from-yaml
  display_name: Alice
bridge:
  url: http://bridge.local:9000
sign:
  timeout: 30s
  poll_interval: 250ms
max_in_flight: 8
`)
	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", cfg.Player.ID)
	assert.Equal(t, "Alice", cfg.Player.DisplayName)
	assert.Equal(t, "http://bridge.local:9000", cfg.Bridge.URL)
	assert.Equal(t, 30*time.Second, cfg.Sign.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Sign.PollInterval)
	assert.Equal(t, 8, cfg.MaxInFlight)
	assert.Equal(t, 5*time.Second, cfg.Bridge.GetTimeout, "untouched keys keep their default")
}

func TestEnvironmentOverridesYAML(t *testing.T) {
	path := writeFile(t, "chainplay.yaml", "player:\n  id: from-yaml\nsign:\n  timeout: 30s\n")
	t.Setenv("WEB3_PLAYER_ID", "from-env")
	t.Setenv("SIGN_POLL_INTERVAL", "100ms")

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Player.ID)
	assert.Equal(t, 30*time.Second, cfg.Sign.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Sign.PollInterval)
}

func TestDotEnvFile(t *testing.T) {
	const key = "SOROBAN_CONTRACT_ID"
	t.Setenv("WEB3_PLAYER_ID", "p1")
	// godotenv writes the process environment; t.Setenv restores it afterwards
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))

	envFile := writeFile(t, ".env", key+"=CCONTRACT\n")
	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "CCONTRACT", cfg.Soroban.ContractID)
}

func TestUnknownYAMLKey(t *testing.T) {
	path := writeFile(t, "chainplay.yaml", "player:\n  id: p1\nbrige:\n  url: http://x\n")
	_, err := Load(path, noEnvFile(t))
	require.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Player.ID = "p1"
	cfg.Bridge.URL = "bridge:8789"
	cfg.Sign.Timeout = time.Second
	cfg.Sign.PollInterval = 2 * time.Second
	cfg.Wallet.PollInterval = 0
	cfg.MaxInFlight = -1

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "bridge url")
	assert.Contains(t, msg, "sign.poll_interval")
	assert.Contains(t, msg, "wallet.poll_interval must be positive")
	assert.Contains(t, msg, "max_in_flight")
}
