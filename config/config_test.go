package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.General.GethRPCURL = "ws://10.0.0.2:8546"
	cfg.General.CheckMemStrict = true
	cfg.General.RequestsPerSecond = 25
	cfg.Fork.UpstreamRPCURL = "https://mainnet.example"
	cfg.Fork.BlockNumber = 17_000_000
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfig_KeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[general]\ncheck_mem_strict = true\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.General.CheckMemStrict)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.General.GethRPCURL)
	assert.Equal(t, "./data/witness_db", cfg.Database.WitnessDBPath)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[general\n"), 0644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "failed to parse config file")

	level := filepath.Join(dir, "level.toml")
	require.NoError(t, os.WriteFile(level, []byte("[general]\nlog_level = \"loud\"\n"), 0644))
	_, err = LoadConfig(level)
	assert.ErrorContains(t, err, "invalid general.log_level")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvGethRPCURL, "http://override:8545")
	t.Setenv(EnvCheckMemStrict, "1")
	t.Setenv(EnvLogLevel, "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "http://override:8545", cfg.General.GethRPCURL)
	assert.True(t, cfg.General.CheckMemStrict)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, level)
}

func TestApplyEnv_InvalidStrictness(t *testing.T) {
	t.Setenv(EnvCheckMemStrict, "sometimes")

	cfg := DefaultConfig()
	err := cfg.ApplyEnv()
	assert.ErrorContains(t, err, EnvCheckMemStrict)
	assert.False(t, cfg.General.CheckMemStrict)
}
