package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/voicebot/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DISCORD_BOT_TOKEN":  "token",
		"SUPPORT_SERVER_URL": "https://discord.gg/help",
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := config.Parse(baseEnv())
	require.NoError(t, err)

	assert.Equal(t, config.EnvDevelopment, cfg.AppEnv)
	assert.Equal(t, config.ScopeGuild, cfg.CommandScope)
	assert.Equal(t, 4*time.Second, cfg.ReconnectTimeout)
	assert.Equal(t, "data/commands", cfg.CommandCacheDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
}

func TestParseScopeFollowsEnvironment(t *testing.T) {
	for appEnv, want := range map[string]config.Scope{
		config.EnvDevelopment: config.ScopeGuild,
		config.EnvTest:        config.ScopeGuild,
		config.EnvProduction:  config.ScopePublic,
	} {
		t.Run(appEnv, func(t *testing.T) {
			e := baseEnv()
			e["APP_ENV"] = appEnv
			cfg, err := config.Parse(e)
			require.NoError(t, err)
			assert.Equal(t, want, cfg.CommandScope)
		})
	}
}

func TestParseExplicitScopeWins(t *testing.T) {
	e := baseEnv()
	e["APP_ENV"] = config.EnvProduction
	e["COMMAND_SCOPE"] = "guild"

	cfg, err := config.Parse(e)
	require.NoError(t, err)
	assert.Equal(t, config.ScopeGuild, cfg.CommandScope)
}

func TestParseMissingRequired(t *testing.T) {
	for _, key := range []string{"DISCORD_BOT_TOKEN", "SUPPORT_SERVER_URL"} {
		t.Run(key, func(t *testing.T) {
			e := baseEnv()
			delete(e, key)

			_, err := config.Parse(e)
			var cerr *config.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, key, cerr.Key)
		})
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"APP_ENV":           "staging",
		"COMMAND_SCOPE":     "everywhere",
		"RECONNECT_TIMEOUT": "0s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			e := baseEnv()
			e[key] = value

			_, err := config.Parse(e)
			var cerr *config.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, key, cerr.Key)
		})
	}
}

func TestParseInvalidDuration(t *testing.T) {
	e := baseEnv()
	e["RECONNECT_TIMEOUT"] = "soon"

	_, err := config.Parse(e)
	assert.Error(t, err)
}

func TestLoadReadsEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("DISCORD_BOT_TOKEN=from-dotenv\nSUPPORT_SERVER_URL=https://base\nTEST_GUILD_ID=111\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"),
		[]byte("SUPPORT_SERVER_URL=https://test\n"), 0o644))
	t.Chdir(dir)

	t.Setenv("APP_ENV", config.EnvTest)
	t.Setenv("TEST_GUILD_ID", "222")
	for _, key := range []string{"DISCORD_BOT_TOKEN", "SUPPORT_SERVER_URL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.DiscordToken)
	assert.Equal(t, "https://test", cfg.SupportServerURL)
	assert.Equal(t, "222", cfg.TestGuildID)
	assert.Equal(t, config.ScopeGuild, cfg.CommandScope)
}

func TestConfigErrorMessage(t *testing.T) {
	assert.Equal(t, "config: DISCORD_BOT_TOKEN is not set", (&config.ConfigError{Key: "DISCORD_BOT_TOKEN"}).Error())
}
