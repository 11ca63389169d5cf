package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("missing token is fatal", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "")
		_, err := Parse()
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "secret")
		cfg, err := Parse()
		require.NoError(t, err)
		assert.Equal(t, "secret", cfg.DiscordToken)
		assert.Equal(t, "datastore.json", cfg.StoragePath)
		assert.True(t, cfg.InitSlashCommands)
		assert.Equal(t, 15*time.Minute, cfg.IdleDisconnectAfter)
		assert.Equal(t, 3, cfg.ResolveAttempts)
		assert.Equal(t, 2, cfg.CooldownUses)
		assert.Equal(t, 5*time.Second, cfg.CooldownWindow)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "secret")
		t.Setenv("DISCORD_GUILD_BLACKLIST", "1,2")
		t.Setenv("IDLE_DISCONNECT_AFTER", "90s")
		t.Setenv("YOUTUBE_PROXY", "socks5://127.0.0.1:1080")
		cfg, err := Parse()
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, cfg.DiscordGuildBlacklist)
		assert.Equal(t, 90*time.Second, cfg.IdleDisconnectAfter)
		assert.Equal(t, "socks5://127.0.0.1:1080", cfg.YouTubeProxy)
	})

	t.Run("invalid attempts", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "secret")
		t.Setenv("RESOLVE_ATTEMPTS", "0")
		_, err := Parse()
		assert.Error(t, err)
	})
}
