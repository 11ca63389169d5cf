package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "bot.log")

	closer, err := Setup(Options{Level: "debug", File: file, MaxSizeMB: 1, MaxBackups: 1, Console: &console})
	require.NoError(t, err)

	log.Info().Str("guild", "42").Msg("hello")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "hello")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"guild":"42"`)
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestDiscordLevel(t *testing.T) {
	assert.Equal(t, zerolog.ErrorLevel, discordLevel(discordgo.LogError))
	assert.Equal(t, zerolog.WarnLevel, discordLevel(discordgo.LogWarning))
	assert.Equal(t, zerolog.InfoLevel, discordLevel(discordgo.LogInformational))
	assert.Equal(t, zerolog.DebugLevel, discordLevel(discordgo.LogDebug))
}
