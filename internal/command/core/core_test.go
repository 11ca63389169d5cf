package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/keshon/musicbot/internal/command"
	"github.com/keshon/musicbot/internal/command/commandtest"
	"github.com/keshon/musicbot/internal/middleware"
	"github.com/keshon/musicbot/pkg/cmd"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	rec := &commandtest.Recorder{}
	c := &PingCommand{Latency: func() time.Duration { return 42 * time.Millisecond }}

	require.NoError(t, c.Run(context.Background(), commandtest.Slash(rec, "ping", "1", "text", "7")))
	msg, ok := rec.Last()
	require.True(t, ok)
	assert.Contains(t, msg.Embed.Description, "42ms")
}

func TestHelpGroupsByCategory(t *testing.T) {
	reg := cmd.NewRegistry()
	help := &HelpCommand{Registry: reg}
	require.NoError(t, command.RegisterCommand(reg, help, middleware.WithGuildOnly()))
	require.NoError(t, command.RegisterCommand(reg, &PingCommand{}))

	rec := &commandtest.Recorder{}
	require.NoError(t, help.Run(context.Background(), commandtest.Slash(rec, "help", "1", "text", "7")))

	msg, ok := rec.Last()
	require.True(t, ok)
	assert.True(t, msg.Ephemeral)
	out := msg.Embed.Description
	assert.Contains(t, out, "`/help` - Get a list of available commands")
	assert.Contains(t, out, "`/ping` - Check the bot's latency")
	assert.Less(t, strings.Index(out, "Information"), strings.Index(out, "Maintenance"))
}

