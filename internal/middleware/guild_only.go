package middleware

import (
	"context"

	"github.com/keshon/musicbot/internal/command"
	"github.com/keshon/musicbot/pkg/cmd"
)

// WithGuildOnly rejects slash commands issued outside a guild.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if v, ok := inv.Data.(*command.SlashInteractionContext); ok && v.Event.GuildID == "" {
				return v.ReplyError("You must be in a guild to use this command.")
			}
			return c.Run(ctx, inv)
		})
	}
}
