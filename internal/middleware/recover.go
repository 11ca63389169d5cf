package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/keshon/musicbot/internal/command"
	"github.com/keshon/musicbot/pkg/cmd"

	"github.com/rs/zerolog/log"
)

// WithRecover turns a panicking command into an error reply.
func WithRecover() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				log.Error().
					Str("command", c.Name()).
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("[Command] recovered from panic")
				err = fmt.Errorf("command %s panicked: %v", c.Name(), r)
				if v, ok := inv.Data.(*command.SlashInteractionContext); ok {
					_ = v.ReplyError("Something went wrong while running this command.")
				}
			}()
			return c.Run(ctx, inv)
		})
	}
}
