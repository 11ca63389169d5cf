// Package cmd is the transport-agnostic command core. A command has a name,
// a description and Run; adapters (Discord slash commands, the CLI) decide
// how it is registered and what the invocation carries.
package cmd

import "context"

// Invocation is what an adapter hands to a command. Data holds the
// adapter's own context, for example a Discord interaction.
type Invocation struct {
	Args []string
	Data any
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Middleware wraps a command; the result is still a Command.
type Middleware func(Command) Command

// Apply wraps c with mws. The first middleware ends up outermost.
func Apply(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}
