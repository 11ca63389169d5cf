package command

import (
	"context"
	"fmt"

	"github.com/keshon/musicbot/internal/storage"
	"github.com/keshon/musicbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

// SlashInteractionContext is what the bot passes as cmd.Invocation.Data
// for a slash command.
type SlashInteractionContext struct {
	Session   *discordgo.Session
	Event     *discordgo.InteractionCreate
	Storage   *storage.Storage
	Responder Responder
}

// SlashProvider is implemented by commands that register a slash command.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// DiscordMeta lets middleware and /help read the category without knowing
// the concrete command type.
type DiscordMeta interface {
	Category() string
}

// DiscordCommand is what individual Discord commands implement.
type DiscordCommand interface {
	Name() string
	Description() string
	Category() string
	Run(ctx context.Context, slash *SlashInteractionContext) error
}

// DiscordAdapter lets a DiscordCommand live in a cmd.Registry.
type DiscordAdapter struct {
	Cmd DiscordCommand
}

func (a *DiscordAdapter) Name() string        { return a.Cmd.Name() }
func (a *DiscordAdapter) Description() string { return a.Cmd.Description() }
func (a *DiscordAdapter) Category() string    { return a.Cmd.Category() }

func (a *DiscordAdapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	slash, ok := inv.Data.(*SlashInteractionContext)
	if !ok {
		return fmt.Errorf("command %s: unsupported invocation %T", a.Cmd.Name(), inv.Data)
	}
	return a.Cmd.Run(ctx, slash)
}

func (a *DiscordAdapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// RegisterCommand wraps discordCmd in mws and adds it to r.
func RegisterCommand(r *cmd.Registry, discordCmd DiscordCommand, mws ...cmd.Middleware) error {
	return r.Register(cmd.Apply(&DiscordAdapter{Cmd: discordCmd}, mws...))
}

// Definition returns the slash definition of a registered command, looking
// through middleware wrappers.
func Definition(c cmd.Command) *discordgo.ApplicationCommand {
	sp, ok := cmd.Root(c).(SlashProvider)
	if !ok {
		return nil
	}
	def := sp.SlashDefinition()
	if def != nil && def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	return def
}

// UserOf returns the invoking user of an interaction, falling back to a
// placeholder for malformed events.
func UserOf(e *discordgo.InteractionCreate) *discordgo.User {
	if e.Member != nil && e.Member.User != nil {
		return e.Member.User
	}
	if e.User != nil {
		return e.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}

// DisplayName prefers the guild nickname, then the global name.
func DisplayName(e *discordgo.InteractionCreate) string {
	if e.Member != nil && e.Member.Nick != "" {
		return e.Member.Nick
	}
	u := UserOf(e)
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Invoke runs c with slash as the invocation data.
func Invoke(ctx context.Context, c cmd.Command, slash *SlashInteractionContext) error {
	return c.Run(ctx, &cmd.Invocation{Data: slash})
}
