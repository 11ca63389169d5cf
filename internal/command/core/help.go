package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/keshon/musicbot/internal/command"
	"github.com/keshon/musicbot/internal/config"
	"github.com/keshon/musicbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

type HelpCommand struct {
	Registry *cmd.Registry
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Get a list of available commands" }
func (c *HelpCommand) Category() string    { return "🕯️ Information" }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *HelpCommand) Run(_ context.Context, slash *command.SlashInteractionContext) error {
	return slash.Reply(&discordgo.MessageEmbed{
		Title:       config.AppName + " Help",
		Description: buildHelpByCategory(c.Registry.GetAll()),
		Color:       command.EmbedColor,
	}, true)
}

func buildHelpByCategory(all []cmd.Command) string {
	byCategory := make(map[string][]cmd.Command)
	var cats []string
	for _, c := range all {
		cat := "Other"
		if meta, ok := cmd.Root(c).(command.DiscordMeta); ok {
			cat = meta.Category()
		}
		if _, seen := byCategory[cat]; !seen {
			cats = append(cats, cat)
		}
		byCategory[cat] = append(byCategory[cat], c)
	}

	slices.SortFunc(cats, func(a, b string) int {
		if wa, wb := weight(a), weight(b); wa != wb {
			return wa - wb
		}
		return strings.Compare(a, b)
	})

	var sb strings.Builder
	for _, cat := range cats {
		fmt.Fprintf(&sb, "**%s**\n", cat)
		cmds := byCategory[cat]
		slices.SortFunc(cmds, func(a, b cmd.Command) int { return strings.Compare(a.Name(), b.Name()) })
		for _, c := range cmds {
			fmt.Fprintf(&sb, "`/%s` - %s\n", c.Name(), c.Description())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func weight(category string) int {
	if w, ok := config.CategoryWeights[category]; ok {
		return w
	}
	return 1000
}
