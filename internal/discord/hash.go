package discord

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// commandShape is the part of a slash definition Discord cares about.
// IDs and versions assigned by Discord are left out.
type commandShape struct {
	Name        string                           `json:"name"`
	Description string                           `json:"description"`
	Type        discordgo.ApplicationCommandType `json:"type"`
	Options     []optionShape                    `json:"options,omitempty"`
}

type optionShape struct {
	Name        string                                 `json:"name"`
	Description string                                 `json:"description"`
	Type        discordgo.ApplicationCommandOptionType `json:"type"`
	Required    bool                                   `json:"required"`
	MinValue    *float64                               `json:"min_value,omitempty"`
	MaxValue    float64                                `json:"max_value,omitempty"`
	Choices     []string                               `json:"choices,omitempty"`
	Options     []optionShape                          `json:"options,omitempty"`
}

// hashCommand returns a stable digest of def, independent of option order.
func hashCommand(def *discordgo.ApplicationCommand) string {
	shape := commandShape{
		Name:        def.Name,
		Description: def.Description,
		Type:        def.Type,
		Options:     shapeOptions(def.Options),
	}
	data, _ := json.Marshal(shape)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func shapeOptions(opts []*discordgo.ApplicationCommandOption) []optionShape {
	if len(opts) == 0 {
		return nil
	}
	out := make([]optionShape, 0, len(opts))
	for _, o := range opts {
		s := optionShape{
			Name:        o.Name,
			Description: o.Description,
			Type:        o.Type,
			Required:    o.Required,
			MinValue:    o.MinValue,
			MaxValue:    o.MaxValue,
			Options:     shapeOptions(o.Options),
		}
		for _, c := range o.Choices {
			b, _ := json.Marshal(c.Value)
			s.Choices = append(s.Choices, c.Name+"="+string(b))
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b optionShape) int { return strings.Compare(a.Name, b.Name) })
	return out
}
