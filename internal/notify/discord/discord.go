// Package discord implements the notify.Notifier for Discord.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/jspencer/fieldlink/internal/models"
	"github.com/jspencer/fieldlink/internal/notify"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts worker notifications to a Discord channel. Messages go
// over the Discord REST API; no gateway connection is held.
type Notifier struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}

	n := &Notifier{sess: opts.Session, channelID: opts.ChannelID}
	if n.sess == nil {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		n.sess = dg
	}
	return n, nil
}

func (n *Notifier) IncomingJob(ctx context.Context, job *models.Job) error {
	return n.send(notify.FormatIncomingJob(job))
}

func (n *Notifier) JobInvalid(ctx context.Context, jobID int64) error {
	return n.send(notify.FormatJobInvalid(jobID))
}

func (n *Notifier) Disconnected(ctx context.Context) error {
	return n.send(notify.FormatDisconnected())
}

func (n *Notifier) ClearDisconnected(ctx context.Context) error {
	return n.send(notify.FormatReconnected())
}

func (n *Notifier) Digest(ctx context.Context, d notify.Summary) error {
	return n.send(notify.FormatSummary(d))
}

// send translates a Message to a Discord embed and posts it.
func (n *Notifier) send(msg notify.Message) error {
	data := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{toEmbed(msg)},
	}
	if _, err := n.sess.ChannelMessageSendComplex(n.channelID, data); err != nil {
		return fmt.Errorf("discord: send %q: %w", msg.Title, err)
	}
	return nil
}

// toEmbed converts a Message to a Discord Embed.
func toEmbed(msg notify.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Body,
	}
	if msg.Color != "" {
		embed.Color = parseHexColor(msg.Color)
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}
	return embed
}

// parseHexColor converts a hex color string (e.g. "#36a64f") to an int.
func parseHexColor(hex string) int {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	var color int
	for _, c := range hex {
		color <<= 4
		switch {
		case c >= '0' && c <= '9':
			color |= int(c - '0')
		case c >= 'a' && c <= 'f':
			color |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			color |= int(c-'A') + 10
		}
	}
	return color
}
