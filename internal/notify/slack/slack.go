// Package slack implements the notify.Notifier for Slack.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/jspencer/fieldlink/internal/models"
	"github.com/jspencer/fieldlink/internal/notify"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts worker notifications to a Slack channel over the Web API.
type Notifier struct {
	client    slackClient
	channelID string
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel ID is required")
	}

	n := &Notifier{client: opts.Client, channelID: opts.ChannelID}
	if n.client == nil {
		n.client = slackapi.New(opts.BotToken)
	}
	return n, nil
}

func (n *Notifier) IncomingJob(ctx context.Context, job *models.Job) error {
	return n.send(ctx, notify.FormatIncomingJob(job))
}

func (n *Notifier) JobInvalid(ctx context.Context, jobID int64) error {
	return n.send(ctx, notify.FormatJobInvalid(jobID))
}

func (n *Notifier) Disconnected(ctx context.Context) error {
	return n.send(ctx, notify.FormatDisconnected())
}

func (n *Notifier) ClearDisconnected(ctx context.Context) error {
	return n.send(ctx, notify.FormatReconnected())
}

func (n *Notifier) Digest(ctx context.Context, d notify.Summary) error {
	return n.send(ctx, notify.FormatSummary(d))
}

// send translates a Message to a Slack attachment and posts it.
func (n *Notifier) send(ctx context.Context, msg notify.Message) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slackapi.MsgOptionAttachments(toAttachment(msg)))
	if err != nil {
		return fmt.Errorf("slack: send %q: %w", msg.Title, err)
	}
	return nil
}

// toAttachment converts a Message to a Slack attachment.
func toAttachment(msg notify.Message) slackapi.Attachment {
	att := slackapi.Attachment{
		Title: msg.Title,
		Text:  msg.Body,
		Color: msg.Color,
	}
	for _, f := range msg.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return att
}
