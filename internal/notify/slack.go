package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts events to a Slack channel as attachment messages.
type Slack struct {
	client    slackClient
	channelID string
}

// SlackOpts holds parameters for creating a Slack notifier.
type SlackOpts struct {
	BotToken  string // xoxb-... bot token
	ChannelID string // channel to post to

	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlack creates a Slack notifier.
func NewSlack(opts SlackOpts) (*Slack, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("notify: slack channel ID is required")
	}
	client := opts.Client
	if client == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("notify: slack bot token is required")
		}
		client = slackapi.New(opts.BotToken)
	}
	return &Slack{client: client, channelID: opts.ChannelID}, nil
}

// Notify implements Notifier.
func (s *Slack) Notify(ctx context.Context, evt Event) error {
	fields := make([]slackapi.AttachmentField, 0, len(evt.Fields))
	for _, f := range evt.Fields {
		fields = append(fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: true,
		})
	}

	attachment := slackapi.Attachment{
		Title:  evt.Title,
		Text:   evt.Body,
		Color:  severityColor(evt.Severity),
		Fields: fields,
	}

	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}
