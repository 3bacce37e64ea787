package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// discordClient abstracts the discordgo methods we use, enabling test mocks.
type discordClient interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts events to a Discord channel as embeds. Only the REST API
// is used; no gateway connection is opened.
type Discord struct {
	client    discordClient
	channelID string
}

// DiscordOpts holds parameters for creating a Discord notifier.
type DiscordOpts struct {
	BotToken  string
	ChannelID string

	// For testing: inject a mock client instead of the real Discord API.
	Client discordClient
}

// NewDiscord creates a Discord notifier.
func NewDiscord(opts DiscordOpts) (*Discord, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("notify: discord channel ID is required")
	}
	client := opts.Client
	if client == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("notify: discord bot token is required")
		}
		session, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("notify: discord session: %w", err)
		}
		client = session
	}
	return &Discord{client: client, channelID: opts.ChannelID}, nil
}

// Notify implements Notifier.
func (d *Discord) Notify(ctx context.Context, evt Event) error {
	fields := make([]*discordgo.MessageEmbedField, 0, len(evt.Fields))
	for _, f := range evt.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:       evt.Title,
		Description: evt.Body,
		Color:       embedColor(evt.Severity),
		Fields:      fields,
	}

	_, err := d.client.ChannelMessageSendComplex(d.channelID,
		&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}},
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("notify: discord send: %w", err)
	}
	return nil
}

// embedColor converts the severity color hint to Discord's integer form.
func embedColor(severity string) int {
	hex := strings.TrimPrefix(severityColor(severity), "#")
	n, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0
	}
	return int(n)
}
