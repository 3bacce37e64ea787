// Package notify delivers operator notifications for supervisor events
// (permanent slot failures, startup, drain) to chat platforms.
package notify

import (
	"context"
	"log"

	"github.com/zulandar/switchboard/internal/config"
)

// Severity levels for events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is a platform-neutral operator notification.
type Event struct {
	Title    string
	Body     string
	Severity string // info, warning, error
	Fields   []Field
}

// Field is a key-value pair rendered alongside the event.
type Field struct {
	Name  string
	Value string
}

// Notifier delivers events to one platform. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// Multi fans an event out to several notifiers. Delivery is best-effort:
// failures are logged and do not stop the remaining notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, evt Event) error {
	for _, n := range m {
		if err := n.Notify(ctx, evt); err != nil {
			log.Printf("notify: %v", err)
		}
	}
	return nil
}

// Noop discards all events.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(ctx context.Context, evt Event) error { return nil }

// FromConfig builds a notifier from the configured platforms. With none
// configured it returns Noop.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var out Multi

	if cfg.Slack.BotToken != "" {
		s, err := NewSlack(SlackOpts{
			BotToken:  cfg.Slack.BotToken,
			ChannelID: cfg.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	if cfg.Discord.BotToken != "" {
		d, err := NewDiscord(DiscordOpts{
			BotToken:  cfg.Discord.BotToken,
			ChannelID: cfg.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	if len(out) == 0 {
		return Noop{}, nil
	}
	return out, nil
}

// severityColor maps a severity to a sidebar color hint.
func severityColor(severity string) string {
	switch severity {
	case SeverityError:
		return "#d62828"
	case SeverityWarning:
		return "#f4a261"
	default:
		return "#457b9d"
	}
}
