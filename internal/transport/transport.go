// Package transport models the signaling/media mechanisms a session can
// use and validates their per-provider credential requirements.
package transport

import (
	"fmt"

	"github.com/zulandar/switchboard/internal/config"
)

// Kind is a closed enum of supported transports.
type Kind int

const (
	WebRTC Kind = iota
	Daily
	Twilio
	Telnyx
	Plivo
)

// String returns the lowercase wire name of the transport.
func (k Kind) String() string {
	switch k {
	case WebRTC:
		return "webrtc"
	case Daily:
		return "daily"
	case Twilio:
		return "twilio"
	case Telnyx:
		return "telnyx"
	case Plivo:
		return "plivo"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Telephony reports whether the transport is a telephony provider that
// delivers sessions via webhook.
func (k Kind) Telephony() bool {
	return k == Twilio || k == Telnyx || k == Plivo
}

// Parse maps a wire name to a Kind.
func Parse(name string) (Kind, error) {
	switch name {
	case "webrtc":
		return WebRTC, nil
	case "daily":
		return Daily, nil
	case "twilio":
		return Twilio, nil
	case "telnyx":
		return Telnyx, nil
	case "plivo":
		return Plivo, nil
	default:
		return 0, fmt.Errorf("transport: unknown transport %q", name)
	}
}

// ConfigError reports a missing or invalid credential for a transport.
// It surfaces at request time as a 4xx response with a detail field.
type ConfigError struct {
	Transport Kind
	Missing   []string // names of the missing settings, e.g. DAILY_API_KEY
}

func (e *ConfigError) Error() string {
	if len(e.Missing) == 1 {
		return fmt.Sprintf("transport: %s not configured: %s is not set", e.Transport, e.Missing[0])
	}
	return fmt.Sprintf("transport: %s not configured: missing %d settings", e.Transport, len(e.Missing))
}

// Detail renders the operator-facing message for the HTTP detail field.
func (e *ConfigError) Detail() string {
	msg := fmt.Sprintf("%s transport is not configured; missing credential", e.Transport)
	if len(e.Missing) > 1 {
		msg += "s"
	}
	msg += ":"
	for i, m := range e.Missing {
		if i > 0 {
			msg += ","
		}
		msg += " " + m
	}
	return msg
}

// ValidateCredentials checks that the configuration carries everything the
// given transport needs. Returns a *ConfigError listing what is missing.
// WebRTC needs no provider credentials.
func ValidateCredentials(k Kind, cfg *config.Config) error {
	var missing []string
	switch k {
	case WebRTC:
		// No provider credentials required.
	case Daily:
		if cfg.Daily.APIKey == "" {
			missing = append(missing, "DAILY_API_KEY")
		}
	case Twilio:
		if cfg.Twilio.AccountSID == "" {
			missing = append(missing, "TWILIO_ACCOUNT_SID")
		}
		if cfg.Twilio.AuthToken == "" {
			missing = append(missing, "TWILIO_AUTH_TOKEN")
		}
	case Telnyx:
		if cfg.Telnyx.APIKey == "" {
			missing = append(missing, "TELNYX_API_KEY")
		}
	case Plivo:
		if cfg.Plivo.AuthID == "" {
			missing = append(missing, "PLIVO_AUTH_ID")
		}
		if cfg.Plivo.AuthToken == "" {
			missing = append(missing, "PLIVO_AUTH_TOKEN")
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Transport: k, Missing: missing}
	}
	return nil
}
