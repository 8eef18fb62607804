// Package alert is the alert collaborator: it delivers unnatural-silence
// notifications for flagged recordings. Delivery failures are non-fatal to
// the pipeline; they are logged and never retried within a run.
package alert

import (
	"context"
	"errors"
	"time"

	"github.com/SonixLabs/SilenceKit/audio"
)

// ErrDeliveryFailure wraps transport-level send errors so callers can treat
// every delivery problem uniformly.
var ErrDeliveryFailure = errors.New("alert: delivery failed")

// ErrRateLimited is returned when an alert is dropped by a rate limiter.
var ErrRateLimited = errors.New("alert: rate limited")

// Summary describes the flagged recording in the notification.
type Summary struct {
	RecordingID string
	Title       string
	Kind        string
	CreatedAt   time.Time
}

// Notifier delivers an unnatural-silence alert to a recipient.
type Notifier interface {
	// Send delivers one alert through the given relay. A zero relay falls
	// back to the notifier's own configuration. A non-nil error means the
	// alert was not delivered; the caller decides whether that matters.
	Send(ctx context.Context, relay SMTPConfig, recipient string, summary Summary, silences []audio.UnnaturalSilence) error
}

// SMTPConfig holds mail relay settings. A zero Host disables delivery.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// From is the envelope sender. Empty falls back to User.
	From string `yaml:"from"`
}

// Configured reports whether the relay settings are usable.
func (c SMTPConfig) Configured() bool {
	return c.Host != ""
}
