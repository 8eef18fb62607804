package alert

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/SonixLabs/SilenceKit/audio"
	"github.com/SonixLabs/SilenceKit/logger"
)

// RateLimited wraps a Notifier with a token-bucket limiter so a burst of
// flagged recordings cannot flood the mail relay. Alerts over the limit are
// dropped, not queued.
type RateLimited struct {
	next    Notifier
	limiter *rate.Limiter
}

// NewRateLimited caps delivery at perMinute alerts per minute with the same
// burst allowance.
func NewRateLimited(next Notifier, perMinute int) *RateLimited {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

// Send implements Notifier. A dropped alert returns ErrRateLimited.
func (r *RateLimited) Send(ctx context.Context, relay SMTPConfig, recipient string, summary Summary, silences []audio.UnnaturalSilence) error {
	if !r.limiter.Allow() {
		logger.Warn("alert dropped by rate limiter", "recording_id", summary.RecordingID)
		return fmt.Errorf("%w: recording %s", ErrRateLimited, summary.RecordingID)
	}
	return r.next.Send(ctx, relay, recipient, summary, silences)
}

var _ Notifier = (*RateLimited)(nil)
