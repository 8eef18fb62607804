package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/SonixLabs/SilenceKit/audio"
)

const defaultSMTPPort = 587

// sendMailFunc matches smtp.SendMail; swapped in tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers alerts by email. Each Send goes through the
// caller-resolved relay so per-user relay overrides take effect; the
// notifier's own configuration serves when the caller passes a zero relay.
type SMTPNotifier struct {
	config   SMTPConfig
	sendMail sendMailFunc
}

// NewSMTPNotifier creates a mailer with the given fallback relay.
func NewSMTPNotifier(config SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{config: config, sendMail: smtp.SendMail}
}

// Send implements Notifier. The message mirrors the operator-facing report:
// recording summary followed by the flagged silence list as JSON.
func (n *SMTPNotifier) Send(ctx context.Context, relay SMTPConfig, recipient string, summary Summary, silences []audio.UnnaturalSilence) error {
	cfg := n.config
	if relay.Configured() {
		cfg = relay
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}

	if !cfg.Configured() {
		return fmt.Errorf("%w: no SMTP host configured", ErrDeliveryFailure)
	}
	if recipient == "" {
		return fmt.Errorf("%w: no recipient", ErrDeliveryFailure)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	msg, err := buildMessage(cfg.fromAddr(), recipient, summary, silences)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	if err := n.sendMail(addr, auth, cfg.fromAddr(), []string{recipient}, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	return nil
}

// fromAddr is the envelope sender for a relay configuration.
func (c SMTPConfig) fromAddr() string {
	if c.From != "" {
		return c.From
	}
	return c.User
}

func buildMessage(from, to string, summary Summary, silences []audio.UnnaturalSilence) ([]byte, error) {
	title := summary.Title
	if title == "" {
		title = "untitled recording"
	}
	detail, err := json.MarshalIndent(silences, "", "  ")
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Alert: unnatural silences detected in %s\r\n", title)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Unnatural silences were detected in the recording:\n\n")
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Kind: %s\n", summary.Kind)
	fmt.Fprintf(&b, "Date: %s\n\n", summary.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Detected silences:\n%s\n", detail)
	return []byte(b.String()), nil
}

// Compile-time interface check.
var _ Notifier = (*SMTPNotifier)(nil)
