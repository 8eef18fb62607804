// Package prefs is the preferences collaborator: a two-tier lookup that
// resolves per-user analysis settings with global fallbacks. The pipeline
// receives a Provider at invocation time instead of reading settings from
// scattered global state.
package prefs

import (
	"github.com/SonixLabs/SilenceKit/alert"
)

// Provider resolves analysis preferences for a user. An empty user ID
// resolves to the global defaults.
type Provider interface {
	// VADSensitivity returns the classifier aggressiveness in [0,3].
	VADSensitivity(userID string) int

	// SilenceThreshold returns the minimum unnatural-silence duration in
	// seconds.
	SilenceThreshold(userID string) float64

	// AlertEnabled reports whether flagged recordings should trigger an
	// alert for this user. When the user has no explicit preference the
	// global default applies.
	AlertEnabled(userID string) bool

	// AlertRecipient returns the address alerts for this user go to.
	// Empty means no deliverable recipient; the pipeline skips the alert.
	AlertRecipient(userID string) string

	// SMTPConfig returns the mail relay settings for this user, falling
	// back field-by-field to the global configuration.
	SMTPConfig(userID string) alert.SMTPConfig
}
