package prefs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SonixLabs/SilenceKit/alert"
	"github.com/SonixLabs/SilenceKit/audio"
)

// Defaults holds the global tier of the preference lookup.
type Defaults struct {
	// VADSensitivity is the classifier aggressiveness in [0,3].
	VADSensitivity int `yaml:"vad_sensitivity"`

	// SilenceThreshold is the minimum unnatural-silence duration in seconds.
	SilenceThreshold float64 `yaml:"silence_threshold_seconds"`

	// AlertEnabled controls alerting for users without an explicit
	// preference. By convention it is true only when SMTP.Host is set.
	AlertEnabled bool `yaml:"alert_enabled"`

	// SMTP is the global mail relay configuration.
	SMTP alert.SMTPConfig `yaml:"smtp"`
}

// UserOverride is the per-user tier. Pointer fields distinguish "not set"
// (fall through to the global tier) from an explicit zero value.
type UserOverride struct {
	VADSensitivity   *int     `yaml:"vad_sensitivity,omitempty"`
	SilenceThreshold *float64 `yaml:"silence_threshold_seconds,omitempty"`
	AlertEnabled     *bool    `yaml:"alert_enabled,omitempty"`
	AlertRecipient   string   `yaml:"alert_recipient,omitempty"`

	// SMTP overrides are merged field-by-field over the global config.
	SMTPHost     string `yaml:"smtp_host,omitempty"`
	SMTPPort     int    `yaml:"smtp_port,omitempty"`
	SMTPUser     string `yaml:"smtp_user,omitempty"`
	SMTPPassword string `yaml:"smtp_password,omitempty"`
}

// Static is a Provider backed by in-memory configuration, typically loaded
// from a YAML file at startup.
type Static struct {
	Defaults Defaults                `yaml:"defaults"`
	Users    map[string]UserOverride `yaml:"users"`
}

// NewStatic creates a Static provider with sensible global defaults and no
// per-user overrides.
func NewStatic() *Static {
	return &Static{
		Defaults: Defaults{
			VADSensitivity:   audio.DefaultSensitivity,
			SilenceThreshold: audio.DefaultSilenceThreshold,
		},
		Users: make(map[string]UserOverride),
	}
}

// Load reads a Static provider from a YAML file. Fields absent from the
// file keep the NewStatic defaults.
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	}
	static := NewStatic()
	if err := yaml.Unmarshal(data, static); err != nil {
		return nil, fmt.Errorf("failed to parse preferences file: %w", err)
	}
	if err := static.Validate(); err != nil {
		return nil, err
	}
	return static, nil
}

// Validate checks that configured values are within acceptable ranges.
func (s *Static) Validate() error {
	if s.Defaults.VADSensitivity < audio.MinSensitivity || s.Defaults.VADSensitivity > audio.MaxSensitivity {
		return fmt.Errorf("defaults.vad_sensitivity %d out of range [0,3]", s.Defaults.VADSensitivity)
	}
	if s.Defaults.SilenceThreshold < 0 {
		return fmt.Errorf("defaults.silence_threshold_seconds must be non-negative")
	}
	for id, user := range s.Users {
		if user.VADSensitivity != nil &&
			(*user.VADSensitivity < audio.MinSensitivity || *user.VADSensitivity > audio.MaxSensitivity) {
			return fmt.Errorf("users.%s.vad_sensitivity %d out of range [0,3]", id, *user.VADSensitivity)
		}
		if user.SilenceThreshold != nil && *user.SilenceThreshold < 0 {
			return fmt.Errorf("users.%s.silence_threshold_seconds must be non-negative", id)
		}
	}
	return nil
}

// VADSensitivity implements Provider.
func (s *Static) VADSensitivity(userID string) int {
	if user, ok := s.Users[userID]; ok && user.VADSensitivity != nil {
		return *user.VADSensitivity
	}
	return s.Defaults.VADSensitivity
}

// SilenceThreshold implements Provider.
func (s *Static) SilenceThreshold(userID string) float64 {
	if user, ok := s.Users[userID]; ok && user.SilenceThreshold != nil {
		return *user.SilenceThreshold
	}
	return s.Defaults.SilenceThreshold
}

// AlertEnabled implements Provider. A user with an explicit preference wins;
// otherwise alerting is on when the global configuration enables it.
func (s *Static) AlertEnabled(userID string) bool {
	if user, ok := s.Users[userID]; ok && user.AlertEnabled != nil {
		return *user.AlertEnabled
	}
	return s.Defaults.AlertEnabled
}

// AlertRecipient implements Provider.
func (s *Static) AlertRecipient(userID string) string {
	if user, ok := s.Users[userID]; ok {
		return user.AlertRecipient
	}
	return ""
}

// SMTPConfig implements Provider, merging per-user relay settings over the
// global configuration field-by-field.
func (s *Static) SMTPConfig(userID string) alert.SMTPConfig {
	config := s.Defaults.SMTP
	user, ok := s.Users[userID]
	if !ok {
		return config
	}
	if user.SMTPHost != "" {
		config.Host = user.SMTPHost
	}
	if user.SMTPPort != 0 {
		config.Port = user.SMTPPort
	}
	if user.SMTPUser != "" {
		config.User = user.SMTPUser
	}
	if user.SMTPPassword != "" {
		config.Password = user.SMTPPassword
	}
	return config
}

// Compile-time interface check.
var _ Provider = (*Static)(nil)
