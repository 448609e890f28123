package ai

import (
	"errors"
	"time"
)

var (
	// ErrDisabled reports that moderation is switched off or no credential is configured.
	ErrDisabled = errors.New("ai moderation disabled")
	// ErrRateLimited marks a throttled generation request; only this error is retried.
	ErrRateLimited = errors.New("ai rate limited")
	// ErrModelUnavailable marks a model that cannot be initialized or is unknown upstream.
	ErrModelUnavailable = errors.New("ai model unavailable")
	// ErrMalformedResponse marks a model answer with no usable JSON payload.
	ErrMalformedResponse = errors.New("ai malformed response")
	// ErrGenerationFailed is returned once every model in a chain has been exhausted.
	ErrGenerationFailed = errors.New("ai generation failed")
)

// Config holds the process-wide moderation and fusion settings. It is built once at
// start-up and treated as read-only afterwards.
type Config struct {
	Enabled       bool
	APIKey        string
	BaseURL       string
	PrimaryModel  string
	FallbackModel string

	// Temperature is nil when unset; an explicit zero is kept.
	Temperature *float64

	MaxRetries      int
	ModerationDelay time.Duration
	FusionDelay     time.Duration
	RequestTimeout  time.Duration

	// MinDetailLength is the rune count below which a detail is thin without asking a model.
	MinDetailLength int
	// ThinCriteriaThreshold is how many thin-content criteria must hold for a rejection.
	ThinCriteriaThreshold int

	FusionTitleLimit  int
	FusionDetailLimit int
}

const (
	defaultBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	defaultPrimaryModel  = "gemini-2.5-flash-lite"
	defaultFallbackModel = "gemini-2.5-flash"
	defaultTemperature   = 0.4
)

// Float returns a pointer to v for optional settings.
func Float(v float64) *float64 {
	return &v
}

// DefaultConfig returns an enabled configuration with the documented defaults.
func DefaultConfig() Config {
	return Config{Enabled: true}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.PrimaryModel == "" {
		c.PrimaryModel = defaultPrimaryModel
	}
	if c.FallbackModel == "" {
		c.FallbackModel = defaultFallbackModel
	}
	if c.Temperature == nil || *c.Temperature < 0 {
		c.Temperature = Float(defaultTemperature)
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.ModerationDelay <= 0 {
		c.ModerationDelay = time.Second
	}
	if c.FusionDelay <= 0 {
		c.FusionDelay = 4 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MinDetailLength <= 0 {
		c.MinDetailLength = 20
	}
	if c.ThinCriteriaThreshold <= 0 {
		c.ThinCriteriaThreshold = 2
	}
	if c.FusionTitleLimit <= 0 {
		c.FusionTitleLimit = 20
	}
	if c.FusionDetailLimit <= 0 {
		c.FusionDetailLimit = 500
	}
	return c
}
