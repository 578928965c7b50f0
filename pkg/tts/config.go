package tts

import "time"

// Config holds provider configuration. Use the WithXxx functional
// options to set values.
type Config struct {
	APIKey  string
	BaseURL string

	VoiceID string
	ModelID string

	OutputFormat Encoding

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Option is a functional option for configuring providers.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithVoice sets the voice ID.
func WithVoice(voiceID string) Option {
	return func(c *Config) { c.VoiceID = voiceID }
}

// WithModel sets the model ID.
func WithModel(modelID string) Option {
	return func(c *Config) { c.ModelID = modelID }
}

// WithOutputFormat sets the audio output format.
func WithOutputFormat(format Encoding) Option {
	return func(c *Config) { c.OutputFormat = format }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithRetry configures retry behavior for failed requests.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// DefaultConfig returns sensible defaults for alert synthesis.
func DefaultConfig() *Config {
	return &Config{
		ModelID:      ModelTurboV2_5,
		OutputFormat: EncodingPCM24,
		Timeout:      15 * time.Second,
		MaxRetries:   2,
		RetryDelay:   100 * time.Millisecond,
	}
}

// Apply applies functional options.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.VoiceID == "" {
		return ErrNoVoiceID
	}
	return nil
}
