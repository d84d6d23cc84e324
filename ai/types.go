package ai

import "errors"

// ErrEmptyResponse is returned when a generation backend yields no choices.
var ErrEmptyResponse = errors.New("empty response from generator")

// GenerateOptions tunes a single generation request.
type GenerateOptions struct {
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// GenerateOption is a functional option for a generation request.
type GenerateOption func(*GenerateOptions)

// WithGenerateTemperature overrides the sampling temperature.
func WithGenerateTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// WithGenerateMaxTokens overrides the token cap.
func WithGenerateMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithSystemPrompt sends s as a system message ahead of the prompt.
func WithSystemPrompt(s string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompt = s
	}
}

// ResolveGenerateOptions applies opts over the config defaults.
func ResolveGenerateOptions(cfg *Config, opts ...GenerateOption) GenerateOptions {
	o := GenerateOptions{}
	if cfg != nil {
		o.Temperature = cfg.Temperature
		o.MaxTokens = cfg.MaxTokens
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
