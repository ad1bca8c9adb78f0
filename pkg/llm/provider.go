package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
	Images  []Image
}

// Image is raw image bytes attached to a prompt.
type Image struct {
	MimeType string
	Data     []byte
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	JSON        bool   // Ask the backend for a JSON-only answer
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithJSONResponse() Option {
	return func(o *Options) {
		o.JSON = true
	}
}

// ApplyOptions folds opts over the defaults every provider starts from.
func ApplyOptions(opts ...Option) *Options {
	options := &Options{
		Temperature: 0.4,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// VisionProvider is an LLMProvider that also accepts images alongside a prompt.
type VisionProvider interface {
	LLMProvider
	GenerateWithImages(ctx context.Context, prompt string, images []Image, options ...Option) (string, error)
}
