package llm

import "context"

// Role identifies the author of a chat message.
type Role string

// RoleSystem carries the instruction prompt.
const RoleSystem Role = "system"

// Message is one role-tagged entry in a chat completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transport-level defaults applied to any knob a caller leaves unset.
const (
	DefaultTemperature = 1.0
	DefaultTopP        = 1.0
	DefaultMaxTokens   = 2048
)

// SamplingParams holds the generation knobs for a single request. Nil
// pointers and zero MaxTokens mean "absent"; WithDefaults fills them in.
type SamplingParams struct {
	MaxTokens        int      `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature      *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	TopP             *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty,omitempty" json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `yaml:"presence_penalty,omitempty" json:"presence_penalty,omitempty"`
	Stop             []string `yaml:"stop,omitempty" json:"stop,omitempty"`
}

// WithDefaults returns a copy of p where every absent knob carries its
// transport default. Penalties stay optional.
func (p SamplingParams) WithDefaults() SamplingParams {
	if p.Temperature == nil {
		p.Temperature = Float(DefaultTemperature)
	}
	if p.TopP == nil {
		p.TopP = Float(DefaultTopP)
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	if p.Stop == nil {
		p.Stop = []string{}
	}
	return p
}

// Merge overlays the knobs set in o on top of p.
func (p SamplingParams) Merge(o SamplingParams) SamplingParams {
	if o.MaxTokens > 0 {
		p.MaxTokens = o.MaxTokens
	}
	if o.Temperature != nil {
		p.Temperature = o.Temperature
	}
	if o.TopP != nil {
		p.TopP = o.TopP
	}
	if o.FrequencyPenalty != nil {
		p.FrequencyPenalty = o.FrequencyPenalty
	}
	if o.PresencePenalty != nil {
		p.PresencePenalty = o.PresencePenalty
	}
	if o.Stop != nil {
		p.Stop = o.Stop
	}
	return p
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Response is the fully accumulated text of a streamed completion.
// Truncated reports that the stream ended before the server signalled
// completion, or that part of it could not be decoded.
type Response struct {
	Text      string
	Truncated bool
}

// Transport submits a chat request and waits for the whole stream.
type Transport interface {
	Submit(ctx context.Context, messages []Message, params SamplingParams) (Response, error)
}
