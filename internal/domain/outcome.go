package domain

// FailureKind classifies why generation failed for one record.
type FailureKind string

const (
	FailureRateLimited    FailureKind = "rate_limited"
	FailureTransient      FailureKind = "transient"
	FailureInvalidRequest FailureKind = "invalid_request"
	FailureUnauthorized   FailureKind = "unauthorized"
	FailureRetryExhausted FailureKind = "retry_exhausted"
	FailureAborted        FailureKind = "aborted"
	FailureTimeout        FailureKind = "timeout"
)

// TokenUsage counts tokens consumed by a single completion call.
type TokenUsage struct {
	Prompt     int `json:"prompt_tokens"`
	Completion int `json:"completion_tokens"`
}

// Outcome is the per-record result of generation: either the generated
// text with its token usage, or a classified failure. Exactly one of the
// two arms is populated.
type Outcome struct {
	Text    string      `json:"text,omitempty"`
	Usage   TokenUsage  `json:"usage,omitempty"`
	Kind    FailureKind `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Kind == "" }

// Success builds a successful outcome.
func Success(text string, usage TokenUsage) Outcome {
	return Outcome{Text: text, Usage: usage}
}

// Failed builds a failure outcome.
func Failed(kind FailureKind, message string) Outcome {
	return Outcome{Kind: kind, Message: message}
}
