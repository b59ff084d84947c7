package shared

// Message roles accepted on the wire
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is the decoded body of a generate call. Prompt is the
// legacy single-string form and is folded into Messages during
// normalization. Optional sampling fields stay nil when absent so
// validation can tell "missing" from "zero".
type GenerationRequest struct {
	Messages []Message `json:"messages"`
	Prompt   string    `json:"prompt,omitempty"`
	Stream   bool      `json:"stream,omitempty"`

	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
}

type Usage struct {
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// GenerationResult is immutable once produced by the engine.
type GenerationResult struct {
	Text         string `json:"text"`
	Model        string `json:"model,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// ErrorBody is the JSON shape of every client-facing failure.
type ErrorBody struct {
	Error string `json:"error"`
}

// StreamDelta is one SSE data payload during streaming generation.
type StreamDelta struct {
	Output string `json:"output"`
}

// StreamError is the payload of an SSE "error" event.
type StreamError struct {
	Error string `json:"error"`
}
