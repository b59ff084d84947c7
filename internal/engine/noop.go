package engine

import (
	"context"
	"strings"

	"github.com/ASSATALK/ios-project/internal/shared"
)

// Noop is a development engine that parrots the last user message. It lets
// the server, clients and UI be exercised without model weights on disk.
type Noop struct {
	model string
}

func NewNoop(model string) *Noop {
	if model == "" {
		model = "noop"
	}
	return &Noop{model: model}
}

func (n *Noop) GenerateOnce(ctx context.Context, req *shared.GenerationRequest) (*shared.GenerationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := n.reply(req)
	return &shared.GenerationResult{
		Text:         text,
		Model:        n.model,
		FinishReason: "stop",
		Usage: &shared.Usage{
			CompletionTokens: len(strings.Fields(text)),
			TotalTokens:      len(strings.Fields(text)),
		},
	}, nil
}

func (n *Noop) GenerateStream(ctx context.Context, req *shared.GenerationRequest, onDelta func(delta string) error) error {
	reply := n.reply(req)
	for _, word := range strings.SplitAfter(reply, " ") {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onDelta(word); err != nil {
			return err
		}
	}
	return nil
}

func (n *Noop) reply(req *shared.GenerationRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == shared.RoleUser {
			return "You said: " + req.Messages[i].Content
		}
	}
	return "Nothing to respond to."
}
