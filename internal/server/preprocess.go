package server

import (
	"encoding/json"
	"strings"

	"github.com/ASSATALK/ios-project/internal/shared"
)

// parseGenerationRequest decodes, normalizes and validates a generate body.
// Returns a RequestError naming the first violated constraint; the engine is
// never invoked for a request that fails here.
func parseGenerationRequest(body []byte) (*shared.GenerationRequest, *shared.RequestError) {
	var req shared.GenerationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, shared.ErrInvalidJSON
	}

	normalize(&req)

	if rerr := validate(&req); rerr != nil {
		return nil, rerr
	}
	return &req, nil
}

// normalize folds the legacy prompt field into the message list, then drops
// blank messages and blank stop sequences.
func normalize(req *shared.GenerationRequest) {
	if len(req.Messages) == 0 && req.Prompt != "" {
		req.Messages = []shared.Message{{Role: shared.RoleUser, Content: req.Prompt}}
		req.Prompt = ""
	}

	kept := req.Messages[:0]
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		kept = append(kept, m)
	}
	req.Messages = kept

	stops := req.Stop[:0]
	for _, s := range req.Stop {
		if strings.TrimSpace(s) == "" {
			continue
		}
		stops = append(stops, s)
	}
	req.Stop = stops
}

var validRoles = map[string]bool{
	shared.RoleSystem:    true,
	shared.RoleUser:      true,
	shared.RoleAssistant: true,
	shared.RoleTool:      true,
}

func validate(req *shared.GenerationRequest) *shared.RequestError {
	if len(req.Messages) == 0 {
		return shared.ErrEmptyMessages
	}
	for _, m := range req.Messages {
		if !validRoles[m.Role] {
			return shared.ValidationError("invalid message role %q", m.Role)
		}
	}
	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return shared.ValidationError("max_tokens must be a positive integer, got %d", *req.MaxTokens)
	}
	if req.Temperature != nil && *req.Temperature < 0 {
		return shared.ValidationError("temperature must be >= 0, got %g", *req.Temperature)
	}
	if req.TopP != nil && (*req.TopP <= 0 || *req.TopP > 1) {
		return shared.ValidationError("top_p must be in (0,1], got %g", *req.TopP)
	}
	return nil
}
