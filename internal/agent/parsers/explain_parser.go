package parsers

import (
	"encoding/json"
	"fmt"

	"github.com/unicornlens/server/internal/agent/model"
)

const maxExplanations = 100

// ParseExplanations parses a query-explanation completion. Both a bare
// array and an object wrapping one under "explanations" are accepted, since
// models produce either shape.
func ParseExplanations(content string) ([]model.Explanation, error) {
	if len(content) > maxContentLen {
		return nil, fmt.Errorf("explanation too large: %d bytes", len(content))
	}

	payload := StripJSONFences(content)
	if payload == "" {
		return nil, fmt.Errorf("empty explanation")
	}

	var items []model.Explanation
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		var wrapper struct {
			Explanations []model.Explanation `json:"explanations"`
		}
		if werr := json.Unmarshal([]byte(payload), &wrapper); werr != nil {
			return nil, fmt.Errorf("explanation unmarshal: %w", err)
		}
		items = wrapper.Explanations
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no explanation sections")
	}
	if len(items) > maxExplanations {
		items = items[:maxExplanations]
	}
	for i, item := range items {
		if item.Section == "" || item.Explanation == "" {
			return nil, fmt.Errorf("explanation %d has empty fields", i)
		}
	}
	return items, nil
}
