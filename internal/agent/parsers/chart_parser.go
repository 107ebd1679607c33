// Package parsers turns raw model completions into validated structures.
// Model output is hostile input: everything here guards sizes, strips code
// fences, and validates fields before anything downstream trusts them.
package parsers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/unicornlens/server/internal/agent/model"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024 // 64KB
	maxYKeys      = 20
)

// StripJSONFences removes a surrounding markdown code fence, with or
// without a language tag, so fenced model output can be unmarshalled
// directly.
func StripJSONFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the language tag on the fence line
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseChartConfig parses and validates a chart configuration completion.
// Colors missing from the payload are assigned deterministically from the
// series order.
func ParseChartConfig(content string) (*model.ChartConfig, error) {
	if len(content) > maxContentLen {
		return nil, fmt.Errorf("chart config too large: %d bytes", len(content))
	}

	payload := StripJSONFences(content)
	if payload == "" {
		return nil, fmt.Errorf("empty chart config")
	}

	var cfg model.ChartConfig
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, fmt.Errorf("chart config unmarshal: %w", err)
	}

	if !model.ValidChartKind(cfg.Type) {
		return nil, fmt.Errorf("invalid chart type %q", cfg.Type)
	}
	if cfg.XKey == "" {
		return nil, fmt.Errorf("chart config missing xKey")
	}
	if len(cfg.YKeys) == 0 {
		return nil, fmt.Errorf("chart config missing yKeys")
	}
	if len(cfg.YKeys) > maxYKeys {
		return nil, fmt.Errorf("too many yKeys: %d", len(cfg.YKeys))
	}

	if len(cfg.Colors) == 0 {
		cfg.Colors = model.AssignColors(cfg.YKeys)
	}

	// legend is the model's call; derive it only when the payload omits it
	var declared struct {
		Legend *bool `json:"legend"`
	}
	_ = json.Unmarshal([]byte(payload), &declared)
	if declared.Legend == nil {
		cfg.Legend = len(cfg.YKeys) > 1 || cfg.MultipleLines
	}

	return &cfg, nil
}
