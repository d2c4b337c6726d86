// Package llm implements the judgment-call adapters for the scorer.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"NewsletterCurator/internal/ports"
)

// extractJSON locates the JSON object inside raw model output. Models
// occasionally wrap JSON in markdown fences or prose; anything without a
// brace-delimited object is reported as ErrBadJudgeResponse so callers can
// distinguish it from transport failures.
func extractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in output", ports.ErrBadJudgeResponse)
	}

	return text[start : end+1], nil
}

// parseJudgeJSON extracts the structured verdict from raw model output.
func parseJudgeJSON(raw string) (ports.JudgeResponse, error) {
	text, err := extractJSON(raw)
	if err != nil {
		return ports.JudgeResponse{}, err
	}

	var resp ports.JudgeResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return ports.JudgeResponse{}, fmt.Errorf("%w: %v", ports.ErrBadJudgeResponse, err)
	}

	return resp, nil
}

// parseSubItems extracts the sub-item list returned by the listicle
// extraction call. Entries without a name are dropped rather than failing
// the whole list.
func parseSubItems(raw string) ([]ports.SubItem, error) {
	text, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Items []ports.SubItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrBadJudgeResponse, err)
	}

	items := envelope.Items[:0]
	for _, item := range envelope.Items {
		if strings.TrimSpace(item.SuggestedName) == "" {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}
