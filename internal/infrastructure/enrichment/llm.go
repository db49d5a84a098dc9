package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Completer returns a single JSON object for a prompt. Both LLM clients
// implement it.
type Completer interface {
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

func completeInto(ctx context.Context, llm Completer, prompt string, target any) error {
	raw, err := llm.CompleteJSON(ctx, prompt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	return nil
}

// cleanList trims entries, drops blanks and duplicates, and caps the length.
func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), `"*-`)
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
