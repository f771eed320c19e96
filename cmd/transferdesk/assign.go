package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/transferdesk/pkg/domain"
)

// parseAssignments turns key=value pairs into a request body. Values that
// parse as JSON keep their type, anything else is sent as a string.
func parseAssignments(pairs []string) (domain.Record, error) {
	body := domain.Record{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		body[key] = v
	}
	return body, nil
}
