package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError reports agent output from which no JSON document could be
// extracted by any strategy.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no JSON document in agent output: %s", e.Detail)
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON parses agent output that should contain a JSON document but
// may wrap it in markdown fences or surrounding prose. Fallback order:
// strict parse, fenced-block extraction, first-brace-to-last-brace span.
// When every strategy fails the raw output is not guessed at further.
func ExtractJSON(output string, v interface{}) error {
	trimmed := strings.TrimSpace(output)

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}

	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	if first >= 0 && last > first {
		if err := json.Unmarshal([]byte(trimmed[first:last+1]), v); err == nil {
			return nil
		}
	}

	detail := trimmed
	if len(detail) > 120 {
		detail = detail[:120] + "…"
	}
	return &ParseError{Detail: detail}
}
