// Package extract locates and decodes the JSON candidate list inside the
// model's free-text response. Model output is inherently schema-less: the
// array may be wrapped in prose or markdown fences, collapsed to a single
// object, or missing entirely. Every malformed shape becomes a typed error
// record rather than an error value, so one bad image never takes down the
// batch it arrived in.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"stocktake/internal/device"
)

// snippetLimit caps the slice of raw model output carried on an error record.
const snippetLimit = 500

// Parse extracts candidate item records from raw model output. It returns
// either a non-empty candidate list or exactly one error record standing in
// for the whole image; it never returns both, and never neither.
//
// The search is a strict two-stage decode: first the span from the first '['
// to the last ']', then, only when no array delimiters exist, the span from
// the first '{' to the last '}' wrapped as a one-element list.
func Parse(text string) ([]device.RawItem, *device.ErrorRecord) {
	cleaned := stripCodeFences(strings.TrimSpace(text))

	if start, end := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]"); start != -1 && end > start {
		return decodeCandidates(cleaned[start:end+1], text)
	}
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start != -1 && end > start {
		return decodeCandidates(cleaned[start:end+1], text)
	}

	return nil, &device.ErrorRecord{
		Reason:  "format issue: no JSON array or object found in model output",
		Snippet: snippet(text),
	}
}

// decodeCandidates decodes one JSON span. A sequence is the candidate list
// directly; a single mapping is wrapped as a one-element list; any other
// decoded shape is a failure.
func decodeCandidates(span, raw string) ([]device.RawItem, *device.ErrorRecord) {
	var value any
	if err := json.Unmarshal([]byte(span), &value); err != nil {
		return nil, &device.ErrorRecord{
			Reason:  fmt.Sprintf("decode error: invalid JSON in model output: %v", err),
			Snippet: snippet(raw),
		}
	}

	switch value.(type) {
	case []any:
		var items []device.RawItem
		if err := json.Unmarshal([]byte(span), &items); err != nil {
			return nil, &device.ErrorRecord{
				Reason:  fmt.Sprintf("decode error: JSON array elements are not item records: %v", err),
				Snippet: snippet(raw),
			}
		}
		if len(items) == 0 {
			return nil, &device.ErrorRecord{
				Reason:  "unexpected shape: model output decoded to an empty list",
				Snippet: snippet(raw),
			}
		}
		return items, nil

	case map[string]any:
		var item device.RawItem
		if err := json.Unmarshal([]byte(span), &item); err != nil {
			return nil, &device.ErrorRecord{
				Reason:  fmt.Sprintf("decode error: JSON object is not an item record: %v", err),
				Snippet: snippet(raw),
			}
		}
		return []device.RawItem{item}, nil

	default:
		return nil, &device.ErrorRecord{
			Reason:  "unexpected shape: model output is valid JSON but not an array or object",
			Snippet: snippet(raw),
		}
	}
}

// stripCodeFences removes a markdown code fence wrapping (```json ... ```)
// when the whole response is fenced.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	firstNewline := strings.Index(trimmed, "\n")
	if firstNewline == -1 {
		return s
	}
	lastFence := strings.LastIndex(trimmed, "```")
	if lastFence <= firstNewline {
		return s
	}
	return strings.TrimSpace(trimmed[firstNewline+1 : lastFence])
}

func snippet(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetLimit {
		return s
	}
	return string(runes[:snippetLimit])
}
