package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/image-captioner/pkg/types"
)

// SanitizeModelJSON removes code fences, comments, and trailing commas
// from model output so it can be parsed as JSON.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	// Remove /* ... */ block comments
	raw = reBlockComment.ReplaceAllString(raw, "")

	// Remove // comments outside string values
	raw = stripLineComments(raw)

	// Remove trailing commas before } or ]
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// stripLineComments removes // comments up to end of line, tracking
// string state so slashes inside values (URLs, paths) survive.
func stripLineComments(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			b.WriteByte(ch)
			continue
		}
		if ch == '/' && i+1 < len(raw) && raw[i+1] == '/' {
			for i < len(raw) && raw[i] != '\n' {
				i++
			}
			if i < len(raw) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// decodeObject parses sanitized model output as a JSON object.
func decodeObject(raw string) (types.Metadata, error) {
	cleaned := SanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("no JSON object found in model output")
	}

	var obj types.Metadata
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// altCaption is the combined caption-step response shape.
type altCaption struct {
	AltText string `json:"alt_text"`
	Caption string `json:"caption"`
}

// parseAltCaption parses the combined alt-text + caption JSON response.
func parseAltCaption(raw string) (altCaption, error) {
	cleaned := SanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return altCaption{}, fmt.Errorf("no JSON object found in model output")
	}

	var ac altCaption
	if err := json.Unmarshal([]byte(cleaned), &ac); err != nil {
		return altCaption{}, err
	}
	ac.AltText = strings.TrimSpace(ac.AltText)
	ac.Caption = strings.TrimSpace(ac.Caption)
	return ac, nil
}

// truncateWords bounds a sentence to at most n words.
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.TrimSpace(s)
	}
	return strings.Join(words[:n], " ")
}
