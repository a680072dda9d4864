// Package schema defines the metadata shape: which keys a metadata
// object must carry, the advisory vocabulary, and the normalization
// applied to model output before assembly.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/menta2k/image-captioner/pkg/types"
)

// Raw is the packaged JSON schema document, shipped for callers that
// want to validate results with a full JSON-schema validator.
//
//go:embed schema.json
var Raw []byte

// Required lists the keys every metadata object must contain.
var Required = []string{"media_type", "objects", "people", "tags"}

// MediaTypes is the advisory controlled vocabulary for media_type.
// It is not enforced.
var MediaTypes = []string{
	"photo", "film_still", "painting", "illustration",
	"render", "screenshot", "poster", "document",
}

// arrayCaps bounds the length of list-valued fields.
var arrayCaps = map[string]int{
	"objects":  6,
	"scene":    3,
	"lighting": 3,
	"style":    5,
	"palette":  6,
	"tags":     20,
}

// ValidationError reports required fields that are absent from a result.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("metadata is missing required key(s): %s", strings.Join(e.Missing, ", "))
}

// Validate checks that every required key is present. Values are not
// checked against the vocabulary; that part of the schema is advisory.
func Validate(meta types.Metadata) error {
	var missing []string
	for _, key := range Required {
		if _, ok := meta[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Normalize caps list fields, fills people defaults, builds the tags
// union when the model omitted it, and prunes empty non-essential
// fields. The input map is modified in place.
func Normalize(meta types.Metadata) {
	for key, n := range arrayCaps {
		if list, ok := meta[key].([]any); ok && len(list) > n {
			meta[key] = list[:n]
		}
	}

	people, ok := meta["people"].(map[string]any)
	if !ok {
		meta["people"] = map[string]any{"count": 0, "faces_visible": false}
	} else {
		if _, ok := people["count"]; !ok {
			people["count"] = 0
		}
		if _, ok := people["faces_visible"]; !ok {
			people["faces_visible"] = false
		}
	}

	if tags := stringList(meta["tags"]); len(tags) == 0 {
		meta["tags"] = buildTags(meta)
	}

	pruneEmpty(meta)
}

// buildTags unions media_type, scene, lighting, style, palette and
// objects into a deduplicated tag list of at most 20 entries.
func buildTags(meta types.Metadata) []any {
	var tags []string
	if mt, ok := meta["media_type"].(string); ok && mt != "" {
		tags = append(tags, mt)
	}
	for _, key := range []string{"scene", "lighting", "style", "palette", "objects"} {
		tags = append(tags, stringList(meta[key])...)
	}

	seen := make(map[string]bool, len(tags))
	uniq := make([]any, 0, len(tags))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			uniq = append(uniq, t)
		}
	}
	if len(uniq) > arrayCaps["tags"] {
		uniq = uniq[:arrayCaps["tags"]]
	}
	return uniq
}

// pruneEmpty drops null, empty-list and empty-map values, keeping the
// required keys in place regardless.
func pruneEmpty(meta types.Metadata) {
	required := make(map[string]bool, len(Required))
	for _, key := range Required {
		required[key] = true
	}

	for key, v := range meta {
		if required[key] {
			continue
		}
		switch val := v.(type) {
		case nil:
			delete(meta, key)
		case []any:
			if len(val) == 0 {
				delete(meta, key)
			}
		case map[string]any:
			if len(val) == 0 {
				delete(meta, key)
			}
		}
	}
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
