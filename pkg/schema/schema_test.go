package schema

import (
	"errors"
	"testing"

	"github.com/menta2k/image-captioner/pkg/types"
)

func TestValidateComplete(t *testing.T) {
	meta := types.Metadata{
		"media_type": "photo",
		"objects":    []any{"cat"},
		"people":     map[string]any{"count": 0, "faces_visible": false},
		"tags":       []any{"cat", "photo"},
	}
	if err := Validate(meta); err != nil {
		t.Errorf("complete metadata rejected: %v", err)
	}
}

func TestValidateMissingKeys(t *testing.T) {
	meta := types.Metadata{"media_type": "photo", "tags": []any{"x"}}
	err := Validate(meta)

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(valErr.Missing) != 2 {
		t.Fatalf("expected 2 missing keys, got %v", valErr.Missing)
	}
	for _, want := range []string{"objects", "people"} {
		found := false
		for _, key := range valErr.Missing {
			if key == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q in missing keys %v", want, valErr.Missing)
		}
	}
}

func TestNormalizeCapsLists(t *testing.T) {
	objects := make([]any, 10)
	for i := range objects {
		objects[i] = "obj"
	}
	meta := types.Metadata{"objects": objects}

	Normalize(meta)

	if got := len(meta["objects"].([]any)); got != 6 {
		t.Errorf("expected objects capped at 6, got %d", got)
	}
}

func TestNormalizePeopleDefaults(t *testing.T) {
	meta := types.Metadata{}
	Normalize(meta)

	people, ok := meta["people"].(map[string]any)
	if !ok {
		t.Fatal("expected people object to be created")
	}
	if people["count"] != 0 || people["faces_visible"] != false {
		t.Errorf("unexpected people defaults: %v", people)
	}
}

func TestNormalizePeoplePartialDefaults(t *testing.T) {
	meta := types.Metadata{"people": map[string]any{"count": float64(2)}}
	Normalize(meta)

	people := meta["people"].(map[string]any)
	if people["count"] != float64(2) {
		t.Errorf("expected existing count kept, got %v", people["count"])
	}
	if people["faces_visible"] != false {
		t.Errorf("expected faces_visible defaulted, got %v", people["faces_visible"])
	}
}

func TestNormalizeBuildsTagsUnion(t *testing.T) {
	meta := types.Metadata{
		"media_type": "photo",
		"scene":      []any{"indoor", "living room"},
		"objects":    []any{"cat", "indoor"},
	}
	Normalize(meta)

	tags, ok := meta["tags"].([]any)
	if !ok {
		t.Fatal("expected tags to be built")
	}

	want := []string{"photo", "indoor", "living room", "cat"}
	if len(tags) != len(want) {
		t.Fatalf("expected %d deduplicated tags, got %v", len(want), tags)
	}
	for i, w := range want {
		if tags[i] != w {
			t.Errorf("tags[%d] = %v, want %q", i, tags[i], w)
		}
	}
}

func TestNormalizeKeepsExistingTags(t *testing.T) {
	meta := types.Metadata{
		"media_type": "photo",
		"tags":       []any{"keep", "these"},
	}
	Normalize(meta)

	tags := meta["tags"].([]any)
	if len(tags) != 2 || tags[0] != "keep" {
		t.Errorf("expected model-provided tags kept, got %v", tags)
	}
}

func TestNormalizePrunesEmptyFields(t *testing.T) {
	meta := types.Metadata{
		"media_type": "photo",
		"objects":    []any{},
		"scene":      []any{},
		"style":      nil,
		"text":       map[string]any{},
		"tags":       []any{"photo"},
	}
	Normalize(meta)

	// Required keys survive even when empty.
	if _, ok := meta["objects"]; !ok {
		t.Error("required key objects was pruned")
	}
	for _, key := range []string{"scene", "style", "text"} {
		if _, ok := meta[key]; ok {
			t.Errorf("expected empty %s to be pruned", key)
		}
	}
}
