package pipeline

import (
	"strings"

	"github.com/menta2k/image-captioner/pkg/schema"
	"github.com/menta2k/image-captioner/pkg/types"
)

// assemble merges step outputs into the final result, rejecting empty
// alt text or caption and metadata missing schema-required keys. No
// partial result is ever returned alongside an error.
func assemble(caption captionOutput, meta types.Metadata) (types.Result, error) {
	var missing []string
	if strings.TrimSpace(caption.AltText) == "" {
		missing = append(missing, "alt_text")
	}
	if strings.TrimSpace(caption.Caption) == "" {
		missing = append(missing, "caption")
	}
	if len(missing) > 0 {
		return types.Result{}, &schema.ValidationError{Missing: missing}
	}

	if err := schema.Validate(meta); err != nil {
		return types.Result{}, err
	}

	return types.Result{
		AltText:  caption.AltText,
		Caption:  caption.Caption,
		Metadata: meta,
	}, nil
}
