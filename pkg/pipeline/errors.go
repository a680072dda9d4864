package pipeline

import (
	"fmt"

	"github.com/menta2k/image-captioner/pkg/types"
)

// MetadataParseError reports metadata-step output that could not be
// parsed as JSON, even after stripping code fences. It is never
// silently coerced into a default object.
type MetadataParseError struct {
	Backend types.Backend
	Model   string
	Output  string
	Err     error
}

func (e *MetadataParseError) Error() string {
	return fmt.Sprintf("metadata step: %s backend (model %s) returned unparseable output: %v",
		e.Backend, e.Model, e.Err)
}

func (e *MetadataParseError) Unwrap() error { return e.Err }
