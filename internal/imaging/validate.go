package imaging

import (
	"fmt"

	"imaging-backend/pkg/api"
)

// Validate checks the structural readability and required metadata of an
// uploaded imaging file and returns its metadata projection. It only inspects
// the bytes it is given: cleaning up already-persisted files on failure is the
// caller's responsibility.
func Validate(filename string, data []byte) (api.ImageMetadata, error) {
	switch Classify(filename) {
	case KindDICOM:
		return validateDICOM(filename, data)
	case KindNIfTI:
		return validateNIfTI(filename, data)
	default:
		return api.ImageMetadata{}, fmt.Errorf("%w: %q, allowed: %v", ErrUnsupportedFormat, filename, AllowedExtensions)
	}
}
