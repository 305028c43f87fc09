// Package imaging classifies and validates medical imaging files (DICOM and
// NIfTI) and builds metadata listings over stored uploads.
package imaging

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type Kind int

const (
	KindUnsupported Kind = iota
	KindDICOM
	KindNIfTI
)

func (k Kind) String() string {
	switch k {
	case KindDICOM:
		return "DICOM"
	case KindNIfTI:
		return "NIfTI"
	default:
		return "Unsupported"
	}
}

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrValidationFailed  = errors.New("image validation failed")
)

// AllowedExtensions is the single allowlist consumed by both the upload and
// prediction paths.
var AllowedExtensions = []string{".dcm", ".dicom", ".nii", ".nii.gz"}

// Classify determines the file kind from its name. The ".nii.gz" case is
// checked structurally: strip the ".gz" suffix first, then test whether the
// remaining stem ends in ".nii", so that "archive.tar.gz" stays unsupported.
func Classify(filename string) Kind {
	lower := strings.ToLower(filename)

	switch filepath.Ext(lower) {
	case ".dcm", ".dicom":
		return KindDICOM
	case ".nii":
		return KindNIfTI
	case ".gz":
		if strings.HasSuffix(strings.TrimSuffix(lower, ".gz"), ".nii") {
			return KindNIfTI
		}
	}
	return KindUnsupported
}

// Stem returns the filename without its imaging extension, used to derive
// deterministic identifiers for formats that carry no patient tag.
func Stem(filename string) string {
	base := filepath.Base(filename)
	lower := strings.ToLower(base)
	if strings.HasSuffix(lower, ".nii.gz") {
		return base[:len(base)-len(".nii.gz")]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Modalities supported by the inference service. Input is matched
// case-insensitively and normalized to uppercase.
var Modalities = []string{"MRI", "CT", "PET", "US"}

var ErrUnsupportedModality = errors.New("unsupported modality")

func NormalizeModality(modality string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(modality))
	for _, m := range Modalities {
		if upper == m {
			return upper, nil
		}
	}
	return "", fmt.Errorf("%w: %q, allowed: %v", ErrUnsupportedModality, modality, Modalities)
}
