package imaging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imaging-backend/internal/imaging"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		expected imaging.Kind
	}{
		{"scan.dcm", imaging.KindDICOM},
		{"scan.DCM", imaging.KindDICOM},
		{"scan.dicom", imaging.KindDICOM},
		{"brain.nii", imaging.KindNIfTI},
		{"brain.NII", imaging.KindNIfTI},
		{"brain.nii.gz", imaging.KindNIfTI},
		{"brain.NII.GZ", imaging.KindNIfTI},
		{"sub-01_T1w.nii.gz", imaging.KindNIfTI},
		{"archive.tar.gz", imaging.KindUnsupported},
		{"brain.gz", imaging.KindUnsupported},
		{"niigz", imaging.KindUnsupported},
		{"scan.jpg", imaging.KindUnsupported},
		{"scan", imaging.KindUnsupported},
		{"", imaging.KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, imaging.Classify(tt.filename))
		})
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "brain", imaging.Stem("brain.nii"))
	assert.Equal(t, "brain", imaging.Stem("brain.nii.gz"))
	assert.Equal(t, "Brain_T1", imaging.Stem("Brain_T1.NII.GZ"))
	assert.Equal(t, "scan", imaging.Stem("scan.dcm"))
	assert.Equal(t, "scan", imaging.Stem("/some/dir/scan.dcm"))
}

func TestNormalizeModality(t *testing.T) {
	for _, input := range []string{"MRI", "mri", "Mri", " mri "} {
		normalized, err := imaging.NormalizeModality(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, "MRI", normalized)
	}

	for _, input := range []string{"XRAY", "ultrasound", "", "M RI"} {
		_, err := imaging.NormalizeModality(input)
		assert.ErrorIs(t, err, imaging.ErrUnsupportedModality, "input %q", input)
	}
}
