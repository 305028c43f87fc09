// Package imagingtest synthesizes minimal DICOM and NIfTI payloads for tests.
package imagingtest

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// NIfTIBytes builds an uncompressed NIfTI-1 file containing just the 348-byte
// header with the given dimensions.
func NIfTIBytes(t *testing.T, dims ...int16) []byte {
	t.Helper()

	raw := make([]byte, 348)
	binary.LittleEndian.PutUint32(raw[0:4], 348)

	require.LessOrEqual(t, len(dims), 7)
	binary.LittleEndian.PutUint16(raw[40:42], uint16(len(dims)))
	for i, d := range dims {
		binary.LittleEndian.PutUint16(raw[42+2*i:44+2*i], uint16(d))
	}

	binary.LittleEndian.PutUint16(raw[70:72], 16) // datatype: float32
	copy(raw[344:], "n+1\x00")
	return raw
}

// GzipNIfTIBytes is NIfTIBytes wrapped in a gzip stream, as stored in a
// .nii.gz file.
func GzipNIfTIBytes(t *testing.T, dims ...int16) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(NIfTIBytes(t, dims...))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// DICOMBytes builds a readable DICOM file carrying the given dataset
// elements. Elements must be supplied in ascending tag order.
func DICOMBytes(t *testing.T, elements ...*dicom.Element) []byte {
	t.Helper()

	all := []*dicom.Element{
		Element(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.7"}),
		Element(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5"}),
		Element(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
	}
	all = append(all, elements...)

	var buf bytes.Buffer
	require.NoError(t, dicom.Write(&buf, dicom.Dataset{Elements: all}))
	return buf.Bytes()
}

func Element(t *testing.T, tg tag.Tag, value interface{}) *dicom.Element {
	t.Helper()

	el, err := dicom.NewElement(tg, value)
	require.NoError(t, err)
	return el
}
