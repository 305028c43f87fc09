package imaging

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"imaging-backend/pkg/api"
)

const niftiHeaderSize = 348

// nifti1Header is the fixed 348-byte NIfTI-1 header. Only the fields needed
// for structural validation are named; the rest is padding to keep offsets
// aligned with the on-disk layout.
type nifti1Header struct {
	SizeofHdr int32
	_         [36]byte // data_type, db_name, extents, session_error, regular, dim_info
	Dim       [8]int16
	_         [14]byte // intent_p1..p3, intent_code
	Datatype  int16
	_         [272]byte
	Magic     [4]byte
}

func validateNIfTI(filename string, data []byte) (api.ImageMetadata, error) {
	var r io.Reader = bytes.NewReader(data)

	if strings.HasSuffix(strings.ToLower(filename), ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return api.ImageMetadata{}, fmt.Errorf("%w: unreadable gzip stream: %v", ErrValidationFailed, err)
		}
		defer gz.Close()
		r = gz
	}

	hdr, err := readNIfTIHeader(r)
	if err != nil {
		return api.ImageMetadata{}, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	ndim := int(hdr.Dim[0])
	if ndim < 3 {
		return api.ImageMetadata{}, fmt.Errorf("%w: volume has %d dimensions, need at least 3", ErrValidationFailed, ndim)
	}

	shape := make([]string, 0, ndim)
	for _, d := range hdr.Dim[1 : 1+ndim] {
		shape = append(shape, fmt.Sprintf("%d", d))
	}

	// NIfTI carries no patient or modality tags; synthesize a deterministic
	// patient id from the filename stem.
	return api.ImageMetadata{
		Filename:  filename,
		PatientID: "nifti_" + Stem(filename),
		Modality:  "Unknown",
		Extra: map[string]string{
			"file_type": "NIfTI",
			"shape":     "(" + strings.Join(shape, ", ") + ")",
			"data_type": datatypeName(hdr.Datatype),
		},
	}, nil
}

// datatypeName translates the header's datatype code into the element type
// name callers expect in listings.
func datatypeName(code int16) string {
	switch code {
	case 2:
		return "uint8"
	case 4:
		return "int16"
	case 8:
		return "int32"
	case 16:
		return "float32"
	case 64:
		return "float64"
	case 256:
		return "int8"
	case 512:
		return "uint16"
	case 768:
		return "uint32"
	default:
		return fmt.Sprintf("code %d", code)
	}
}

func readNIfTIHeader(r io.Reader) (*nifti1Header, error) {
	raw := make([]byte, niftiHeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("truncated NIfTI header: %v", err)
	}

	var hdr nifti1Header
	order := byteOrder(raw)
	if err := binary.Read(bytes.NewReader(raw), order, &hdr); err != nil {
		return nil, fmt.Errorf("unreadable NIfTI header: %v", err)
	}

	if hdr.SizeofHdr != niftiHeaderSize {
		return nil, fmt.Errorf("invalid NIfTI header size %d", hdr.SizeofHdr)
	}
	if magic := string(hdr.Magic[:3]); magic != "n+1" && magic != "ni1" {
		return nil, fmt.Errorf("invalid NIfTI magic %q", magic)
	}
	if hdr.Dim[0] < 0 || hdr.Dim[0] > 7 {
		return nil, fmt.Errorf("invalid NIfTI dimension count %d", hdr.Dim[0])
	}

	return &hdr, nil
}

// byteOrder sniffs the header's endianness from sizeof_hdr, which must equal
// 348 in the file's native byte order.
func byteOrder(raw []byte) binary.ByteOrder {
	if binary.LittleEndian.Uint32(raw[:4]) == niftiHeaderSize {
		return binary.LittleEndian
	}
	return binary.BigEndian
}
