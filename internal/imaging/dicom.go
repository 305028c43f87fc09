package imaging

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"imaging-backend/pkg/api"
)

func validateDICOM(filename string, data []byte) (api.ImageMetadata, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
	if err != nil {
		return api.ImageMetadata{}, fmt.Errorf("%w: unreadable DICOM file: %v", ErrValidationFailed, err)
	}

	// PatientID is the one mandatory tag; missing or empty fails validation
	// with a reason distinct from a parse failure.
	patientID, ok := tagString(&ds, tag.PatientID)
	if !ok || strings.TrimSpace(patientID) == "" {
		return api.ImageMetadata{}, fmt.Errorf("%w: missing required tag PatientID", ErrValidationFailed)
	}

	meta := api.ImageMetadata{
		Filename:  filename,
		PatientID: patientID,
		Extra: map[string]string{
			"file_type": "DICOM",
			"rows":      tagIntString(&ds, tag.Rows),
			"columns":   tagIntString(&ds, tag.Columns),
		},
	}

	if studyDate, ok := tagString(&ds, tag.StudyDate); ok && studyDate != "" {
		meta.StudyDate = studyDate
	} else {
		slog.Info("optional tag StudyDate absent", "filename", filename)
	}

	if modality, ok := tagString(&ds, tag.Modality); ok && modality != "" {
		meta.Modality = modality
	} else {
		slog.Info("optional tag Modality absent", "filename", filename)
	}

	return meta, nil
}

func tagString(ds *dicom.Dataset, t tag.Tag) (string, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return "", false
	}

	vals, ok := el.Value.GetValue().([]string)
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func tagIntString(ds *dicom.Dataset, t tag.Tag) string {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return "Unknown"
	}

	vals, ok := el.Value.GetValue().([]int)
	if !ok || len(vals) == 0 {
		return "Unknown"
	}
	return strconv.Itoa(vals[0])
}
