package api

import "encoding/json"

type UploadResponse struct {
	Filename  string `json:"filename"`
	SavedPath string `json:"saved_path"`
	Message   string `json:"message,omitempty"`
}

// ImageMetadata is the per-file projection returned by the results listing.
// For NIfTI files the patient id is synthesized from the filename stem since
// the format carries no patient tag.
type ImageMetadata struct {
	Filename  string            `json:"filename"`
	PatientID string            `json:"patient_id,omitempty"`
	StudyDate string            `json:"study_date,omitempty"`
	Modality  string            `json:"modality,omitempty"`
	Extra     map[string]string `json:"additional_info,omitempty"`
}

type ResultsResponse struct {
	Results []ImageMetadata `json:"results"`
}

// HealthStatus is a tagged status value, never an error: callers use it for
// liveness display, so every failure mode degrades into a status string.
type HealthStatus struct {
	Status       string `json:"status"` // "connected", "disconnected", or "error"
	Service      string `json:"service,omitempty"`
	Version      string `json:"version,omitempty"`
	Timestamp    string `json:"timestamp"`
	GPUAvailable *bool  `json:"gpu_available,omitempty"`
	ModelLoaded  *bool  `json:"model_loaded,omitempty"`
}

type SupportedModalitiesResponse struct {
	Modalities  []string          `json:"modalities"`
	Description map[string]string `json:"description"`
}

type ModelInfoResponse struct {
	ModelName           string   `json:"model_name"`
	Version             string   `json:"version"`
	SupportedModalities []string `json:"supported_modalities"`
	InputFormats        []string `json:"input_formats"`
	ModelStatus         string   `json:"model_status"`
	Description         string   `json:"description"`
}

// PredictResponse is a tagged outcome: SessionID and Result are only set on
// success, Error only on failure. Upstream transport and status failures are
// reported through this type rather than surfaced as HTTP errors.
type PredictResponse struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"session_id,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type BatchPredictResponse struct {
	Success       bool     `json:"success"`
	BatchID       string   `json:"batch_id"`
	SessionIDs    []string `json:"session_ids"`
	Status        string   `json:"status"`
	EstimatedTime *int     `json:"estimated_time,omitempty"`
}

type DeleteSessionResponse struct {
	Message string `json:"message"`
}
