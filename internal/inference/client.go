// Package inference brokers requests to the external inference service. Each
// operation issues at most one upstream call with its own timeout profile and
// maps transport failures into typed outcomes instead of raw errors.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"imaging-backend/internal/imaging"
	"imaging-backend/pkg/api"
)

var (
	// ErrUpstreamUnavailable indicates a transport-level failure reaching the
	// inference service.
	ErrUpstreamUnavailable = errors.New("inference service unavailable")

	// ErrMalformedInput indicates a structurally invalid request rejected
	// before any upstream call.
	ErrMalformedInput = errors.New("malformed request")
)

// UpstreamStatusError is returned when the inference service answered with a
// non-2xx status; the code is preserved so callers can surface it unchanged.
type UpstreamStatusError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("inference service returned status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL string

	// Health checks must fail fast while batch analysis may legitimately run
	// long, so every operation class carries its own timeout.
	ConnectTimeout  time.Duration
	HealthTimeout   time.Duration
	DefaultTimeout  time.Duration
	PredictTimeout  time.Duration
	BatchTimeout    time.Duration
	DownloadTimeout time.Duration
}

func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:         baseURL,
		ConnectTimeout:  5 * time.Second,
		HealthTimeout:   10 * time.Second,
		DefaultTimeout:  30 * time.Second,
		PredictTimeout:  5 * time.Minute,
		BatchTimeout:    10 * time.Minute,
		DownloadTimeout: time.Minute,
	}
}

type Client struct {
	client *resty.Client
	cfg    Config
}

// NewClient builds a client for the inference service at cfg.BaseURL. The
// base address is injected here rather than read from a global so tests can
// substitute a stub upstream per client.
func NewClient(cfg Config) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
	}

	return &Client{
		client: resty.New().SetBaseURL(cfg.BaseURL).SetTransport(transport),
		cfg:    cfg,
	}
}

// Health reports the inference service's liveness as a tagged status value.
// It never returns an error: transport failures and non-200 responses degrade
// into a "disconnected" status, anything else unexpected into "error".
func (c *Client) Health(ctx context.Context) api.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	res, err := c.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		slog.Error("unable to reach inference service", "error", err)
		return degradedStatus("disconnected")
	}

	if !res.IsSuccess() {
		slog.Error("inference service health check returned error status", "status_code", res.StatusCode())
		return degradedStatus("disconnected")
	}

	var status api.HealthStatus
	if err := json.Unmarshal(res.Body(), &status); err != nil {
		slog.Error("error parsing health response from inference service", "error", err)
		return degradedStatus("error")
	}

	if status.Timestamp == "" {
		status.Timestamp = time.Now().Format(time.RFC3339)
	}
	return status
}

func degradedStatus(state string) api.HealthStatus {
	return api.HealthStatus{
		Status:    state,
		Service:   "AI Analysis Service",
		Version:   "unknown",
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (c *Client) SupportedModalities(ctx context.Context) (api.SupportedModalitiesResponse, error) {
	var out api.SupportedModalitiesResponse
	return out, c.getJSON(ctx, "/supported_modalities", &out)
}

func (c *Client) ModelInfo(ctx context.Context) (api.ModelInfoResponse, error) {
	var out api.ModelInfoResponse
	return out, c.getJSON(ctx, "/model_info", &out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DefaultTimeout)
	defer cancel()

	res, err := c.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if !res.IsSuccess() {
		return &UpstreamStatusError{StatusCode: res.StatusCode(), Body: res.String()}
	}

	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("error parsing response from inference service: %w", err)
	}
	return nil
}

type PredictInput struct {
	Filename  string
	Data      []byte
	Modality  string
	PatientID string
}

// Predict forwards one file for analysis. Extension and modality are checked
// before any network call; after that, both connection failures and non-200
// upstream responses are folded into the returned outcome's failure variant.
func (c *Client) Predict(ctx context.Context, in PredictInput) (api.PredictResponse, error) {
	if imaging.Classify(in.Filename) == imaging.KindUnsupported {
		return api.PredictResponse{}, fmt.Errorf("%w: %q, allowed: %v", imaging.ErrUnsupportedFormat, in.Filename, imaging.AllowedExtensions)
	}

	modality, err := imaging.NormalizeModality(in.Modality)
	if err != nil {
		return api.PredictResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.PredictTimeout)
	defer cancel()

	form := map[string]string{"modality": modality}
	if in.PatientID != "" {
		form["patient_id"] = in.PatientID
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetFileReader("file", in.Filename, bytes.NewReader(in.Data)).
		SetFormData(form).
		Post("/predict")

	if err != nil {
		slog.Error("error forwarding predict request to inference service", "filename", in.Filename, "error", err)
		return api.PredictResponse{Success: false, Error: fmt.Sprintf("Connection error: %v", err)}, nil
	}

	if !res.IsSuccess() {
		return api.PredictResponse{Success: false, Error: fmt.Sprintf("AI analysis failed: %s", res.String())}, nil
	}

	var result struct {
		SessionID string          `json:"session_id"`
		Result    json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(res.Body(), &result); err != nil {
		slog.Error("error parsing predict response from inference service", "error", err)
		return api.PredictResponse{Success: false, Error: fmt.Sprintf("Unexpected error: %v", err)}, nil
	}

	return api.PredictResponse{Success: true, SessionID: result.SessionID, Result: result.Result}, nil
}

type BatchFile struct {
	Name string
	Data []byte
}

type BatchInput struct {
	Files     []BatchFile
	Modality  string
	BatchName string

	// PatientIDs is the raw form field: a JSON-encoded string array, or empty.
	PatientIDs string
}

// BatchPredict forwards a whole batch in a single multipart request. Partial
// batch semantics are unsupported, so any transport failure or non-2xx status
// fails the call rather than producing a partial outcome. Input files are held
// in memory for the duration of the call; peak usage is proportional to total
// batch size.
func (c *Client) BatchPredict(ctx context.Context, in BatchInput) (api.BatchPredictResponse, error) {
	if len(in.Files) == 0 {
		return api.BatchPredictResponse{}, fmt.Errorf("%w: no files provided", ErrMalformedInput)
	}

	modality, err := imaging.NormalizeModality(in.Modality)
	if err != nil {
		return api.BatchPredictResponse{}, err
	}

	var patientIDs []string
	if in.PatientIDs != "" {
		if err := json.Unmarshal([]byte(in.PatientIDs), &patientIDs); err != nil {
			return api.BatchPredictResponse{}, fmt.Errorf("%w: invalid patient_ids format", ErrMalformedInput)
		}
	}

	batchName := in.BatchName
	if batchName == "" {
		batchName = fmt.Sprintf("batch_%d_files", len(in.Files))
	}

	form := map[string]string{
		"modality":   modality,
		"batch_name": batchName,
	}
	if len(patientIDs) > 0 {
		encoded, err := json.Marshal(patientIDs)
		if err != nil {
			return api.BatchPredictResponse{}, fmt.Errorf("error encoding patient ids: %w", err)
		}
		form["patient_ids"] = string(encoded)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.BatchTimeout)
	defer cancel()

	req := c.client.R().SetContext(ctx).SetFormData(form)
	for _, file := range in.Files {
		req.SetFileReader("files", file.Name, bytes.NewReader(file.Data))
	}

	res, err := req.Post("/batch_predict")
	if err != nil {
		return api.BatchPredictResponse{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if !res.IsSuccess() {
		// The whole batch is accepted or the call fails; an upstream rejection
		// is reported as the service being unavailable, never as a partial
		// outcome or an echoed status.
		return api.BatchPredictResponse{}, fmt.Errorf("%w: upstream returned status %d: %s", ErrUpstreamUnavailable, res.StatusCode(), res.String())
	}

	var out api.BatchPredictResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return api.BatchPredictResponse{}, fmt.Errorf("error parsing batch response from inference service: %w", err)
	}
	return out, nil
}
