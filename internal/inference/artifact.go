package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ArtifactKinds are the downloadable outputs of an analysis run. The kind
// selects the decoding strategy, not where the artifact is stored.
var ArtifactKinds = []string{"segmentation", "report", "raw_output", "pdf"}

var ErrUnsupportedArtifact = errors.New("unsupported artifact kind")

type Artifact struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Download fetches a result artifact for a session and decodes it according
// to its kind: pdf payloads arrive base64-encoded in a JSON field, reports as
// plain text, everything else is passed through unchanged.
func (c *Client) Download(ctx context.Context, sessionID, kind string) (Artifact, error) {
	if !validArtifactKind(kind) {
		return Artifact{}, fmt.Errorf("%w: %q, allowed: %v", ErrUnsupportedArtifact, kind, ArtifactKinds)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)
	defer cancel()

	res, err := c.client.R().
		SetContext(ctx).
		SetPathParam("session_id", sessionID).
		SetPathParam("file_type", kind).
		Get("/download/{session_id}/{file_type}")

	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if !res.IsSuccess() {
		return Artifact{}, &UpstreamStatusError{StatusCode: res.StatusCode(), Body: res.String()}
	}

	switch kind {
	case "pdf":
		var payload struct {
			Content  string `json:"content"`
			Filename string `json:"filename"`
		}
		if err := json.Unmarshal(res.Body(), &payload); err != nil {
			return Artifact{}, fmt.Errorf("error parsing pdf payload from inference service: %w", err)
		}
		data, err := base64.StdEncoding.DecodeString(payload.Content)
		if err != nil {
			return Artifact{}, fmt.Errorf("error decoding pdf content from inference service: %w", err)
		}
		return Artifact{Data: data, ContentType: "application/pdf", Filename: payload.Filename}, nil

	case "report":
		var payload struct {
			Content  string `json:"content"`
			Filename string `json:"filename"`
		}
		if err := json.Unmarshal(res.Body(), &payload); err != nil {
			return Artifact{}, fmt.Errorf("error parsing report payload from inference service: %w", err)
		}
		return Artifact{
			Data:        []byte(payload.Content),
			ContentType: "text/plain; charset=utf-8",
			Filename:    payload.Filename,
		}, nil

	default:
		contentType := res.Header().Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return Artifact{
			Data:        res.Body(),
			ContentType: contentType,
			Filename:    fmt.Sprintf("%s_%s", sessionID, kind),
		}, nil
	}
}

func validArtifactKind(kind string) bool {
	for _, k := range ArtifactKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// SessionStatus passes a session status query through to the inference
// service. Session state is owned entirely upstream; nothing is cached here.
func (c *Client) SessionStatus(ctx context.Context, sessionID string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DefaultTimeout)
	defer cancel()

	res, err := c.client.R().
		SetContext(ctx).
		SetPathParam("session_id", sessionID).
		Get("/sessions/{session_id}/status")

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if !res.IsSuccess() {
		return nil, &UpstreamStatusError{StatusCode: res.StatusCode(), Body: res.String()}
	}

	return json.RawMessage(res.Body()), nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DefaultTimeout)
	defer cancel()

	res, err := c.client.R().
		SetContext(ctx).
		SetPathParam("session_id", sessionID).
		Delete("/sessions/{session_id}")

	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if !res.IsSuccess() {
		return &UpstreamStatusError{StatusCode: res.StatusCode(), Body: res.String()}
	}

	return nil
}
