package inference_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imaging-backend/internal/inference"
)

func TestDownload(t *testing.T) {
	t.Run("PDFRoundTrip", func(t *testing.T) {
		pdfContent := []byte("%PDF-1.4 fake document body")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/download/sess-1/pdf", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{
				"content":  base64.StdEncoding.EncodeToString(pdfContent),
				"filename": "report_sess-1.pdf",
			})
		}))
		defer server.Close()

		artifact, err := inference.NewClient(testConfig(server.URL)).Download(context.Background(), "sess-1", "pdf")
		require.NoError(t, err)
		assert.Equal(t, pdfContent, artifact.Data)
		assert.Equal(t, "application/pdf", artifact.ContentType)
		assert.Equal(t, "report_sess-1.pdf", artifact.Filename)
	})

	t.Run("ReportUTF8", func(t *testing.T) {
		text := "Findings: no anomalies — étude complète"
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{
				"content":  text,
				"filename": "report.txt",
			})
		}))
		defer server.Close()

		artifact, err := inference.NewClient(testConfig(server.URL)).Download(context.Background(), "sess-1", "report")
		require.NoError(t, err)
		assert.Equal(t, []byte(text), artifact.Data)
		assert.Equal(t, "text/plain; charset=utf-8", artifact.ContentType)
	})

	t.Run("RawPassthrough", func(t *testing.T) {
		raw := []byte{0x00, 0x01, 0x02, 0xff}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-nifti")
			w.Write(raw)
		}))
		defer server.Close()

		artifact, err := inference.NewClient(testConfig(server.URL)).Download(context.Background(), "sess-9", "segmentation")
		require.NoError(t, err)
		assert.Equal(t, raw, artifact.Data)
		assert.Equal(t, "application/x-nifti", artifact.ContentType)
		assert.Equal(t, "sess-9_segmentation", artifact.Filename)
	})

	t.Run("MissingContentTypeFallsBack", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header()["Content-Type"] = nil // suppress the default
			w.Write([]byte("bytes"))
		}))
		defer server.Close()

		artifact, err := inference.NewClient(testConfig(server.URL)).Download(context.Background(), "sess-9", "raw_output")
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", artifact.ContentType)
	})

	t.Run("RejectsUnknownKindLocally", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		_, err := inference.NewClient(testConfig(server.URL)).Download(context.Background(), "sess-1", "screenshot")
		assert.ErrorIs(t, err, inference.ErrUnsupportedArtifact)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("PreservesUpstreamStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "session not found", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := inference.NewClient(testConfig(server.URL)).Download(context.Background(), "missing", "report")

		var statusErr *inference.UpstreamStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	})
}

func TestSessionStatus(t *testing.T) {
	t.Run("Passthrough", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/sessions/sess-1/status", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{"status": "completed"})
		}))
		defer server.Close()

		body, err := inference.NewClient(testConfig(server.URL)).SessionStatus(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"status": "completed"}`, string(body))
	})

	t.Run("Unavailable", func(t *testing.T) {
		client := inference.NewClient(testConfig(refusedURL(t)))

		_, err := client.SessionStatus(context.Background(), "sess-1")
		assert.ErrorIs(t, err, inference.ErrUpstreamUnavailable)
	})
}

func TestDeleteSession(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/sessions/sess-1", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{"message": "deleted"})
		}))
		defer server.Close()

		err := inference.NewClient(testConfig(server.URL)).DeleteSession(context.Background(), "sess-1")
		assert.NoError(t, err)
	})

	t.Run("EchoesUpstreamStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no such session", http.StatusNotFound)
		}))
		defer server.Close()

		err := inference.NewClient(testConfig(server.URL)).DeleteSession(context.Background(), "ghost")

		var statusErr *inference.UpstreamStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	})
}
