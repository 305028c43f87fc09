package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"imaging-backend/internal/imaging"
	"imaging-backend/internal/inference"
	"imaging-backend/internal/storage"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(code int, err error) error {
	return &codedError{err: err, code: code}
}

func CodedErrorf(code int, format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: code}
}

// asCodedError resolves the HTTP status for an error: explicit coded errors
// keep their status, domain errors are mapped per the failure taxonomy, and
// anything unrecognized becomes an internal server error.
func asCodedError(err error) *codedError {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr
	}

	var statusErr *inference.UpstreamStatusError
	if errors.As(err, &statusErr) {
		return &codedError{err: err, code: statusErr.StatusCode}
	}

	switch {
	case errors.Is(err, imaging.ErrUnsupportedFormat),
		errors.Is(err, imaging.ErrUnsupportedModality),
		errors.Is(err, inference.ErrMalformedInput),
		errors.Is(err, inference.ErrUnsupportedArtifact),
		errors.Is(err, storage.ErrInvalidKey):
		return &codedError{err: err, code: http.StatusBadRequest}
	case errors.Is(err, imaging.ErrValidationFailed):
		return &codedError{err: err, code: http.StatusUnprocessableEntity}
	case errors.Is(err, inference.ErrUpstreamUnavailable):
		return &codedError{err: err, code: http.StatusServiceUnavailable}
	case errors.Is(err, storage.ErrObjectNotFound):
		return &codedError{err: err, code: http.StatusNotFound}
	default:
		return &codedError{err: err, code: http.StatusInternalServerError}
	}
}

func RestHandler(handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			WriteError(w, err)
			return
		}

		if res == nil {
			res = struct{}{}
		}

		WriteJsonResponse(w, res)
	}
}

func WriteError(w http.ResponseWriter, err error) {
	cerr := asCodedError(err)
	if cerr.code == http.StatusInternalServerError {
		slog.Error("internal server error received in endpoint", "error", err)
	}
	http.Error(w, cerr.Error(), cerr.code)
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("error serializing response body", "error", err)
		http.Error(w, fmt.Sprintf("error serializing response body: %v", err), http.StatusInternalServerError)
	}
}

// ParseMultipartRequest parses a multipart form and decodes its value fields
// into a tagged struct. File parts stay in r.MultipartForm for the handler.
func ParseMultipartRequest[T any](r *http.Request, maxMemory int64) (T, error) {
	var data T
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		slog.Error("error parsing multipart form", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse multipart request body")
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&data, r.MultipartForm.Value); err != nil {
		slog.Error("error decoding form fields", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request form fields")
	}

	return data, nil
}

func URLParam(r *http.Request, key string) (string, error) {
	param := chi.URLParam(r, key)
	if len(param) == 0 {
		return "", CodedErrorf(http.StatusBadRequest, "missing {%v} url parameter", key)
	}
	return param, nil
}
