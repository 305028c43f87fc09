package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"imaging-backend/internal/imaging"
	"imaging-backend/internal/inference"
	"imaging-backend/internal/storage"
	"imaging-backend/pkg/api"
)

const (
	maxUploadBytes     = 50 << 20 // upload size cap, per file
	maxMultipartMemory = 32 << 20
)

type BackendService struct {
	store     storage.ObjectStore
	inference *inference.Client
}

func NewBackendService(store storage.ObjectStore, client *inference.Client) *BackendService {
	return &BackendService{store: store, inference: client}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/images", func(r chi.Router) {
			r.Post("/upload", RestHandler(s.UploadImage))
			r.Get("/results", RestHandler(s.ListResults))
			r.Get("/{filename}", s.ServeImage)
		})
		r.Route("/analysis", func(r chi.Router) {
			r.Get("/health", RestHandler(s.AnalysisHealth))
			r.Get("/supported_modalities", RestHandler(s.GetSupportedModalities))
			r.Get("/model_info", RestHandler(s.GetModelInfo))
			r.Post("/predict", RestHandler(s.Predict))
			r.Post("/batch_predict", RestHandler(s.BatchPredict))
			r.Get("/download/{session_id}/{file_type}", s.DownloadArtifact)
			r.Get("/sessions/{session_id}/status", RestHandler(s.GetSessionStatus))
			r.Delete("/sessions/{session_id}", RestHandler(s.DeleteSession))
		})
	})
}

// UploadImage accepts one imaging file, persists it under its original
// filename, then validates the persisted bytes. A file that parses but fails
// validation is deleted again so the store only ever holds accepted uploads.
func (s *BackendService) UploadImage(r *http.Request) (any, error) {
	if r.ContentLength > maxUploadBytes {
		return nil, CodedErrorf(http.StatusRequestEntityTooLarge, "uploaded file exceeds %d byte limit", maxUploadBytes)
	}

	// Content-Length is advisory and absent on chunked uploads; the reader
	// enforces the cap either way.
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, CodedErrorf(http.StatusRequestEntityTooLarge, "uploaded file exceeds %d byte limit", maxUploadBytes)
		}
		return nil, CodedErrorf(http.StatusBadRequest, "missing 'file' form field")
	}
	defer file.Close()

	if imaging.Classify(header.Filename) == imaging.KindUnsupported {
		return nil, CodedErrorf(http.StatusBadRequest, "unsupported file type %q, allowed: %v", header.Filename, imaging.AllowedExtensions)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("error reading uploaded file", "filename", header.Filename, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to read uploaded file")
	}

	ctx := r.Context()

	if err := s.store.PutObject(ctx, header.Filename, bytes.NewReader(data)); err != nil {
		slog.Error("error persisting uploaded file", "filename", header.Filename, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to store uploaded file")
	}

	if _, err := imaging.Validate(header.Filename, data); err != nil {
		if delErr := s.store.DeleteObject(ctx, header.Filename); delErr != nil {
			slog.Error("error deleting rejected upload", "filename", header.Filename, "error", delErr)
		}
		return nil, err
	}

	slog.Info("image uploaded", "filename", header.Filename, "size", len(data))
	return api.UploadResponse{
		Filename:  header.Filename,
		SavedPath: header.Filename,
		Message:   "upload successful",
	}, nil
}

func (s *BackendService) ListResults(r *http.Request) (any, error) {
	results, err := imaging.Catalog(r.Context(), s.store)
	if err != nil {
		slog.Error("error scanning stored images", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to scan stored images")
	}

	if results == nil {
		results = []api.ImageMetadata{}
	}
	return api.ResultsResponse{Results: results}, nil
}

func (s *BackendService) ServeImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" {
		WriteError(w, CodedErrorf(http.StatusBadRequest, "missing {filename} url parameter"))
		return
	}

	data, err := s.store.GetObject(r.Context(), filename)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", imageContentType(filename))
	if _, err := w.Write(data); err != nil {
		slog.Error("error writing image response", "filename", filename, "error", err)
	}
}

func imageContentType(filename string) string {
	switch imaging.Classify(filename) {
	case imaging.KindDICOM:
		return "application/dicom"
	case imaging.KindNIfTI:
		return "application/gzip"
	default:
		return "application/octet-stream"
	}
}

func (s *BackendService) AnalysisHealth(r *http.Request) (any, error) {
	return s.inference.Health(r.Context()), nil
}

func (s *BackendService) GetSupportedModalities(r *http.Request) (any, error) {
	return s.inference.SupportedModalities(r.Context())
}

func (s *BackendService) GetModelInfo(r *http.Request) (any, error) {
	return s.inference.ModelInfo(r.Context())
}

type predictForm struct {
	Modality  string `schema:"modality,required"`
	PatientID string `schema:"patient_id"`
}

func (s *BackendService) Predict(r *http.Request) (any, error) {
	form, err := ParseMultipartRequest[predictForm](r, maxMultipartMemory)
	if err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "missing 'file' form field")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("error reading file for prediction", "filename", header.Filename, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to read uploaded file")
	}

	return s.inference.Predict(r.Context(), inference.PredictInput{
		Filename:  header.Filename,
		Data:      data,
		Modality:  form.Modality,
		PatientID: form.PatientID,
	})
}

type batchPredictForm struct {
	Modality   string `schema:"modality,required"`
	BatchName  string `schema:"batch_name"`
	PatientIDs string `schema:"patient_ids"`
}

func (s *BackendService) BatchPredict(r *http.Request) (any, error) {
	form, err := ParseMultipartRequest[batchPredictForm](r, maxMultipartMemory)
	if err != nil {
		return nil, err
	}

	// The whole batch goes upstream as one multipart request, so every file
	// is read into memory up front.
	var files []inference.BatchFile
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "unable to open uploaded file %q", fh.Filename)
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("error reading batch file", "filename", fh.Filename, "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "failed to read uploaded file %q", fh.Filename)
		}

		files = append(files, inference.BatchFile{Name: fh.Filename, Data: data})
	}

	return s.inference.BatchPredict(r.Context(), inference.BatchInput{
		Files:      files,
		Modality:   form.Modality,
		BatchName:  form.BatchName,
		PatientIDs: form.PatientIDs,
	})
}

func (s *BackendService) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	fileType := chi.URLParam(r, "file_type")

	artifact, err := s.inference.Download(r.Context(), sessionID, fileType)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", artifact.Filename))
	if _, err := w.Write(artifact.Data); err != nil {
		slog.Error("error streaming artifact", "session_id", sessionID, "file_type", fileType, "error", err)
	}
}

func (s *BackendService) GetSessionStatus(r *http.Request) (any, error) {
	sessionID, err := URLParam(r, "session_id")
	if err != nil {
		return nil, err
	}

	return s.inference.SessionStatus(r.Context(), sessionID)
}

func (s *BackendService) DeleteSession(r *http.Request) (any, error) {
	sessionID, err := URLParam(r, "session_id")
	if err != nil {
		return nil, err
	}

	if err := s.inference.DeleteSession(r.Context(), sessionID); err != nil {
		return nil, err
	}

	return api.DeleteSessionResponse{Message: fmt.Sprintf("Session %s deleted successfully", sessionID)}, nil
}
