package server

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resumescreener/internal/common"
	"resumescreener/internal/errors"
	"resumescreener/internal/formatters"
	"resumescreener/internal/types"
)

const (
	tracerName = "resumescreener.api"

	// multipartMemory is how much of a form is buffered in memory before spilling to disk
	multipartMemory = 8 << 20
)

// screenHandler runs a screening batch over a multipart form with a `job` text
// field (or a `job_file` upload) and one or more `files` resumes.
func (s *Server) screenHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "api.screen")
	defer span.End()

	format, err := common.ResolveOutputFormat(r.URL.Query().Get("format"), "json", s.supportedFormats())
	if err != nil {
		failSpan(span, err, "validation")
		writeErrorResponse(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.parseMultipart(r); err != nil {
		failSpan(span, err, "validation")
		writeAppError(w, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	jobText, err := s.jobTextFromForm(r)
	if err != nil {
		failSpan(span, err, "validation")
		writeAppError(w, err)
		return
	}

	uploads, err := s.readUploads(r.MultipartForm.File["files"])
	if err != nil {
		failSpan(span, err, "validation")
		writeAppError(w, err)
		return
	}

	span.SetAttributes(
		attribute.Int("request.job_length", len(jobText)),
		attribute.Int("request.file_count", len(uploads)),
		attribute.String("response.format", format),
	)

	report, err := s.screener.Run(ctx, jobText, uploads)
	if err != nil {
		failSpan(span, err, "screening")
		s.Logger.LogError(err, "Screening request failed", "files", len(uploads))
		writeAppError(w, err)
		return
	}

	s.counters.screenings.Add(1)
	s.counters.resumesScreened.Add(int64(len(report.Rows)))
	s.counters.accepted.Add(int64(report.Accepted()))
	s.counters.failed.Add(int64(report.Failed()))

	span.SetAttributes(
		attribute.String("batch.id", report.BatchID),
		attribute.Int("batch.accepted", report.Accepted()),
		attribute.Int("batch.failed", report.Failed()),
	)

	if format == "json" {
		writeJSON(w, http.StatusOK, report)
		return
	}
	s.writeFormatted(w, report, format)
}

// parseJobHandler extracts job requirements from a JSON body. A job description
// the model could not parse still answers 200 with the sentinel record.
func (s *Server) parseJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "api.parse_job")
	defer span.End()

	var req ParseJobRequest
	if err := parseJSONRequest(r, &req); err != nil {
		failSpan(span, err, "validation")
		writeAppError(w, err)
		return
	}

	span.SetAttributes(attribute.Int("request.job_length", len(req.JobDescription)))

	job, err := s.screener.ParseJob(ctx, req.JobDescription)
	if err != nil {
		failSpan(span, err, "validation")
		writeAppError(w, err)
		return
	}

	s.counters.jobsParsed.Add(1)
	span.SetAttributes(
		attribute.String("job.title", job.JobTitle),
		attribute.Bool("job.sentinel", job.IsSentinel()),
	)
	writeJSON(w, http.StatusOK, job.Normalized())
}

// parseResumeHandler extracts a candidate profile from a single multipart `file`
func (s *Server) parseResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "api.parse_resume")
	defer span.End()

	if err := s.parseMultipart(r); err != nil {
		failSpan(span, err, "validation")
		writeAppError(w, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	if len(headers) != 1 {
		err := errors.NewValidationError(errors.ErrCodeInvalidRequest, "exactly one resume is required in the 'file' field", nil)
		failSpan(span, err, "validation")
		writeAppError(w, err)
		return
	}

	upload, err := s.readUpload(headers[0])
	if err != nil {
		failSpan(span, err, "validation")
		writeAppError(w, err)
		return
	}
	span.SetAttributes(
		attribute.String("file.name", upload.FileName),
		attribute.Int("file.size", len(upload.Data)),
	)

	profile, err := s.screener.ParseResume(ctx, upload)
	if err != nil {
		failSpan(span, err, "extraction")
		s.Logger.LogError(err, "Resume parsing failed", "file", upload.FileName)
		writeAppError(w, err)
		return
	}

	s.counters.resumesParsed.Add(1)
	writeJSON(w, http.StatusOK, profile.Normalized())
}

func (s *Server) parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeFileTooLarge,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "expected a multipart/form-data body", err)
	}
	return nil
}

// jobTextFromForm prefers the `job` field and falls back to a `job_file` upload
func (s *Server) jobTextFromForm(r *http.Request) (string, error) {
	if text := r.FormValue("job"); strings.TrimSpace(text) != "" {
		return text, nil
	}

	headers := r.MultipartForm.File["job_file"]
	if len(headers) == 0 {
		return "", nil
	}
	upload, err := s.readUpload(headers[0])
	if err != nil {
		return "", err
	}
	return common.UploadText(upload)
}

func (s *Server) readUploads(headers []*multipart.FileHeader) ([]types.Upload, error) {
	uploads := make([]types.Upload, 0, len(headers))
	for _, fh := range headers {
		upload, err := s.readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

// readUpload reads one form file, rejecting anything over the configured file size
func (s *Server) readUpload(fh *multipart.FileHeader) (types.Upload, error) {
	name := filepath.Base(fh.Filename)
	limit := s.maxFileSize()
	if limit > 0 && fh.Size > limit {
		return types.Upload{}, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("file %s is too large (%d bytes, limit is %d)", name, fh.Size, limit), nil).
			WithContext("file", name)
	}

	f, err := fh.Open()
	if err != nil {
		return types.Upload{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to open uploaded file", err).
			WithContext("file", name)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return types.Upload{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read uploaded file", err).
			WithContext("file", name)
	}
	return types.Upload{FileName: name, Data: data}, nil
}

func (s *Server) writeFormatted(w http.ResponseWriter, report *types.ScreeningReport, format string) {
	body, err := formatters.GlobalRegistry.Format(report, format)
	if err != nil {
		writeAppError(w, err)
		return
	}

	contentType := "text/plain; charset=utf-8"
	switch format {
	case "markdown":
		contentType = "text/markdown; charset=utf-8"
	case "csv":
		contentType = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, body); err != nil {
		s.Logger.LogError(err, "Failed to write response", "format", format)
	}
}

func failSpan(span trace.Span, err error, errorType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", errorType))
}
