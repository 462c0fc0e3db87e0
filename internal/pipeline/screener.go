// Package pipeline screens a batch of resumes against one job description.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resumescreener/internal/ai"
	"resumescreener/internal/config"
	"resumescreener/internal/errors"
	"resumescreener/internal/extractor"
	"resumescreener/internal/storage"
	"resumescreener/internal/types"
	"resumescreener/internal/utils"
)

// Recorder receives batch-level outcomes. Implementations must be safe for concurrent use.
type Recorder interface {
	JobParsed(ctx context.Context, sentinel bool)
	ResumeScreened(ctx context.Context, status string, score int)
}

type nopRecorder struct{}

func (nopRecorder) JobParsed(context.Context, bool)              {}
func (nopRecorder) ResumeScreened(context.Context, string, int) {}

// Screener runs the extraction and evaluation agents over uploads, one at a time
type Screener struct {
	extractor *ai.Extractor
	evaluator *ai.Evaluator
	retainer  storage.Retainer
	cfg       config.ScreeningConfig
	recorder  Recorder
	logger    *errors.Logger

	// extractText reads a staged file; replaced in tests
	extractText func(path string) (string, error)
}

// Option customizes a Screener
type Option func(*Screener)

// WithRetainer keeps processed uploads according to a storage policy
func WithRetainer(r storage.Retainer) Option {
	return func(s *Screener) { s.retainer = r }
}

// WithRecorder reports batch outcomes to r
func WithRecorder(r Recorder) Option {
	return func(s *Screener) { s.recorder = r }
}

// WithTextExtractor replaces the file text extractor
func WithTextExtractor(fn func(path string) (string, error)) Option {
	return func(s *Screener) { s.extractText = fn }
}

// New creates a Screener
func New(extractorAgent *ai.Extractor, evaluator *ai.Evaluator, cfg config.ScreeningConfig, logger *errors.Logger, opts ...Option) *Screener {
	if logger == nil {
		logger = errors.Discard()
	}
	s := &Screener{
		extractor:   extractorAgent,
		evaluator:   evaluator,
		retainer:    storage.Discard{},
		cfg:         cfg,
		recorder:    nopRecorder{},
		logger:      logger,
		extractText: extractor.ExtractFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateIntake checks the job text and the number of uploads
func (s *Screener) ValidateIntake(jobText string, uploads []types.Upload) error {
	if strings.TrimSpace(jobText) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "job description text is required", nil)
	}
	if len(uploads) == 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "at least one resume file is required", nil)
	}
	if s.cfg.MaxResumes > 0 && len(uploads) > s.cfg.MaxResumes {
		return errors.NewValidationError(errors.ErrCodeTooManyFiles,
			fmt.Sprintf("too many resumes: %d uploaded, at most %d allowed", len(uploads), s.cfg.MaxResumes), nil).
			WithContext("uploaded", len(uploads)).
			WithContext("max", s.cfg.MaxResumes)
	}
	return nil
}

// Run screens uploads against jobText. Only intake validation and an aborted
// job extraction return an error; every per-resume failure becomes a row.
func (s *Screener) Run(ctx context.Context, jobText string, uploads []types.Upload) (*types.ScreeningReport, error) {
	if err := s.ValidateIntake(jobText, uploads); err != nil {
		return nil, err
	}

	report := &types.ScreeningReport{
		BatchID:   uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := s.logger.With("batch_id", report.BatchID)

	ctx, span := otel.Tracer("resumescreener.pipeline").Start(ctx, "screening.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", report.BatchID),
		attribute.Int("batch.size", len(uploads)),
	)

	logger.Info("Screening started", "resumes", len(uploads))

	job := s.extractor.ExtractJobRequirements(ctx, jobText)
	s.recorder.JobParsed(ctx, job.IsSentinel())
	if job.IsClientError() && s.cfg.AbortOnJobFailure {
		reason := job.JobTitle
		if len(job.CoreResponsibilities) > 0 {
			reason = job.CoreResponsibilities[0]
		}
		logger.Warn("Screening aborted, job description could not be parsed", "reason", reason)
		return nil, errors.NewAIError(errors.ErrCodeJobParsingFailed,
			"Failed to parse Job Description: "+reason, nil)
	}
	if job.IsSentinel() {
		logger.Warn("Job description could not be parsed, screening against the fallback record", "job_title", job.JobTitle)
	}
	report.JobRequirements = job

	rows := make([]types.ScreeningRow, 0, len(uploads))
	for i, upload := range uploads {
		if err := ctx.Err(); err != nil {
			logger.Warn("Screening cancelled", "remaining", len(uploads)-i, "error", err.Error())
			for _, rest := range uploads[i:] {
				rows = append(rows, failureRow(rest.FileName, err))
			}
			break
		}

		row := s.screenOne(ctx, report.BatchID, job, upload, logger)
		s.recorder.ResumeScreened(ctx, row.Status, row.FinalScore)
		rows = append(rows, row)
	}

	sortRows(rows)
	report.Rows = rows
	report.FinishedAt = time.Now().UTC()

	span.SetAttributes(
		attribute.Int("batch.accepted", report.Accepted()),
		attribute.Int("batch.failed", report.Failed()),
	)
	logger.Info("Screening finished",
		"resumes", len(rows),
		"accepted", report.Accepted(),
		"failed", report.Failed(),
		"duration", report.FinishedAt.Sub(report.StartedAt).String())

	return report, nil
}

// screenOne processes a single upload. Errors and panics become a failure row.
func (s *Screener) screenOne(ctx context.Context, batchID string, job types.JobRequirements, upload types.Upload, logger *errors.Logger) (row types.ScreeningRow) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.NewInternalError(errors.ErrCodePanic, fmt.Sprintf("%v", r), nil)
			logger.LogError(err, "Resume processing panicked", "file", upload.FileName)
			row = failureRow(upload.FileName, err)
		}
	}()

	profile, location, err := s.profileUpload(ctx, batchID, upload, logger)
	if err != nil {
		logger.LogError(err, "Resume processing failed", "file", upload.FileName)
		return failureRow(upload.FileName, err)
	}

	result := s.evaluator.Evaluate(ctx, job, profile)
	return types.ScreeningRow{
		CandidateName:      result.CandidateName,
		FileName:           upload.FileName,
		FinalScore:         result.FinalScore,
		Status:             result.Status,
		RecruiterRationale: result.RecruiterRationale,
		QuantitativeGaps:   result.QuantitativeGaps,
		ExperienceYears:    profile.TotalExperienceYears,
		Profile:            &profile,
		StoredAt:           location,
	}
}

// ParseResume stages one upload, extracts its text and returns the candidate profile
func (s *Screener) ParseResume(ctx context.Context, upload types.Upload) (types.CandidateProfile, error) {
	profile, _, err := s.profileUpload(ctx, "", upload, s.logger)
	return profile, err
}

// ParseJob extracts job requirements from text
func (s *Screener) ParseJob(ctx context.Context, jobText string) (types.JobRequirements, error) {
	if strings.TrimSpace(jobText) == "" {
		return types.JobRequirements{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "job description text is required", nil)
	}
	job := s.extractor.ExtractJobRequirements(ctx, jobText)
	s.recorder.JobParsed(ctx, job.IsSentinel())
	return job, nil
}

// Evaluate scores one profile against job requirements
func (s *Screener) Evaluate(ctx context.Context, job types.JobRequirements, profile types.CandidateProfile) types.EvaluationResult {
	return s.evaluator.Evaluate(ctx, job, profile)
}

func (s *Screener) profileUpload(ctx context.Context, batchID string, upload types.Upload, logger *errors.Logger) (types.CandidateProfile, string, error) {
	if len(s.cfg.AllowedExtensions) > 0 && !utils.HasAllowedExtension(upload.FileName, s.cfg.AllowedExtensions) {
		return types.CandidateProfile{}, "", errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
			fmt.Sprintf("Unsupported file type: %s", utils.GetFileExtension(upload.FileName)), nil)
	}

	staged, err := storage.Stage(upload)
	if err != nil {
		return types.CandidateProfile{}, "", err
	}
	defer staged.Cleanup()

	var location string
	if batchID != "" {
		location, err = s.retainer.Retain(ctx, batchID, upload)
		if err != nil {
			logger.LogError(err, "Failed to retain upload", "file", upload.FileName, "policy", s.retainer.Policy())
			location = ""
		}
	}

	text, err := s.extractText(staged.Path)
	if err != nil {
		return types.CandidateProfile{}, location, err
	}
	if strings.TrimSpace(text) == "" {
		return types.CandidateProfile{}, location, errors.NewValidationError(errors.ErrCodeEmptyText,
			fmt.Sprintf("Input error: no text could be extracted from %s", upload.FileName), nil)
	}

	profile := s.extractor.ExtractCandidateProfile(ctx, text, upload.FileName)
	return profile, location, nil
}

func failureRow(fileName string, err error) types.ScreeningRow {
	return types.ScreeningRow{
		CandidateName:      fileName,
		FileName:           fileName,
		FinalScore:         0,
		Status:             types.StatusFailedSystem,
		RecruiterRationale: types.SystemFailureRationale + err.Error(),
		QuantitativeGaps:   []string{types.SystemFailureGap},
		ExperienceYears:    0,
	}
}

// sortRows orders rows by score, highest first, keeping upload order for ties
func sortRows(rows []types.ScreeningRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].FinalScore > rows[j].FinalScore
	})
}
