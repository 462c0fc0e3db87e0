package ai

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"resumescreener/internal/config"
	"resumescreener/internal/errors"
	"resumescreener/internal/types"
	"resumescreener/internal/utils"
)

const clientNotInitialized = "Gemini client not initialized: "

// Extractor turns raw job and resume text into structured records.
// Its methods never fail: every error path yields a usable record.
type Extractor struct {
	client   Client
	prompts  *Prompts
	limits   config.HeuristicLimit
	observer Observer
	logger   *errors.Logger
}

// NewExtractor creates an extraction agent
func NewExtractor(client Client, prompts *Prompts, limits config.HeuristicLimit, observer Observer, logger *errors.Logger) *Extractor {
	if prompts == nil {
		prompts = &Prompts{}
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &Extractor{
		client:   client,
		prompts:  prompts,
		limits:   withHeuristicDefaults(limits),
		observer: observer,
		logger:   logger,
	}
}

// ExtractJobRequirements extracts the hiring requirements from a job description
func (e *Extractor) ExtractJobRequirements(ctx context.Context, text string) types.JobRequirements {
	ctx, span := otel.Tracer("resumescreener.ai").Start(ctx, "extract.job_requirements")
	defer span.End()
	span.SetAttributes(attribute.Int("input.job_length", len(text)))

	backend, reason := backendOf(e.client)
	if backend == nil {
		e.logger.Warn("Job extraction skipped, AI client unavailable", "reason", reason)
		e.observer.Fallback(ctx, OpExtractJob, "client_unavailable")
		span.SetAttributes(attribute.String("outcome", "client_unavailable"))
		return types.JobRequirements{
			JobTitle:             types.JobTitleClientError,
			CoreResponsibilities: []string{"Error: " + clientNotInitialized + reason},
		}.Normalized()
	}

	resp, err := backend.Generate(ctx, Request{
		Operation:    OpExtractJob,
		Prompt:       e.prompts.User(config.PromptExtractJob, PromptValues{Text: text}),
		SystemPrompt: e.prompts.System(config.PromptExtractJob),
		Schema:       JobRequirementsSchema(),
	})
	if err != nil {
		e.logger.LogError(err, "Job extraction failed")
		e.observer.Fallback(ctx, OpExtractJob, "transport_error")
		span.RecordError(err)
		span.SetAttributes(attribute.String("outcome", "transport_error"))
		return types.JobRequirements{
			JobTitle:             types.JobTitleParsingFailed,
			CoreResponsibilities: []string{"Error: " + err.Error()},
		}.Normalized()
	}

	job, err := decodeReply[types.JobRequirements](resp)
	if err == nil {
		span.SetAttributes(attribute.String("outcome", "parsed"))
		return job.Normalized()
	}

	e.logger.Warn("Job extraction reply unusable, falling back to heuristic", "error", err.Error())
	e.observer.Fallback(ctx, OpExtractJob, "heuristic")
	span.SetAttributes(attribute.String("outcome", "heuristic"))
	return types.JobRequirements{
		CoreResponsibilities: heuristicResponsibilities(text, e.limits),
	}.Normalized()
}

// ExtractCandidateProfile extracts a candidate profile from resume text.
// An empty candidate name is backfilled from fileName without its extension.
func (e *Extractor) ExtractCandidateProfile(ctx context.Context, text, fileName string) types.CandidateProfile {
	ctx, span := otel.Tracer("resumescreener.ai").Start(ctx, "extract.candidate_profile")
	defer span.End()
	span.SetAttributes(
		attribute.Int("input.resume_length", len(text)),
		attribute.String("input.file_name", fileName),
	)

	backend, reason := backendOf(e.client)
	if backend == nil {
		e.logger.Warn("Resume extraction skipped, AI client unavailable", "file", fileName, "reason", reason)
		e.observer.Fallback(ctx, OpExtractResume, "client_unavailable")
		span.SetAttributes(attribute.String("outcome", "client_unavailable"))
		return types.CandidateProfile{
			CandidateName:         types.JobTitleClientError,
			WorkExperienceSummary: "Error: " + clientNotInitialized + reason,
		}.Normalized()
	}

	resp, err := backend.Generate(ctx, Request{
		Operation:    OpExtractResume,
		Prompt:       e.prompts.User(config.PromptExtractResume, PromptValues{Text: text}),
		SystemPrompt: e.prompts.System(config.PromptExtractResume),
		Schema:       CandidateProfileSchema(),
	})
	if err != nil {
		e.logger.LogError(err, "Resume extraction failed", "file", fileName)
		e.observer.Fallback(ctx, OpExtractResume, "transport_error")
		span.RecordError(err)
		span.SetAttributes(attribute.String("outcome", "transport_error"))
		return types.CandidateProfile{
			CandidateName:         utils.BaseNameWithoutExt(fileName),
			WorkExperienceSummary: "Parsing Error: " + err.Error(),
		}.Normalized()
	}

	profile, err := decodeReply[types.CandidateProfile](resp)
	if err != nil {
		e.logger.Warn("Resume extraction reply unusable, falling back to heuristic",
			"file", fileName,
			"error", err.Error())
		e.observer.Fallback(ctx, OpExtractResume, "heuristic")
		span.SetAttributes(attribute.String("outcome", "heuristic"))
		profile = types.CandidateProfile{WorkExperienceSummary: heuristicSummary(text, e.limits)}
	} else {
		span.SetAttributes(attribute.String("outcome", "parsed"))
	}

	if profile.CandidateName == "" {
		profile.CandidateName = utils.BaseNameWithoutExt(fileName)
	}
	return profile.Normalized()
}

// decodeReply reads the reply text and decodes it, recovering JSON embedded in prose
func decodeReply[T any](resp *genai.GenerateContentResponse) (T, error) {
	var zero T
	text, err := ResponseText(resp)
	if err != nil {
		return zero, errors.NewAIError(errors.ErrCodeEmptyResponse, "model reply has no text", err)
	}
	out, _, err := decodeRecovered[T](text)
	if err != nil {
		return zero, errors.NewAIError(errors.ErrCodeMalformedOutput, "model reply is not a valid record", err)
	}
	return out, nil
}

// backendOf returns the backend of a Ready client, or the reason it is unavailable
func backendOf(c Client) (Backend, string) {
	switch v := c.(type) {
	case Ready:
		if v.Backend == nil {
			return nil, "no backend configured"
		}
		return v.Backend, ""
	case Unavailable:
		return nil, v.Reason
	default:
		return nil, "AI client not configured"
	}
}
