package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resumescreener/internal/config"
	"resumescreener/internal/errors"
	"resumescreener/internal/types"
)

const (
	systemInitFailedRationale = "System initialization failed."
	llmFailedRationale        = "The AI failed to generate an evaluation. Please check the API."
	llmErrorGapPrefix         = "LLM Processing Error: "
)

// ThresholdPolicy decides how the acceptance status is derived.
// When Enforce is set the status is recomputed from the score: Accepted iff score > Threshold.
type ThresholdPolicy struct {
	Threshold int
	Enforce   bool
}

// ThresholdPolicyFrom reads the policy from screening configuration
func ThresholdPolicyFrom(cfg config.ScreeningConfig) ThresholdPolicy {
	return ThresholdPolicy{Threshold: cfg.Threshold, Enforce: cfg.EnforceThreshold}
}

// Status returns the status to report for score and the model's own status
func (p ThresholdPolicy) Status(score int, modelStatus string) string {
	if !p.Enforce {
		return modelStatus
	}
	if score > p.Threshold {
		return types.StatusAccepted
	}
	return types.StatusRejected
}

// Evaluator scores a candidate profile against job requirements
type Evaluator struct {
	client   Client
	prompts  *Prompts
	policy   ThresholdPolicy
	observer Observer
	logger   *errors.Logger
}

// NewEvaluator creates an evaluation agent
func NewEvaluator(client Client, prompts *Prompts, policy ThresholdPolicy, observer Observer, logger *errors.Logger) *Evaluator {
	if prompts == nil {
		prompts = &Prompts{}
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &Evaluator{
		client:   client,
		prompts:  prompts,
		policy:   policy,
		observer: observer,
		logger:   logger,
	}
}

// evaluationReply mirrors EvaluationResult but keeps the score as a raw number
// so integral floats such as 85.0 are accepted and fractions are rejected
type evaluationReply struct {
	CandidateName      string      `json:"candidate_name"`
	FinalScore         json.Number `json:"final_score"`
	Status             string      `json:"status"`
	QuantitativeGaps   []string    `json:"quantitative_gaps"`
	RecruiterRationale string      `json:"recruiter_rationale"`
}

// Evaluate scores profile against job. It never fails; errors become rejected results with score 0.
func (e *Evaluator) Evaluate(ctx context.Context, job types.JobRequirements, profile types.CandidateProfile) types.EvaluationResult {
	ctx, span := otel.Tracer("resumescreener.ai").Start(ctx, "evaluate.candidate")
	defer span.End()
	span.SetAttributes(attribute.String("candidate.name", profile.CandidateName))

	backend, reason := backendOf(e.client)
	if backend == nil {
		e.logger.Warn("Evaluation skipped, AI client unavailable",
			"candidate", profile.CandidateName,
			"reason", reason)
		e.observer.Fallback(ctx, OpEvaluateCandidate, "client_unavailable")
		span.SetAttributes(attribute.String("outcome", "client_unavailable"))
		return types.EvaluationResult{
			CandidateName:      profile.CandidateName,
			FinalScore:         0,
			Status:             types.StatusRejectedSystem,
			QuantitativeGaps:   []string{clientNotInitialized + reason},
			RecruiterRationale: systemInitFailedRationale,
		}
	}

	result, err := e.evaluate(ctx, backend, job, profile)
	if err != nil {
		e.logger.LogError(err, "Evaluation failed", "candidate", profile.CandidateName)
		e.observer.Fallback(ctx, OpEvaluateCandidate, "llm_error")
		span.RecordError(err)
		span.SetAttributes(attribute.String("outcome", "llm_error"))
		return llmErrorResult(profile.CandidateName, err)
	}

	span.SetAttributes(
		attribute.String("outcome", "scored"),
		attribute.Int("evaluation.score", result.FinalScore),
		attribute.String("evaluation.status", result.Status),
	)
	return result
}

func (e *Evaluator) evaluate(ctx context.Context, backend Backend, job types.JobRequirements, profile types.CandidateProfile) (types.EvaluationResult, error) {
	jobJSON, err := json.Marshal(job.Normalized())
	if err != nil {
		return types.EvaluationResult{}, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to encode job requirements", err)
	}
	profileJSON, err := json.Marshal(profile.Normalized())
	if err != nil {
		return types.EvaluationResult{}, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to encode candidate profile", err)
	}

	resp, err := backend.Generate(ctx, Request{
		Operation:    OpEvaluateCandidate,
		Prompt:       e.prompts.User(config.PromptEvaluate, PromptValues{
			JobRequirements:  string(jobJSON),
			CandidateProfile: string(profileJSON),
			Threshold:        e.policy.Threshold,
		}),
		SystemPrompt: e.prompts.System(config.PromptEvaluate),
		Schema:       EvaluationResultSchema(),
	})
	if err != nil {
		return types.EvaluationResult{}, err
	}

	text, err := ResponseText(resp)
	if err != nil {
		return types.EvaluationResult{}, errors.NewAIError(errors.ErrCodeEmptyResponse, "model reply has no text", err)
	}

	reply, err := decodeObject[evaluationReply](text)
	if err != nil {
		return types.EvaluationResult{}, errors.NewAIError(errors.ErrCodeMalformedOutput, "evaluation reply is not a valid record", err)
	}

	score, err := parseScore(reply.FinalScore)
	if err != nil {
		return types.EvaluationResult{}, errors.NewAIError(errors.ErrCodeMalformedOutput, "evaluation reply has an invalid score", err)
	}

	name := reply.CandidateName
	if name == "" {
		name = profile.CandidateName
	}

	status := e.policy.Status(score, reply.Status)
	if status != reply.Status {
		e.logger.Info("Model status disagrees with threshold, using threshold",
			"candidate", name,
			"score", score,
			"threshold", e.policy.Threshold,
			"model_status", reply.Status,
			"status", status)
	}

	return types.EvaluationResult{
		CandidateName:      name,
		FinalScore:         score,
		Status:             status,
		QuantitativeGaps:   reply.QuantitativeGaps,
		RecruiterRationale: reply.RecruiterRationale,
	}.Normalized(), nil
}

// parseScore accepts integers and integral floats within [0,100]. A missing score is 0.
func parseScore(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("final_score %q is not a number", n.String())
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("final_score %v is not an integer", f)
	}
	if f < 0 || f > 100 {
		return 0, fmt.Errorf("final_score %v is outside 0-100", f)
	}
	return int(f), nil
}

func llmErrorResult(candidateName string, err error) types.EvaluationResult {
	return types.EvaluationResult{
		CandidateName:      candidateName,
		FinalScore:         0,
		Status:             types.StatusRejectedLLMError,
		QuantitativeGaps:   []string{llmErrorGapPrefix + err.Error()},
		RecruiterRationale: llmFailedRationale,
	}
}
