package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"resumescreener/internal/common"
	"resumescreener/internal/errors"
	"resumescreener/internal/types"
	"resumescreener/internal/utils"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [job-file] [resume-file]",
	Short: "Score a single resume against a job description",
	Long: `Evaluate one candidate against a job description. The job file may hold
job requirements as JSON (for example the output of parse-job) or a plain job
description, which is parsed first. The resume is parsed and then scored.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: resolveOutputFormat(&evaluateConfig),
	RunE:    runEvaluate,
}

var evaluateConfig common.CommandConfig

func init() {
	addOutputFlags(evaluateCmd, &evaluateConfig)
}

type evaluateInput struct {
	Job     *types.JobRequirements
	JobText string
	Resume  types.Upload
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := appFromCommand(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	createInput := func(files []types.Upload) (evaluateInput, error) {
		if len(files) != 2 {
			return evaluateInput{}, fmt.Errorf("expected 2 file paths, got %d", len(files))
		}
		input := evaluateInput{Resume: files[1]}

		if utils.GetFileExtension(files[0].FileName) == ".json" {
			var job types.JobRequirements
			if err := json.Unmarshal(files[0].Data, &job); err != nil {
				return evaluateInput{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
					"job file is not valid job requirements JSON", err)
			}
			input.Job = &job
			return input, nil
		}

		jobText, err := common.UploadText(files[0])
		if err != nil {
			return evaluateInput{}, err
		}
		input.JobText = jobText
		return input, nil
	}

	logDetails := func(input evaluateInput, cfg common.CommandConfig) {
		a.logger.Info("Starting candidate evaluation",
			"structured_job", input.Job != nil,
			"resume", input.Resume.FileName,
			"output_format", cfg.OutputFormat)
	}

	evaluate := func(ctx context.Context, input evaluateInput) (types.EvaluationResult, error) {
		job := input.Job
		if job == nil {
			parsed, err := a.screener.ParseJob(ctx, input.JobText)
			if err != nil {
				return types.EvaluationResult{}, err
			}
			if parsed.IsClientError() && a.cfg.Screening.AbortOnJobFailure {
				return types.EvaluationResult{}, errors.NewAIError(errors.ErrCodeJobParsingFailed,
					"Failed to parse Job Description: "+parsed.JobTitle, nil)
			}
			job = &parsed
		}

		profile, err := a.screener.ParseResume(ctx, input.Resume)
		if err != nil {
			return types.EvaluationResult{}, err
		}
		return a.screener.Evaluate(ctx, *job, profile).Normalized(), nil
	}

	return common.RunCommand(cmd.Context(), a.runner(), evaluateConfig, args, createInput, evaluate, logDetails)
}
