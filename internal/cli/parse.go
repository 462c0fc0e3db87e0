package cli

import (
	"context"

	"github.com/spf13/cobra"

	"resumescreener/internal/common"
	"resumescreener/internal/types"
)

var parseJobCmd = &cobra.Command{
	Use:     "parse-job [job-file]",
	Short:   "Extract structured requirements from a job description",
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutputFormat(&parseJobConfig),
	RunE:    runParseJob,
}

var parseResumeCmd = &cobra.Command{
	Use:     "parse-resume [resume-file]",
	Short:   "Extract a structured candidate profile from a resume",
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutputFormat(&parseResumeConfig),
	RunE:    runParseResume,
}

var (
	parseJobConfig    common.CommandConfig
	parseResumeConfig common.CommandConfig
)

func init() {
	addOutputFlags(parseJobCmd, &parseJobConfig)
	addOutputFlags(parseResumeCmd, &parseResumeConfig)
}

func runParseJob(cmd *cobra.Command, args []string) error {
	a, err := appFromCommand(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	createInput := func(files []types.Upload) (string, error) {
		return common.UploadText(files[0])
	}
	logDetails := func(jobText string, cfg common.CommandConfig) {
		a.logger.Info("Starting job description parsing",
			"job_chars", len(jobText),
			"output_format", cfg.OutputFormat)
	}
	parse := func(ctx context.Context, jobText string) (types.JobRequirements, error) {
		job, err := a.screener.ParseJob(ctx, jobText)
		if err != nil {
			return types.JobRequirements{}, err
		}
		if job.IsSentinel() {
			a.logger.Warn("Job description could not be parsed", "job_title", job.JobTitle)
		}
		return job.Normalized(), nil
	}

	return common.RunCommand(cmd.Context(), a.runner(), parseJobConfig, args, createInput, parse, logDetails)
}

func runParseResume(cmd *cobra.Command, args []string) error {
	a, err := appFromCommand(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	createInput := func(files []types.Upload) (types.Upload, error) {
		return files[0], nil
	}
	logDetails := func(upload types.Upload, cfg common.CommandConfig) {
		a.logger.Info("Starting resume parsing",
			"file", upload.FileName,
			"bytes", len(upload.Data),
			"output_format", cfg.OutputFormat)
	}
	parse := func(ctx context.Context, upload types.Upload) (types.CandidateProfile, error) {
		profile, err := a.screener.ParseResume(ctx, upload)
		if err != nil {
			return types.CandidateProfile{}, err
		}
		return profile.Normalized(), nil
	}

	return common.RunCommand(cmd.Context(), a.runner(), parseResumeConfig, args, createInput, parse, logDetails)
}
