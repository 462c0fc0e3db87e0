package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumescreener/internal/common"
	"resumescreener/internal/types"
)

var screenCmd = &cobra.Command{
	Use:   "screen [job-file] [resume-file...]",
	Short: "Rank resumes against a job description",
	Long: `Screen one or more resumes against a job description. The job description
is read from the first file (text, Markdown, PDF or DOCX); every following file
is a resume. Resumes that cannot be read or scored still appear in the ranked
table with a failure status.`,
	Args:    cobra.MinimumNArgs(2),
	PreRunE: resolveOutputFormat(&screenConfig),
	RunE:    runScreen,
}

var screenConfig common.CommandConfig

func init() {
	addOutputFlags(screenCmd, &screenConfig)
}

type screenInput struct {
	JobText string
	Resumes []types.Upload
}

func runScreen(cmd *cobra.Command, args []string) error {
	a, err := appFromCommand(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	createInput := func(files []types.Upload) (screenInput, error) {
		jobText, err := common.UploadText(files[0])
		if err != nil {
			return screenInput{}, fmt.Errorf("failed to read job description %s: %w", files[0].FileName, err)
		}
		return screenInput{JobText: jobText, Resumes: files[1:]}, nil
	}

	logDetails := func(input screenInput, cfg common.CommandConfig) {
		a.logger.Info("Starting resume screening",
			"job_chars", len(input.JobText),
			"resumes", len(input.Resumes),
			"output_format", cfg.OutputFormat)
	}

	screen := func(ctx context.Context, input screenInput) (*types.ScreeningReport, error) {
		report, err := a.screener.Run(ctx, input.JobText, input.Resumes)
		if err != nil {
			return nil, err
		}
		a.logger.Info("Resume screening completed",
			"batch_id", report.BatchID,
			"accepted", report.Accepted(),
			"failed", report.Failed())
		return report, nil
	}

	return common.RunCommand(cmd.Context(), a.runner(), screenConfig, args, createInput, screen, logDetails)
}
