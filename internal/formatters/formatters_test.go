package formatters

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescreener/internal/types"
)

func sampleReport() *types.ScreeningReport {
	return &types.ScreeningReport{
		BatchID:         "batch-1",
		JobRequirements: types.JobRequirements{JobTitle: "Go Developer"},
		Rows: []types.ScreeningRow{
			{
				CandidateName:      "Ada",
				FileName:           "ada.pdf",
				FinalScore:         91,
				Status:             types.StatusAccepted,
				RecruiterRationale: "Strong Go background, \"production\" services.",
				QuantitativeGaps:   []string{},
				ExperienceYears:    6.5,
			},
			{
				CandidateName:      "broken.pdf",
				FileName:           "broken.pdf",
				Status:             types.StatusFailedSystem,
				RecruiterRationale: types.SystemFailureRationale + "error reading PDF",
				QuantitativeGaps:   []string{types.SystemFailureGap},
			},
		},
	}
}

func TestRegistryFormats(t *testing.T) {
	registry := NewFormatterRegistry()
	report := sampleReport()

	tests := []struct {
		name     string
		data     any
		format   string
		contains []string
	}{
		{name: "report text", data: report, format: "text", contains: []string{"=== SCREENING RESULTS ===", "1. Ada [Accepted] score 91/100", "Experience: 6.5 years", "Gaps: System Failure"}},
		{name: "report value markdown", data: *report, format: "markdown", contains: []string{"# Screening Results", "| 1 | Ada | 91 | Accepted | 6.5 |  |", "**Accepted:** 1 of 2"}},
		{name: "job markdown", data: types.JobRequirements{JobTitle: "SRE", MinYearsExperience: 3, MustHaveSkills: []string{"Kubernetes"}}, format: "markdown", contains: []string{"# SRE", "## Must Have Skills", "- Kubernetes"}},
		{name: "job text", data: types.JobRequirements{JobTitle: "SRE", CoreResponsibilities: []string{"On-call"}}, format: "text", contains: []string{"Title: SRE", "Core Responsibilities:", "- On-call"}},
		{name: "profile text", data: types.CandidateProfile{CandidateName: "Ada", TotalExperienceYears: 4, Skills: []string{"Go"}, WorkExperienceSummary: "Backend"}, format: "text", contains: []string{"Name: Ada", "Experience: 4 years", "- Go", "Backend"}},
		{name: "evaluation markdown no gaps", data: types.EvaluationResult{CandidateName: "Ada", FinalScore: 80, Status: types.StatusAccepted}, format: "markdown", contains: []string{"# Evaluation: Ada", "**Score:** 80/100", "## No Gaps Found"}},
		{name: "evaluation text", data: types.EvaluationResult{CandidateName: "Bo", Status: types.StatusRejectedLLMError, QuantitativeGaps: []string{"LLM Processing Error: timeout"}}, format: "text", contains: []string{"Status: Rejected (LLM Error)", "- LLM Processing Error: timeout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := registry.Format(tt.data, tt.format)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestJSONFallbackForAnyType(t *testing.T) {
	out, err := NewFormatterRegistry().Format(types.CandidateProfile{CandidateName: "Ada", Skills: []string{}}, "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "Ada", decoded["candidate_name"])
	assert.Equal(t, []any{}, decoded["skills"])
}

func TestCSVReport(t *testing.T) {
	out, err := NewFormatterRegistry().Format(sampleReport(), "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"1", "Ada", "ada.pdf", "91", "Accepted", "6.5", "", "Strong Go background, \"production\" services."}, records[1])
	assert.Equal(t, "Failed (System Error)", records[2][4])
	assert.Equal(t, "System Failure", records[2][6])
}

func TestUnknownFormat(t *testing.T) {
	registry := NewFormatterRegistry()

	_, err := registry.Format(types.JobRequirements{}, "csv")
	assert.Error(t, err)

	_, err = registry.Format(sampleReport(), "yaml")
	assert.Error(t, err)

	assert.Equal(t, []string{"csv", "json", "markdown", "text"}, registry.GetSupportedFormats())
}

func TestMarkdownEscapesCells(t *testing.T) {
	report := &types.ScreeningReport{Rows: []types.ScreeningRow{{CandidateName: "A|B", QuantitativeGaps: []string{"line\nbreak"}}}}
	out, err := (&ReportMarkdownFormatter{}).Format(report)
	require.NoError(t, err)
	assert.Contains(t, out, `A\|B`)
	assert.Contains(t, out, "line break")
}
