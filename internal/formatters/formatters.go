package formatters

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"resumescreener/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// Data type keys
const (
	TypeAny        = "any"
	TypeReport     = "ScreeningReport"
	TypeJob        = "JobRequirements"
	TypeProfile    = "CandidateProfile"
	TypeEvaluation = "EvaluationResult"
)

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", TypeAny, &JSONFormatter{})
	registry.RegisterFormatter("text", TypeReport, &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", TypeReport, &ReportMarkdownFormatter{})
	registry.RegisterFormatter("csv", TypeReport, &ReportCSVFormatter{})
	registry.RegisterFormatter("text", TypeJob, &JobTextFormatter{})
	registry.RegisterFormatter("markdown", TypeJob, &JobMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeProfile, &ProfileTextFormatter{})
	registry.RegisterFormatter("markdown", TypeProfile, &ProfileMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeEvaluation, &EvaluationTextFormatter{})
	registry.RegisterFormatter("markdown", TypeEvaluation, &EvaluationMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[TypeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ScreeningReport, *types.ScreeningReport:
		return TypeReport
	case types.JobRequirements:
		return TypeJob
	case types.CandidateProfile:
		return TypeProfile
	case types.EvaluationResult:
		return TypeEvaluation
	default:
		return TypeAny
	}
}

func asReport(data any) (*types.ScreeningReport, error) {
	switch r := data.(type) {
	case types.ScreeningReport:
		return &r, nil
	case *types.ScreeningReport:
		if r == nil {
			return nil, fmt.Errorf("nil ScreeningReport")
		}
		return r, nil
	}
	return nil, fmt.Errorf("expected ScreeningReport, got %T", data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return TypeAny
}

// ReportTextFormatter renders the ranked results table as plain text
type ReportTextFormatter struct{}

func (rtf *ReportTextFormatter) Format(data any) (string, error) {
	report, err := asReport(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("=== SCREENING RESULTS ===\n\n")
	output.WriteString(fmt.Sprintf("Job: %s\n", report.JobRequirements.JobTitle))
	output.WriteString(fmt.Sprintf("Batch: %s\n", report.BatchID))
	output.WriteString(fmt.Sprintf("Candidates: %d (accepted %d, failed %d)\n\n",
		len(report.Rows), report.Accepted(), report.Failed()))

	for i, row := range report.Rows {
		output.WriteString(fmt.Sprintf("%d. %s [%s] score %d/100\n", i+1, row.CandidateName, row.Status, row.FinalScore))
		output.WriteString(fmt.Sprintf("   File: %s\n", row.FileName))
		output.WriteString(fmt.Sprintf("   Experience: %s years\n", formatYears(row.ExperienceYears)))
		if len(row.QuantitativeGaps) > 0 {
			output.WriteString("   Gaps: ")
			output.WriteString(strings.Join(row.QuantitativeGaps, "; "))
			output.WriteString("\n")
		}
		output.WriteString("   Rationale: ")
		output.WriteString(row.RecruiterRationale)
		output.WriteString("\n\n")
	}

	return output.String(), nil
}

func (rtf *ReportTextFormatter) SupportedType() string {
	return TypeReport
}

// ReportMarkdownFormatter renders the ranked results as a markdown table
type ReportMarkdownFormatter struct{}

func (rmf *ReportMarkdownFormatter) Format(data any) (string, error) {
	report, err := asReport(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("# Screening Results\n\n")
	output.WriteString(fmt.Sprintf("**Job:** %s\n\n", report.JobRequirements.JobTitle))
	output.WriteString(fmt.Sprintf("**Accepted:** %d of %d\n\n", report.Accepted(), len(report.Rows)))

	output.WriteString("| Rank | Candidate | Score | Status | Experience | Gaps |\n")
	output.WriteString("|---|---|---|---|---|---|\n")
	for i, row := range report.Rows {
		output.WriteString(fmt.Sprintf("| %d | %s | %d | %s | %s | %s |\n",
			i+1,
			escapeCell(row.CandidateName),
			row.FinalScore,
			row.Status,
			formatYears(row.ExperienceYears),
			escapeCell(strings.Join(row.QuantitativeGaps, "; "))))
	}

	output.WriteString("\n## Rationale\n\n")
	for _, row := range report.Rows {
		output.WriteString(fmt.Sprintf("### %s\n\n", row.CandidateName))
		output.WriteString(row.RecruiterRationale)
		output.WriteString("\n\n")
	}

	return output.String(), nil
}

func (rmf *ReportMarkdownFormatter) SupportedType() string {
	return TypeReport
}

// ReportCSVFormatter renders one CSV record per candidate, ranked
type ReportCSVFormatter struct{}

var csvHeader = []string{"rank", "candidate_name", "file_name", "final_score", "status", "experience_years", "quantitative_gaps", "recruiter_rationale"}

func (rcf *ReportCSVFormatter) Format(data any) (string, error) {
	report, err := asReport(data)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for i, row := range report.Rows {
		record := []string{
			strconv.Itoa(i + 1),
			row.CandidateName,
			row.FileName,
			strconv.Itoa(row.FinalScore),
			row.Status,
			formatYears(row.ExperienceYears),
			strings.Join(row.QuantitativeGaps, "; "),
			row.RecruiterRationale,
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (rcf *ReportCSVFormatter) SupportedType() string {
	return TypeReport
}

// JobTextFormatter handles text formatting for extracted job requirements
type JobTextFormatter struct{}

func (jtf *JobTextFormatter) Format(data any) (string, error) {
	job, ok := data.(types.JobRequirements)
	if !ok {
		return "", fmt.Errorf("expected JobRequirements, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== JOB REQUIREMENTS ===\n\n")
	output.WriteString(fmt.Sprintf("Title: %s\n", job.JobTitle))
	output.WriteString(fmt.Sprintf("Minimum Experience: %s years\n\n", formatYears(job.MinYearsExperience)))
	writeTextList(&output, "Must Have Skills", job.MustHaveSkills)
	writeTextList(&output, "Good To Have Skills", job.GoodToHaveSkills)
	writeTextList(&output, "Core Responsibilities", job.CoreResponsibilities)

	return output.String(), nil
}

func (jtf *JobTextFormatter) SupportedType() string {
	return TypeJob
}

// JobMarkdownFormatter handles markdown formatting for extracted job requirements
type JobMarkdownFormatter struct{}

func (jmf *JobMarkdownFormatter) Format(data any) (string, error) {
	job, ok := data.(types.JobRequirements)
	if !ok {
		return "", fmt.Errorf("expected JobRequirements, got %T", data)
	}

	var output strings.Builder

	output.WriteString(fmt.Sprintf("# %s\n\n", job.JobTitle))
	output.WriteString(fmt.Sprintf("**Minimum Experience:** %s years\n\n", formatYears(job.MinYearsExperience)))
	writeMarkdownList(&output, "Must Have Skills", job.MustHaveSkills)
	writeMarkdownList(&output, "Good To Have Skills", job.GoodToHaveSkills)
	writeMarkdownList(&output, "Core Responsibilities", job.CoreResponsibilities)

	return output.String(), nil
}

func (jmf *JobMarkdownFormatter) SupportedType() string {
	return TypeJob
}

// ProfileTextFormatter handles text formatting for candidate profiles
type ProfileTextFormatter struct{}

func (ptf *ProfileTextFormatter) Format(data any) (string, error) {
	profile, ok := data.(types.CandidateProfile)
	if !ok {
		return "", fmt.Errorf("expected CandidateProfile, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== CANDIDATE PROFILE ===\n\n")
	output.WriteString(fmt.Sprintf("Name: %s\n", profile.CandidateName))
	output.WriteString(fmt.Sprintf("Experience: %s years\n\n", formatYears(profile.TotalExperienceYears)))
	writeTextList(&output, "Skills", profile.Skills)
	output.WriteString("Summary:\n")
	output.WriteString(profile.WorkExperienceSummary)
	output.WriteString("\n")

	return output.String(), nil
}

func (ptf *ProfileTextFormatter) SupportedType() string {
	return TypeProfile
}

// ProfileMarkdownFormatter handles markdown formatting for candidate profiles
type ProfileMarkdownFormatter struct{}

func (pmf *ProfileMarkdownFormatter) Format(data any) (string, error) {
	profile, ok := data.(types.CandidateProfile)
	if !ok {
		return "", fmt.Errorf("expected CandidateProfile, got %T", data)
	}

	var output strings.Builder

	output.WriteString(fmt.Sprintf("# %s\n\n", profile.CandidateName))
	output.WriteString(fmt.Sprintf("**Experience:** %s years\n\n", formatYears(profile.TotalExperienceYears)))
	writeMarkdownList(&output, "Skills", profile.Skills)
	output.WriteString("## Summary\n\n")
	output.WriteString(profile.WorkExperienceSummary)
	output.WriteString("\n")

	return output.String(), nil
}

func (pmf *ProfileMarkdownFormatter) SupportedType() string {
	return TypeProfile
}

// EvaluationTextFormatter handles text formatting for a single evaluation
type EvaluationTextFormatter struct{}

func (etf *EvaluationTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.EvaluationResult)
	if !ok {
		return "", fmt.Errorf("expected EvaluationResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== CANDIDATE EVALUATION ===\n\n")
	output.WriteString(fmt.Sprintf("Candidate: %s\n", result.CandidateName))
	output.WriteString(fmt.Sprintf("Score: %d/100\n", result.FinalScore))
	output.WriteString(fmt.Sprintf("Status: %s\n\n", result.Status))
	if len(result.QuantitativeGaps) > 0 {
		writeTextList(&output, "Gaps", result.QuantitativeGaps)
	} else {
		output.WriteString("No gaps found.\n\n")
	}
	output.WriteString("Rationale:\n")
	output.WriteString(result.RecruiterRationale)
	output.WriteString("\n")

	return output.String(), nil
}

func (etf *EvaluationTextFormatter) SupportedType() string {
	return TypeEvaluation
}

// EvaluationMarkdownFormatter handles markdown formatting for a single evaluation
type EvaluationMarkdownFormatter struct{}

func (emf *EvaluationMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.EvaluationResult)
	if !ok {
		return "", fmt.Errorf("expected EvaluationResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString(fmt.Sprintf("# Evaluation: %s\n\n", result.CandidateName))
	output.WriteString(fmt.Sprintf("**Score:** %d/100\n\n", result.FinalScore))
	output.WriteString(fmt.Sprintf("**Status:** %s\n\n", result.Status))
	if len(result.QuantitativeGaps) > 0 {
		writeMarkdownList(&output, "Gaps", result.QuantitativeGaps)
	} else {
		output.WriteString("## No Gaps Found\n\n")
	}
	output.WriteString("## Rationale\n\n")
	output.WriteString(result.RecruiterRationale)
	output.WriteString("\n")

	return output.String(), nil
}

func (emf *EvaluationMarkdownFormatter) SupportedType() string {
	return TypeEvaluation
}

func writeTextList(output *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	output.WriteString(title + ":\n")
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
	output.WriteString("\n")
}

func writeMarkdownList(output *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	output.WriteString(fmt.Sprintf("## %s\n\n", title))
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
	output.WriteString("\n")
}

func formatYears(years float64) string {
	return strconv.FormatFloat(years, 'f', -1, 64)
}

// escapeCell keeps pipes and newlines from breaking a markdown table row
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
