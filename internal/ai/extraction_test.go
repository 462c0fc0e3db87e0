package ai_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescreener/internal/ai"
	"resumescreener/internal/ai/aitest"
	"resumescreener/internal/config"
	"resumescreener/internal/errors"
	"resumescreener/internal/types"
)

func newExtractor(client ai.Client, observer ai.Observer) *ai.Extractor {
	return ai.NewExtractor(client, ai.NewPrompts(nil), config.HeuristicLimit{}, observer, errors.Discard())
}

func TestExtractJobRequirements(t *testing.T) {
	const jobText = "Platform Engineer\nResponsibilities:\n- Run Kubernetes\n- Automate deploys\n- Keep costs down\n"

	tests := []struct {
		name     string
		client   ai.Client
		check    func(t *testing.T, job types.JobRequirements)
		fallback string
	}{
		{
			name:   "valid reply",
			client: aitest.Ready(aitest.Reply(`{"job_title":"Platform Engineer","must_have_skills":["Kubernetes","Go"],"good_to_have_skills":["AWS"],"min_years_experience":4,"core_responsibilities":["Run clusters"]}`)),
			check: func(t *testing.T, job types.JobRequirements) {
				assert.Equal(t, "Platform Engineer", job.JobTitle)
				assert.Equal(t, []string{"Kubernetes", "Go"}, job.MustHaveSkills)
				assert.Equal(t, 4.0, job.MinYearsExperience)
			},
		},
		{
			name:   "json inside prose is recovered",
			client: aitest.Ready(aitest.Reply("Here you go:\n```json\n{\"job_title\":\"SRE\",\"min_years_experience\":2.5}\n```")),
			check: func(t *testing.T, job types.JobRequirements) {
				assert.Equal(t, "SRE", job.JobTitle)
				assert.Equal(t, 2.5, job.MinYearsExperience)
				assert.NotNil(t, job.MustHaveSkills)
			},
		},
		{
			name:     "garbage reply uses heuristic",
			client:   aitest.Ready(aitest.Reply("I am unable to comply.")),
			fallback: "heuristic",
			check: func(t *testing.T, job types.JobRequirements) {
				assert.Empty(t, job.JobTitle)
				assert.Equal(t, []string{"Run Kubernetes", "Automate deploys", "Keep costs down"}, job.CoreResponsibilities)
				assert.Empty(t, job.MustHaveSkills)
			},
		},
		{
			name:     "empty reply uses heuristic",
			client:   aitest.Ready(aitest.Reply("")),
			fallback: "heuristic",
			check: func(t *testing.T, job types.JobRequirements) {
				assert.Len(t, job.CoreResponsibilities, 3)
			},
		},
		{
			name:     "transport error gives parsing failed sentinel",
			client:   aitest.Ready(aitest.Fail(stderrors.New("connection reset"))),
			fallback: "transport_error",
			check: func(t *testing.T, job types.JobRequirements) {
				assert.Equal(t, types.JobTitleParsingFailed, job.JobTitle)
				assert.Equal(t, []string{"Error: connection reset"}, job.CoreResponsibilities)
				assert.True(t, job.IsSentinel())
				assert.False(t, job.IsClientError(), "a model was reached")
			},
		},
		{
			name:     "unavailable client gives error sentinel",
			client:   ai.Unavailable{Reason: "no API key"},
			fallback: "client_unavailable",
			check: func(t *testing.T, job types.JobRequirements) {
				assert.Equal(t, types.JobTitleClientError, job.JobTitle)
				require.Len(t, job.CoreResponsibilities, 1)
				assert.Contains(t, job.CoreResponsibilities[0], "no API key")
				assert.True(t, job.IsClientError())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer := aitest.NewObserver()
			job := newExtractor(tt.client, observer).ExtractJobRequirements(context.Background(), jobText)
			tt.check(t, job)
			if tt.fallback == "" {
				assert.Empty(t, observer.Fallbacks(ai.OpExtractJob))
			} else {
				assert.Equal(t, []string{tt.fallback}, observer.Fallbacks(ai.OpExtractJob))
			}
		})
	}
}

func TestExtractJobRequirementsIsTotal(t *testing.T) {
	backend := aitest.Reply("not json")
	extractor := newExtractor(aitest.Ready(backend), nil)

	for _, input := range []string{"", "   ", "\x00\x01garbage{{[[", "Error reading PDF: bad xref"} {
		job := extractor.ExtractJobRequirements(context.Background(), input)
		assert.NotNil(t, job.CoreResponsibilities, "input %q", input)
		assert.NotNil(t, job.MustHaveSkills, "input %q", input)
	}
}

func TestExtractJobSendsSchemaAndText(t *testing.T) {
	backend := aitest.Reply(`{"job_title":"X"}`)
	newExtractor(aitest.Ready(backend), nil).ExtractJobRequirements(context.Background(), "UNIQUE-JOB-TEXT")

	calls := backend.CallsFor(ai.OpExtractJob)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "UNIQUE-JOB-TEXT")
	assert.NotEmpty(t, calls[0].SystemPrompt)
	require.NotNil(t, calls[0].Schema)
	assert.Contains(t, calls[0].Schema.Properties, "core_responsibilities")
}

func TestExtractCandidateProfile(t *testing.T) {
	const resume = "Jane Doe\nSenior Go Engineer\n8 years building APIs\n"

	tests := []struct {
		name  string
		reply *aitest.Backend
		check func(t *testing.T, p types.CandidateProfile)
	}{
		{
			name:  "valid reply",
			reply: aitest.Reply(`{"candidate_name":"Jane Doe","total_experience_years":8,"skills":["Go"],"work_experience_summary":"APIs"}`),
			check: func(t *testing.T, p types.CandidateProfile) {
				assert.Equal(t, "Jane Doe", p.CandidateName)
				assert.Equal(t, 8.0, p.TotalExperienceYears)
				assert.Equal(t, []string{"Go"}, p.Skills)
			},
		},
		{
			name:  "empty name is backfilled from file name",
			reply: aitest.Reply(`{"candidate_name":"","total_experience_years":3}`),
			check: func(t *testing.T, p types.CandidateProfile) {
				assert.Equal(t, "jane_doe", p.CandidateName)
				assert.Equal(t, 3.0, p.TotalExperienceYears)
			},
		},
		{
			name:  "heuristic summary with backfilled name",
			reply: aitest.Reply("sorry, no JSON today"),
			check: func(t *testing.T, p types.CandidateProfile) {
				assert.Equal(t, "jane_doe", p.CandidateName)
				assert.Equal(t, "Jane Doe Senior Go Engineer 8 years building APIs", p.WorkExperienceSummary)
				assert.Zero(t, p.TotalExperienceYears)
				assert.Equal(t, []string{}, p.Skills)
			},
		},
		{
			name:  "transport error",
			reply: aitest.Fail(stderrors.New("503 unavailable")),
			check: func(t *testing.T, p types.CandidateProfile) {
				assert.Equal(t, "jane_doe", p.CandidateName)
				assert.Equal(t, "Parsing Error: 503 unavailable", p.WorkExperienceSummary)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := newExtractor(aitest.Ready(tt.reply), nil).
				ExtractCandidateProfile(context.Background(), resume, "jane_doe.pdf")
			tt.check(t, profile)
		})
	}
}

func TestExtractCandidateProfileEmptyText(t *testing.T) {
	profile := newExtractor(aitest.Ready(aitest.Reply("")), nil).
		ExtractCandidateProfile(context.Background(), "", "cv.docx")

	assert.Equal(t, "cv", profile.CandidateName)
	assert.Equal(t, types.EmptyResumeSummary, profile.WorkExperienceSummary)
}

func TestExtractCandidateProfileUnavailable(t *testing.T) {
	profile := newExtractor(ai.Unavailable{Reason: "missing key"}, nil).
		ExtractCandidateProfile(context.Background(), "text", "a.pdf")

	assert.Equal(t, "Error", profile.CandidateName)
	assert.Contains(t, profile.WorkExperienceSummary, "missing key")
}

func TestCustomPromptOverridesDefault(t *testing.T) {
	cfg := &config.Config{AI: config.AIConfig{
		CustomPrompts: config.PromptConfig{
			UserPrompts: config.PromptSet{ExtractResume: "CUSTOM RESUME PROMPT\n{text}"},
		},
	}}
	backend := aitest.Reply(`{"candidate_name":"A"}`)
	ai.NewExtractor(aitest.Ready(backend), ai.NewPrompts(cfg), config.HeuristicLimit{}, nil, nil).
		ExtractCandidateProfile(context.Background(), "resume body", "a.pdf")

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "CUSTOM RESUME PROMPT\nresume body", calls[0].Prompt)
}
