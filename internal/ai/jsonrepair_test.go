package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescreener/internal/types"
)

func TestDecodeRecovered(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTitle string
		recovered bool
		wantErr   bool
	}{
		{
			name:      "clean object",
			input:     `{"job_title":"Data Engineer","must_have_skills":["SQL"]}`,
			wantTitle: "Data Engineer",
		},
		{
			name:      "object wrapped in prose",
			input:     "Sure! Here is the JSON:\n```json\n{\"job_title\":\"SRE\"}\n```\nLet me know.",
			wantTitle: "SRE",
			recovered: true,
		},
		{
			name:      "braces inside strings are ignored",
			input:     `Result: {"job_title":"Dev {backend}","core_responsibilities":["use } carefully"]} trailing`,
			wantTitle: "Dev {backend}",
			recovered: true,
		},
		{
			name:      "escaped quotes inside strings",
			input:     `note {"job_title":"The \"Lead\" role"} end`,
			wantTitle: `The "Lead" role`,
			recovered: true,
		},
		{
			name:      "array whose first element is an object",
			input:     `Here: [{"job_title":"First"},{"job_title":"Second"}]`,
			wantTitle: "First",
			recovered: true,
		},
		{
			name:    "array of strings",
			input:   `["a","b"]`,
			wantErr: true,
		},
		{
			name:    "type mismatch",
			input:   `{"job_title": 12}`,
			wantErr: true,
		},
		{
			name:    "no json at all",
			input:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "truncated object",
			input:   `{"job_title":"Cut`,
			wantErr: true,
		},
		{
			name:      "truncated opener then a complete object",
			input:     `{"job_title": {"job_title":"Inner"}`,
			wantTitle: "Inner",
			recovered: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, recovered, err := decodeRecovered[types.JobRequirements](tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, job.JobTitle)
			assert.Equal(t, tt.recovered, recovered)
		})
	}
}

func TestDecodeObjectMissingFieldsAreZero(t *testing.T) {
	profile, err := decodeObject[types.CandidateProfile](`{"candidate_name":"Ada"}`)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.CandidateName)
	assert.Zero(t, profile.TotalExperienceYears)
	assert.Nil(t, profile.Skills)
}

func TestDecodeObjectRejectsNonObjects(t *testing.T) {
	for _, input := range []string{"", "   ", `"text"`, `[{"candidate_name":"x"}]`, "42"} {
		_, err := decodeObject[types.CandidateProfile](input)
		assert.ErrorIs(t, err, errNotObject, "input %q", input)
	}
}

func TestFirstBalanced(t *testing.T) {
	span, ok := firstBalanced(`a {"x":{"y":"}"}} b {"z":1}`, '{', '}')
	require.True(t, ok)
	assert.Equal(t, `{"x":{"y":"}"}}`, span)

	_, ok = firstBalanced(`no braces here`, '{', '}')
	assert.False(t, ok)
}
