package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescreener/internal/ai"
	"resumescreener/internal/ai/aitest"
	"resumescreener/internal/config"
	"resumescreener/internal/errors"
	"resumescreener/internal/storage"
	"resumescreener/internal/types"
)

const jobJSON = `{"job_title":"Go Developer","must_have_skills":["Go"],"good_to_have_skills":[],"min_years_experience":3,"core_responsibilities":["Build services"]}`

var (
	resumeName  = regexp.MustCompile(`NAME: (\w+)`)
	profileName = regexp.MustCompile(`"candidate_name":"(\w+)"`)
)

// scriptedBackend answers job extraction with jobJSON, resume extraction with the
// NAME: line of the resume, and evaluation with scores[name].
func scriptedBackend(scores map[string]int) *aitest.Backend {
	return &aitest.Backend{Respond: func(req ai.Request) (string, error) {
		switch req.Operation {
		case ai.OpExtractJob:
			return jobJSON, nil
		case ai.OpExtractResume:
			m := resumeName.FindStringSubmatch(req.Prompt)
			if m == nil {
				return `{"candidate_name":""}`, nil
			}
			return fmt.Sprintf(`{"candidate_name":%q,"total_experience_years":4,"skills":["Go"],"work_experience_summary":"dev"}`, m[1]), nil
		case ai.OpEvaluateCandidate:
			m := profileName.FindStringSubmatch(req.Prompt)
			if m == nil {
				return "", stderrors.New("no candidate in prompt")
			}
			return fmt.Sprintf(`{"candidate_name":%q,"final_score":%d,"status":"Rejected","quantitative_gaps":[],"recruiter_rationale":"scored"}`,
				m[1], scores[m[1]]), nil
		}
		return "", stderrors.New("unexpected operation")
	}}
}

func screeningConfig() config.ScreeningConfig {
	return config.ScreeningConfig{
		Threshold:         75,
		EnforceThreshold:  true,
		MaxResumes:        10,
		AbortOnJobFailure: true,
		AllowedExtensions: []string{".pdf", ".docx", ".doc", ".txt", ".md"},
	}
}

func newScreener(backend ai.Backend, cfg config.ScreeningConfig, opts ...Option) *Screener {
	client := ai.Ready{Backend: backend}
	logger := errors.Discard()
	return New(
		ai.NewExtractor(client, nil, cfg.Heuristics, nil, logger),
		ai.NewEvaluator(client, nil, ai.ThresholdPolicyFrom(cfg), nil, logger),
		cfg,
		logger,
		opts...,
	)
}

func txt(name, candidate string) types.Upload {
	return types.Upload{FileName: name, Data: []byte("NAME: " + candidate + "\nGo developer with 4 years\n")}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	screener := newScreener(scriptedBackend(map[string]int{"Alice": 80, "Carol": 60}), screeningConfig())

	uploads := []types.Upload{
		txt("alice.txt", "Alice"),
		{FileName: "broken.pdf", Data: []byte("this is not a pdf")},
		txt("carol.txt", "Carol"),
	}

	report, err := screener.Run(context.Background(), "Go Developer wanted", uploads)
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	assert.Equal(t, "Alice", report.Rows[0].CandidateName)
	assert.Equal(t, types.StatusAccepted, report.Rows[0].Status)
	assert.Equal(t, "Carol", report.Rows[1].CandidateName)
	assert.Equal(t, types.StatusRejected, report.Rows[1].Status)

	failed := report.Rows[2]
	assert.Equal(t, "broken.pdf", failed.CandidateName)
	assert.Equal(t, 0, failed.FinalScore)
	assert.Equal(t, types.StatusFailedSystem, failed.Status)
	assert.Equal(t, []string{types.SystemFailureGap}, failed.QuantitativeGaps)
	assert.True(t, strings.HasPrefix(failed.RecruiterRationale, types.SystemFailureRationale))
	assert.Zero(t, failed.ExperienceYears)

	assert.Equal(t, 1, report.Accepted())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, "Go Developer", report.JobRequirements.JobTitle)
	assert.NotEmpty(t, report.BatchID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestRunSortsStableByScore(t *testing.T) {
	scores := map[string]int{"Ann": 40, "Ben": 90, "Cat": 0, "Dan": 90}
	screener := newScreener(scriptedBackend(scores), screeningConfig())

	uploads := []types.Upload{txt("a.txt", "Ann"), txt("b.txt", "Ben"), txt("c.txt", "Cat"), txt("d.txt", "Dan")}
	report, err := screener.Run(context.Background(), "job", uploads)
	require.NoError(t, err)

	var names []string
	var got []int
	for _, row := range report.Rows {
		names = append(names, row.CandidateName)
		got = append(got, row.FinalScore)
	}
	assert.Equal(t, []int{90, 90, 40, 0}, got)
	assert.Equal(t, []string{"Ben", "Dan", "Ann", "Cat"}, names)
}

func TestSortRows(t *testing.T) {
	rows := []types.ScreeningRow{
		{FileName: "1", FinalScore: 40},
		{FileName: "2", FinalScore: 90},
		{FileName: "3", FinalScore: 0},
		{FileName: "4", FinalScore: 90},
	}
	sortRows(rows)

	var order []string
	for _, r := range rows {
		order = append(order, r.FileName)
	}
	assert.Equal(t, []string{"2", "4", "1", "3"}, order)
}

func TestValidateIntake(t *testing.T) {
	cfg := screeningConfig()
	cfg.MaxResumes = 2
	screener := newScreener(scriptedBackend(nil), cfg)

	tests := []struct {
		name    string
		job     string
		uploads []types.Upload
		code    string
	}{
		{name: "blank job", job: "  \n", uploads: []types.Upload{txt("a.txt", "A")}, code: errors.ErrCodeInvalidRequest},
		{name: "no uploads", job: "job", code: errors.ErrCodeInvalidRequest},
		{name: "too many uploads", job: "job", uploads: []types.Upload{txt("a.txt", "A"), txt("b.txt", "B"), txt("c.txt", "C")}, code: errors.ErrCodeTooManyFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := screener.Run(context.Background(), tt.job, tt.uploads)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())

			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
		})
	}
}

func newUnavailableScreener(cfg config.ScreeningConfig) *Screener {
	client := ai.Unavailable{Reason: "missing API key"}
	logger := errors.Discard()
	return New(
		ai.NewExtractor(client, nil, cfg.Heuristics, nil, logger),
		ai.NewEvaluator(client, nil, ai.ThresholdPolicyFrom(cfg), nil, logger),
		cfg,
		logger,
	)
}

func TestRunAbortsWhenClientUnavailable(t *testing.T) {
	screener := newUnavailableScreener(screeningConfig())

	_, err := screener.Run(context.Background(), "job", []types.Upload{txt("a.txt", "A")})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeJobParsingFailed))
	assert.Contains(t, err.Error(), "missing API key")
}

func TestRunContinuesWhenClientUnavailableWithoutAbort(t *testing.T) {
	cfg := screeningConfig()
	cfg.AbortOnJobFailure = false
	screener := newUnavailableScreener(cfg)

	report, err := screener.Run(context.Background(), "job", []types.Upload{txt("a.txt", "A"), txt("b.txt", "B")})
	require.NoError(t, err)
	assert.Equal(t, types.JobTitleClientError, report.JobRequirements.JobTitle)
	assert.Len(t, report.Rows, 2)
}

func TestRunScreensAgainstParsingFailedJob(t *testing.T) {
	backend := &aitest.Backend{Respond: func(req ai.Request) (string, error) {
		if req.Operation == ai.OpExtractJob {
			return "", stderrors.New("quota exceeded")
		}
		return scriptedBackend(map[string]int{"Ann": 30, "Bob": 20}).Respond(req)
	}}
	screener := newScreener(backend, screeningConfig())

	uploads := []types.Upload{txt("a.txt", "Ann"), txt("b.txt", "Bob"), {FileName: "broken.pdf", Data: []byte("not a pdf")}}
	report, err := screener.Run(context.Background(), "job", uploads)
	require.NoError(t, err)

	assert.Equal(t, types.JobTitleParsingFailed, report.JobRequirements.JobTitle)
	assert.Contains(t, report.JobRequirements.CoreResponsibilities[0], "quota exceeded")
	require.Len(t, report.Rows, len(uploads))
	assert.Equal(t, "Ann", report.Rows[0].CandidateName)
	assert.Equal(t, "Bob", report.Rows[1].CandidateName)
	assert.Equal(t, types.StatusFailedSystem, report.Rows[2].Status)
	assert.Len(t, backend.CallsFor(ai.OpEvaluateCandidate), 2)
}

func TestRunRecoversFromPanics(t *testing.T) {
	calls := 0
	screener := newScreener(scriptedBackend(map[string]int{"Bob": 70}), screeningConfig(),
		WithTextExtractor(func(path string) (string, error) {
			calls++
			if calls == 1 {
				panic("reader exploded")
			}
			return "NAME: Bob\n", nil
		}))

	report, err := screener.Run(context.Background(), "job", []types.Upload{txt("a.txt", "A"), txt("b.txt", "Bob")})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	assert.Equal(t, "Bob", report.Rows[0].CandidateName)
	assert.Equal(t, types.StatusFailedSystem, report.Rows[1].Status)
	assert.Contains(t, report.Rows[1].RecruiterRationale, "reader exploded")
}

func TestRunBlankTextAndUnsupportedType(t *testing.T) {
	screener := newScreener(scriptedBackend(map[string]int{"Eve": 90}), screeningConfig())

	uploads := []types.Upload{
		{FileName: "empty.txt", Data: []byte("   \n\n")},
		{FileName: "photo.png", Data: []byte{0x89, 'P', 'N', 'G'}},
		txt("eve.md", "Eve"),
	}
	report, err := screener.Run(context.Background(), "job", uploads)
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	assert.Equal(t, "Eve", report.Rows[0].CandidateName)
	byFile := map[string]types.ScreeningRow{}
	for _, row := range report.Rows {
		byFile[row.FileName] = row
	}
	assert.Equal(t, types.StatusFailedSystem, byFile["empty.txt"].Status)
	assert.Contains(t, byFile["empty.txt"].RecruiterRationale, "Input error")
	assert.Equal(t, types.StatusFailedSystem, byFile["photo.png"].Status)
	assert.Contains(t, byFile["photo.png"].RecruiterRationale, "Unsupported file type")
}

func TestRunCancellationFillsRemainingRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := scriptedBackend(map[string]int{"A": 50, "B": 60, "C": 70})
	backend := &aitest.Backend{Respond: func(req ai.Request) (string, error) {
		reply, err := inner.Respond(req)
		if req.Operation == ai.OpEvaluateCandidate {
			cancel()
		}
		return reply, err
	}}

	report, err := newScreener(backend, screeningConfig()).
		Run(ctx, "job", []types.Upload{txt("a.txt", "A"), txt("b.txt", "B"), txt("c.txt", "C")})
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	assert.Equal(t, "A", report.Rows[0].CandidateName)
	assert.Equal(t, 50, report.Rows[0].FinalScore)
	for _, row := range report.Rows[1:] {
		assert.Equal(t, types.StatusFailedSystem, row.Status)
		assert.Contains(t, row.RecruiterRationale, context.Canceled.Error())
	}
}

type countingRecorder struct {
	mu       sync.Mutex
	jobs     int
	statuses []string
}

func (r *countingRecorder) JobParsed(context.Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs++
}

func (r *countingRecorder) ResumeScreened(_ context.Context, status string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func TestRunRetainsAndRecords(t *testing.T) {
	dir := t.TempDir()
	local, err := storage.NewLocal(dir)
	require.NoError(t, err)
	recorder := &countingRecorder{}

	screener := newScreener(scriptedBackend(map[string]int{"Zed": 99}), screeningConfig(),
		WithRetainer(local), WithRecorder(recorder))

	report, err := screener.Run(context.Background(), "job", []types.Upload{txt("zed.txt", "Zed")})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)

	assert.True(t, strings.HasPrefix(report.Rows[0].StoredAt, dir))
	require.NotNil(t, report.Rows[0].Profile)
	assert.Equal(t, 4.0, report.Rows[0].ExperienceYears)
	assert.Equal(t, 1, recorder.jobs)
	assert.Equal(t, []string{types.StatusAccepted}, recorder.statuses)
}

func TestParseResumeAndJob(t *testing.T) {
	screener := newScreener(scriptedBackend(nil), screeningConfig())

	profile, err := screener.ParseResume(context.Background(), txt("kim.txt", "Kim"))
	require.NoError(t, err)
	assert.Equal(t, "Kim", profile.CandidateName)

	_, err = screener.ParseResume(context.Background(), types.Upload{FileName: "x.exe", Data: []byte("MZ")})
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedFileType))

	job, err := screener.ParseJob(context.Background(), "Go Developer")
	require.NoError(t, err)
	assert.Equal(t, "Go Developer", job.JobTitle)

	_, err = screener.ParseJob(context.Background(), "")
	assert.Error(t, err)
}
