package common

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescreener/internal/errors"
	"resumescreener/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadUploads(t *testing.T) {
	dir := t.TempDir()
	job := writeFile(t, dir, "job.txt", "Backend engineer")
	cv := writeFile(t, dir, "jane_doe.md", "# Jane")

	uploads, err := NewFileProcessor(errors.Discard(), 0).ReadUploads(job, cv)
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, "job.txt", uploads[0].FileName)
	assert.Equal(t, "# Jane", string(uploads[1].Data))
}

func TestReadUploadsErrors(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, dir, "big.txt", strings.Repeat("x", 64))

	tests := []struct {
		name    string
		path    string
		maxSize int64
		code    string
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.pdf"), code: "INVALID_INPUT_FILE"},
		{name: "directory", path: dir, code: "INVALID_INPUT_FILE"},
		{name: "too large", path: big, maxSize: 16, code: errors.ErrCodeFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileProcessor(nil, tt.maxSize).ReadUploads(tt.path)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())
		})
	}
}

func TestUploadText(t *testing.T) {
	text, err := UploadText(types.Upload{FileName: "job.txt", Data: []byte("Go developer")})
	require.NoError(t, err)
	assert.Equal(t, "Go developer", text)

	text, err = UploadText(types.Upload{FileName: "job", Data: []byte("no extension")})
	require.NoError(t, err)
	assert.Equal(t, "no extension", text)

	_, err = UploadText(types.Upload{FileName: "job.pdf", Data: []byte("not a pdf")})
	assert.True(t, errors.HasCode(err, errors.ErrCodeExtractionFailed))
}

func TestHandleOutput(t *testing.T) {
	var stdout bytes.Buffer
	handler := NewOutputHandlerTo(&stdout, errors.Discard())

	err := handler.HandleOutput(types.EvaluationResult{CandidateName: "Ada", FinalScore: 88, Status: types.StatusAccepted},
		CommandConfig{OutputFormat: "text"})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Score: 88/100")

	out := filepath.Join(t.TempDir(), "nested", "report.json")
	require.NoError(t, handler.HandleOutput(types.CandidateProfile{CandidateName: "Ada"}, CommandConfig{OutputFile: out, OutputFormat: "json"}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"candidate_name": "Ada"`)

	err = handler.HandleOutput(types.CandidateProfile{}, CommandConfig{OutputFormat: "csv"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	job := writeFile(t, dir, "job.txt", "Platform engineer")

	usage := NewUsageTally(nil)
	usage.AICall(context.Background(), "extract_job", time.Millisecond, 120, 30, nil)
	usage.AICall(context.Background(), "evaluate_candidate", time.Millisecond, 200, 50, stderrors.New("boom"))

	var stdout bytes.Buffer
	var logs bytes.Buffer
	logger, err := errors.NewWithWriter(&logs, "info")
	require.NoError(t, err)

	err = RunCommand(context.Background(),
		Runner{Logger: logger, Usage: usage, Stdout: &stdout},
		CommandConfig{OutputFormat: "markdown"},
		[]string{job},
		func(files []types.Upload) (string, error) { return UploadText(files[0]) },
		func(_ context.Context, text string) (types.JobRequirements, error) {
			return types.JobRequirements{JobTitle: text}, nil
		},
		func(string, CommandConfig) {},
	)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "# Platform engineer")
	assert.Contains(t, logs.String(), `"total_tokens":400`)

	calls, in, out := usage.Totals()
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(320), in)
	assert.Equal(t, int64(80), out)
}

func TestRunCommandPropagatesOperationError(t *testing.T) {
	job := writeFile(t, t.TempDir(), "job.txt", "x")
	wantErr := errors.NewAIError(errors.ErrCodeJobParsingFailed, "Failed to parse Job Description: quota", nil)

	err := RunCommand(context.Background(), Runner{}, CommandConfig{OutputFormat: "json"}, []string{job},
		func(files []types.Upload) (string, error) { return "", nil },
		func(context.Context, string) (string, error) { return "", wantErr },
		func(string, CommandConfig) {},
	)
	assert.ErrorIs(t, err, wantErr)
}
