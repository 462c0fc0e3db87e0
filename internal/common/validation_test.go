package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown", "csv"}

	tests := []struct {
		name          string
		format        string
		supported     []string
		expectedError string
	}{
		{name: "json", format: "json", supported: supported},
		{name: "csv", format: "csv", supported: supported},
		{name: "xml", format: "xml", supported: supported, expectedError: "unsupported output format 'xml'. Supported formats: [json text markdown csv]"},
		{name: "case sensitive", format: "JSON", supported: supported, expectedError: "unsupported output format 'JSON'. Supported formats: [json text markdown csv]"},
		{name: "empty format", format: "", supported: []string{"json"}, expectedError: "unsupported output format ''. Supported formats: [json]"},
		{name: "no restrictions", format: "xml", supported: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.expectedError, err.Error())
		})
	}
}

func TestResolveOutputFormat(t *testing.T) {
	format, err := ResolveOutputFormat("", "text", []string{"text", "csv"})
	require.NoError(t, err)
	assert.Equal(t, "text", format)

	format, err = ResolveOutputFormat("csv", "text", []string{"text", "csv"})
	require.NoError(t, err)
	assert.Equal(t, "csv", format)

	_, err = ResolveOutputFormat("yaml", "text", []string{"text", "csv"})
	assert.Error(t, err)
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "text", "markdown", "csv"}

	for b.Loop() {
		_ = ValidateOutputFormat("csv", supportedFormats)
	}
}
