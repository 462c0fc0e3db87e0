package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescreener/internal/errors"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestExtractFileText(t *testing.T) {
	path := writeFile(t, "jane_doe.txt", []byte("Jane Doe\nGo developer"))

	text, err := ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo developer", text)
}

func TestExtractFileUnsupportedType(t *testing.T) {
	path := writeFile(t, "resume.rtf", []byte("{\\rtf1 hello}"))

	text, err := ExtractFile(path)
	require.Error(t, err)
	assert.Empty(t, text)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedFileType))
}

func TestExtractFileMissing(t *testing.T) {
	_, err := ExtractFile(filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotReadable))
}

func TestExtractCorruptDocuments(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{name: "pdf", file: "broken.pdf"},
		{name: "docx", file: "broken.docx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, []byte("this is not a real document"))

			text, err := ExtractFile(path)
			require.Error(t, err)
			assert.Empty(t, text)
			assert.True(t, errors.HasCode(err, errors.ErrCodeExtractionFailed), "got %v", err)
		})
	}
}

func TestStripDocumentXML(t *testing.T) {
	content := `<w:body><w:p><w:r><w:t>Jane   Doe</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Go &amp; Kubernetes</w:t></w:r></w:p><w:p></w:p></w:body>`

	assert.Equal(t, "Jane Doe\nGo & Kubernetes", stripDocumentXML(content))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("cv.PDF"))
	assert.True(t, IsSupported("cv.doc"))
	assert.False(t, IsSupported("cv.png"))
}
