// Package extractor turns uploaded resume files into plain text.
package extractor

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"resumescreener/internal/errors"
	"resumescreener/internal/utils"
)

// SupportedExtensions lists the file types ExtractFile understands.
var SupportedExtensions = []string{".pdf", ".docx", ".doc", ".txt", ".md"}

var (
	xmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
	paragraphClose = regexp.MustCompile(`</w:p>`)
	spaceRun       = regexp.MustCompile(`[ \t]+`)
)

// ExtractFile reads the file at path and returns its text content.
// Failures are reported as *errors.AppError and never as text.
func ExtractFile(path string) (string, error) {
	ext := utils.GetFileExtension(path)
	if !IsSupported(path) {
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
			fmt.Sprintf("unsupported file type: %s", ext), nil).
			WithContext("file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read file", err).
			WithContext("file", path)
	}
	return ExtractBytes(ext, data)
}

// ExtractBytes extracts text from in-memory file content of the given extension.
func ExtractBytes(ext string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(ext) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx", ".doc":
		text, err = extractDocx(data)
	case ".txt", ".md":
		text = string(data)
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
			fmt.Sprintf("unsupported file type: %s", ext), nil)
	}
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			fmt.Sprintf("error reading %s", strings.TrimPrefix(strings.ToUpper(ext), ".")), err)
	}
	return text, nil
}

// IsSupported reports whether path has an extension ExtractFile can handle.
func IsSupported(path string) bool {
	return utils.HasAllowedExtension(path, SupportedExtensions)
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDocx(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer func() { _ = doc.Close() }()

	return stripDocumentXML(doc.Editable().GetContent()), nil
}

// stripDocumentXML reduces WordprocessingML to plain text, one paragraph per line.
func stripDocumentXML(content string) string {
	content = paragraphClose.ReplaceAllString(content, "\n")
	content = xmlTagPattern.ReplaceAllString(content, "")

	lines := strings.Split(content, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(unescapeXML(line), " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

var xmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}
