package ai

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedDocument is returned for binary input that is not a PDF.
var ErrUnsupportedDocument = errors.New("ai: unsupported document type")

// ExtractDocumentText returns the plain text of a brief. PDFs are parsed page
// by page; any other input must be UTF-8 text.
func ExtractDocumentText(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", errors.New("ai: document is empty")
	}
	if bytes.HasPrefix(data, []byte("%PDF")) {
		text, err := extractTextFromPDF(data)
		if err != nil {
			return "", fmt.Errorf("ai: read pdf: %w", err)
		}
		return strings.TrimSpace(text), nil
	}
	if !utf8.Valid(data) {
		return "", ErrUnsupportedDocument
	}
	return strings.TrimSpace(string(data)), nil
}

func extractTextFromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
