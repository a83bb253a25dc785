// Package resume pull plain text out of uploaded resume documents.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Supported resume extension
const (
	ExtPDF  = ".pdf"
	ExtDOCX = ".docx"
)

// MaxTextLength is the longest parsed text kept for a resume
const MaxTextLength = 20000

// ErrUnsupportedType is returned for file that is neither pdf nor docx
var ErrUnsupportedType = errors.New("only .pdf and .docx resume are supported")

// Extension return normalized extension of filename if it is supported
func Extension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ExtPDF, ExtDOCX:
		return ext, nil
	}
	return "", ErrUnsupportedType
}

// ExtractText read text of document with given extension
func ExtractText(ext string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(ext) {
	case ExtPDF:
		text, err = pdfText(data)
	case ExtDOCX:
		text, err = docxText(data)
	default:
		return "", ErrUnsupportedType
	}
	if err != nil {
		return "", err
	}
	return Normalize(text), nil
}

func pdfText(data []byte) (text string, err error) {
	// the pdf reader panic on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	return buf.String(), nil
}

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read docx: %w", err)
	}
	defer func() { _ = doc.Close() }()

	content := doc.Editable().GetContent()
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}

var (
	blankRun = regexp.MustCompile(`[ \t\f\v\r]+`)
	manyNL   = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapse whitespace and cut text to MaxTextLength runes
func Normalize(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = blankRun.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = manyNL.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	text = strings.TrimSpace(text)

	if r := []rune(text); len(r) > MaxTextLength {
		text = string(r[:MaxTextLength])
	}
	return text
}
