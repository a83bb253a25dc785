package resume

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDocx create minimal word document holding one paragraph per line
func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/document.xml":   document,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"cv.pdf", ExtPDF, false},
		{"CV.PDF", ExtPDF, false},
		{"resume.final.docx", ExtDOCX, false},
		{"resume.doc", "", true},
		{"resume", "", true},
		{"photo.jpeg", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extension(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractText_Docx(t *testing.T) {
	data := buildDocx(t, "Jane Doe", "Senior Go Developer", "Skills: Go, PostgreSQL &amp; Redis")

	text, err := ExtractText(ExtDOCX, data)
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Senior Go Developer")
	assert.Contains(t, text, "PostgreSQL & Redis")
	assert.NotContains(t, text, "<w:")
}

func TestExtractText_InvalidDocuments(t *testing.T) {
	_, err := ExtractText(ExtDOCX, []byte("not a zip"))
	assert.Error(t, err)

	_, err = ExtractText(ExtPDF, []byte("%PDF-1.4 broken"))
	assert.Error(t, err)

	_, err = ExtractText(".txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestNormalize(t *testing.T) {
	in := "  Jane\t\tDoe  \r\n\n\n\n  Go   developer \n"
	assert.Equal(t, "Jane Doe\n\nGo developer", Normalize(in))

	long := strings.Repeat("a", MaxTextLength+100)
	assert.Len(t, Normalize(long), MaxTextLength)
}
