package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/types"
)

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

// buildDOCX assembles a minimal word document whose body holds the given
// paragraph XML fragments.
func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	body := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		strings.Join(paragraphs, "") +
		`</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, content string }{
		{"[Content_Types].xml", docxContentTypes},
		{"word/document.xml", body},
		{"word/_rels/document.xml.rels", docxRels},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("Failed to create %s: %v", f.name, err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			t.Fatalf("Failed to write %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func paragraph(runs ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	for _, r := range runs {
		fmt.Fprintf(&b, "<w:r><w:t xml:space=\"preserve\">%s</w:t></w:r>", r)
	}
	b.WriteString("</w:p>")
	return b.String()
}

// buildPDF writes a small PDF with one page per entry; an empty entry yields a
// page with an empty content stream.
func buildPDF(pages ...string) []byte {
	var objs []string
	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		}
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		mediaType string
		want      Kind
		wantCode  string
	}{
		{"pdf extension", "cv.pdf", "", KindPDF, ""},
		{"upper case docx", "CV.DOCX", "", KindDOCX, ""},
		{"txt extension", "notes.txt", "application/octet-stream", KindText, ""},
		{"extension wins over media type", "cv.rtf", "text/plain", "", errors.ErrCodeUnsupportedFormat},
		{"legacy doc", "cv.doc", "", "", errors.ErrCodeUnsupportedFormat},
		{"media type fallback", "resume", "application/pdf", KindPDF, ""},
		{"media type with params", "resume", "text/plain; charset=utf-8", KindText, ""},
		{"nothing declared", "resume", "", "", errors.ErrCodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KindOf(tt.filename, tt.mediaType)
			if tt.wantCode != "" {
				if !errors.HasCode(err, tt.wantCode) {
					t.Fatalf("Expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestKindOfErrorListsSupportedExtensions(t *testing.T) {
	for _, filename := range []string{"cv.rtf", "resume"} {
		_, err := KindOf(filename, "")
		if err == nil || !strings.Contains(err.Error(), ".pdf, .docx, .txt") {
			t.Errorf("Expected supported extensions in error for %q, got %v", filename, err)
		}
	}
}

func TestExtractText(t *testing.T) {
	utf16LE := []byte{0xFF, 0xFE, 'G', 0, 'o', 0, ' ', 0, 'd', 0, 'e', 0, 'v', 0}
	utf16BE := []byte{0xFE, 0xFF, 0, 'G', 0, 'o'}

	tests := []struct {
		name     string
		data     []byte
		want     string
		wantCode string
	}{
		{"plain utf-8", []byte("  Senior Go developer\nKubernetes  \n"), "Senior Go developer\nKubernetes", ""},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Héllo")...), "Héllo", ""},
		{"utf-16 le", utf16LE, "Go dev", ""},
		{"utf-16 be", utf16BE, "Go", ""},
		{"invalid utf-8", []byte{0xC3, 0x28, 0xA0, 0xA1}, "", errors.ErrCodeUnsupportedEncoding},
		{"binary with nul", []byte("abc\x00def"), "", errors.ErrCodeUnsupportedEncoding},
		{"odd utf-16", []byte{0xFF, 0xFE, 'G'}, "", errors.ErrCodeUnsupportedEncoding},
		{"whitespace only", []byte(" \n\t "), "", errors.ErrCodeEmptyDocument},
		{"no bytes", nil, "", errors.ErrCodeEmptyDocument},
	}

	extractor := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractor.Extract(types.UploadedDocument{Data: tt.data, Filename: "cv.txt"})
			if tt.wantCode != "" {
				if !errors.HasCode(err, tt.wantCode) {
					t.Fatalf("Expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractDOCX(t *testing.T) {
	extractor := New()

	t.Run("paragraphs in order", func(t *testing.T) {
		data := buildDOCX(t,
			paragraph("Jane ", "Doe"),
			paragraph("Backend engineer"),
			`<w:tbl><w:tr><w:tc>`+paragraph("Go, SQL")+`</w:tc></w:tr></w:tbl>`,
		)
		got, err := extractor.Extract(types.UploadedDocument{Data: data, Filename: "cv.docx"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := "Jane Doe\nBackend engineer\nGo, SQL"
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("tabs and breaks", func(t *testing.T) {
		data := buildDOCX(t, `<w:p><w:r><w:t>2019</w:t><w:tab/><w:t>Acme</w:t><w:br/><w:t>Lead</w:t></w:r></w:p>`)
		got, err := extractor.Extract(types.UploadedDocument{Data: data, Filename: "cv.docx"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != "2019\tAcme\nLead" {
			t.Errorf("Expected tab and break to be preserved, got %q", got)
		}
	})

	t.Run("no paragraphs is empty document", func(t *testing.T) {
		data := buildDOCX(t)
		_, err := extractor.Extract(types.UploadedDocument{Data: data, Filename: "cv.docx"})
		if !errors.HasCode(err, errors.ErrCodeEmptyDocument) {
			t.Fatalf("Expected %s, got %v", errors.ErrCodeEmptyDocument, err)
		}
	})

	t.Run("blank paragraphs is empty document", func(t *testing.T) {
		data := buildDOCX(t, "<w:p/>", paragraph("   "))
		_, err := extractor.Extract(types.UploadedDocument{Data: data, Filename: "cv.docx"})
		if !errors.HasCode(err, errors.ErrCodeEmptyDocument) {
			t.Fatalf("Expected %s, got %v", errors.ErrCodeEmptyDocument, err)
		}
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := extractor.Extract(types.UploadedDocument{Data: []byte("plain text pretending"), Filename: "cv.docx"})
		if !errors.HasCode(err, errors.ErrCodeUnsupportedFormat) {
			t.Fatalf("Expected %s, got %v", errors.ErrCodeUnsupportedFormat, err)
		}
	})
}

func TestExtractPDF(t *testing.T) {
	extractor := New()

	t.Run("text pages", func(t *testing.T) {
		data := buildPDF("Senior Go Engineer", "", "Kubernetes")
		got, err := extractor.Extract(types.UploadedDocument{Data: data, Filename: "cv.pdf"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !strings.Contains(got, "Senior Go Engineer") || !strings.Contains(got, "Kubernetes") {
			t.Errorf("Expected text of both pages, got %q", got)
		}
		if strings.Index(got, "Senior") > strings.Index(got, "Kubernetes") {
			t.Errorf("Expected pages in order, got %q", got)
		}
	})

	t.Run("image only pages", func(t *testing.T) {
		data := buildPDF("", "")
		_, err := extractor.Extract(types.UploadedDocument{Data: data, Filename: "scan.pdf"})
		if !errors.HasCode(err, errors.ErrCodeEmptyDocument) {
			t.Fatalf("Expected %s, got %v", errors.ErrCodeEmptyDocument, err)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		_, err := extractor.Extract(types.UploadedDocument{Data: []byte("%PDF-1.4 garbage"), Filename: "cv.pdf"})
		if !errors.HasCode(err, errors.ErrCodeUnsupportedFormat) {
			t.Fatalf("Expected %s, got %v", errors.ErrCodeUnsupportedFormat, err)
		}
	})
}

func TestExtractRejections(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		_, err := New().Extract(types.UploadedDocument{Data: []byte("hello"), Filename: "cv.odt"})
		if !errors.HasCode(err, errors.ErrCodeUnsupportedFormat) {
			t.Fatalf("Expected %s, got %v", errors.ErrCodeUnsupportedFormat, err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		_, err := New(WithMaxSize(4)).Extract(types.UploadedDocument{Data: []byte("hello"), Filename: "cv.txt"})
		if !errors.HasCode(err, errors.ErrCodeFileTooLarge) {
			t.Fatalf("Expected %s, got %v", errors.ErrCodeFileTooLarge, err)
		}
	})

	t.Run("size check disabled", func(t *testing.T) {
		got, err := New(WithMaxSize(0)).Extract(types.UploadedDocument{Data: []byte("hello"), Filename: "cv.txt"})
		if err != nil || got != "hello" {
			t.Fatalf("Expected hello, got %q (%v)", got, err)
		}
	})
}
