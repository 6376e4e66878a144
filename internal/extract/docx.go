package extract

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"cvanalyzer/internal/errors"
)

// extractDOCX returns paragraph text in document order joined by newlines.
func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewFormatError(errors.ErrCodeUnsupportedFormat, "failed to parse docx", err)
	}
	defer doc.Close()

	paragraphs, err := documentParagraphs(doc.Editable().GetContent())
	if err != nil {
		return "", errors.NewFormatError(errors.ErrCodeUnsupportedFormat, "failed to parse docx body", err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// documentParagraphs walks word/document.xml collecting the text runs of each
// w:p element. Paragraphs nested in text boxes are emitted after their parent.
func documentParagraphs(content string) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))

	var (
		paragraphs []string
		open       []*strings.Builder
		inText     int
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText++
			case "tab":
				if len(open) > 0 {
					open[len(open)-1].WriteByte('\t')
				}
			case "br", "cr":
				if len(open) > 0 {
					open[len(open)-1].WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "p":
				if len(open) > 0 {
					paragraphs = append(paragraphs, open[len(open)-1].String())
					open = open[:len(open)-1]
				}
			case "t":
				if inText > 0 {
					inText--
				}
			}
		case xml.CharData:
			if inText > 0 && len(open) > 0 {
				open[len(open)-1].Write(el)
			}
		}
	}
	return paragraphs, nil
}
