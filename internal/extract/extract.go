// Package extract turns uploaded résumé files into plain text.
package extract

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/types"
)

// Kind identifies a supported document format
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindText Kind = "txt"
)

// DefaultMaxSize is the upload limit used when none is configured (8 MiB).
const DefaultMaxSize int64 = 8 << 20

var kindsByExtension = map[string]Kind{
	".pdf":  KindPDF,
	".docx": KindDOCX,
	".txt":  KindText,
}

var kindsByMediaType = map[string]Kind{
	"application/pdf": KindPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": KindDOCX,
	"text/plain": KindText,
}

// SupportedExtensions lists the accepted upload extensions.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".txt"}
}

func supportedList() string {
	return strings.Join(SupportedExtensions(), ", ")
}

// KindOf resolves the document kind from the declared filename, falling back to
// the declared media type only when the filename has no extension.
func KindOf(filename, mediaType string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" {
		if kind, ok := kindsByExtension[ext]; ok {
			return kind, nil
		}
		return "", errors.NewFormatError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported file type %q; use one of %s", ext, supportedList()), nil).
			WithContext("filename", filename)
	}

	if mediaType != "" {
		if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
			if kind, ok := kindsByMediaType[parsed]; ok {
				return kind, nil
			}
		}
	}

	return "", errors.NewFormatError(errors.ErrCodeUnsupportedFormat,
		"cannot determine file type; use one of "+supportedList(), nil).
		WithContext("filename", filename).
		WithContext("media_type", mediaType)
}

// Extractor converts uploaded documents to text
type Extractor struct {
	maxSize int64
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMaxSize sets the largest accepted document in bytes. Zero or negative
// disables the check.
func WithMaxSize(n int64) Option {
	return func(e *Extractor) {
		e.maxSize = n
	}
}

// New creates an Extractor
func New(opts ...Option) *Extractor {
	e := &Extractor{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the trimmed text of doc. The result is never empty on success.
func (e *Extractor) Extract(doc types.UploadedDocument) (string, error) {
	kind, err := KindOf(doc.Filename, doc.MediaType)
	if err != nil {
		return "", err
	}
	return e.ExtractKind(kind, doc)
}

// ExtractKind extracts doc as the given kind, skipping type resolution.
func (e *Extractor) ExtractKind(kind Kind, doc types.UploadedDocument) (string, error) {
	if e.maxSize > 0 && int64(len(doc.Data)) > e.maxSize {
		return "", errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("file too large: %.2f MB (max %.2f MB)", megabytes(int64(len(doc.Data))), megabytes(e.maxSize)), nil).
			WithContext("filename", doc.Filename)
	}
	if len(doc.Data) == 0 {
		return "", errors.NewValidationError(errors.ErrCodeEmptyDocument, "uploaded file is empty", nil).
			WithContext("filename", doc.Filename)
	}

	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = extractPDF(doc.Data)
	case KindDOCX:
		text, err = extractDOCX(doc.Data)
	case KindText:
		text, err = decodeText(doc.Data)
	default:
		err = errors.NewFormatError(errors.ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported document kind %q", kind), nil)
	}
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			return "", appErr.WithContext("filename", doc.Filename)
		}
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeEmptyDocument,
			"no readable text found in the document", nil).
			WithContext("filename", doc.Filename).
			WithContext("kind", string(kind))
	}
	return text, nil
}

func megabytes(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
