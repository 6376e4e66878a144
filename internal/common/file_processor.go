package common

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/types"
	"cvanalyzer/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a new file processor instance. Documents larger
// than maxSize bytes are rejected; zero disables the check.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// ReadText reads a UTF-8 text file such as a job description
func (fp *FileProcessor) ReadText(filename string) (string, error) {
	content, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// LoadDocument validates and reads a résumé file. The media type is guessed
// from the extension; the extractor makes the final call.
func (fp *FileProcessor) LoadDocument(filename string) (types.UploadedDocument, error) {
	if err := utils.ValidateInputFile(filename, fp.maxSize); err != nil {
		code := errors.ErrCodeInvalidInput
		switch {
		case strings.Contains(err.Error(), "does not exist"):
			code = errors.ErrCodeFileNotFound
		case strings.Contains(err.Error(), "larger than"):
			code = errors.ErrCodeFileTooLarge
		}
		return types.UploadedDocument{}, errors.NewValidationError(code,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	if !utils.IsDocumentFile(filename) {
		fp.logger.Warn("File does not look like a PDF, DOCX or TXT document",
			"filename", filename)
	}

	data, err := fp.ReadFile(filename)
	if err != nil {
		return types.UploadedDocument{}, err
	}

	fp.logger.Debug("Document loaded",
		"filename", filename,
		"size", utils.FormatFileSize(int64(len(data))))

	return types.UploadedDocument{
		Data:      data,
		Filename:  filepath.Base(filename),
		MediaType: mime.TypeByExtension(utils.GetFileExtension(filename)),
	}, nil
}

// LoadDocuments loads every file, stopping at the first one that cannot be read
func (fp *FileProcessor) LoadDocuments(filenames ...string) ([]types.UploadedDocument, error) {
	docs := make([]types.UploadedDocument, 0, len(filenames))
	for _, filename := range filenames {
		doc, err := fp.LoadDocument(filename)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory for: %s", filename), err)
	}

	if err := os.WriteFile(filename, content, 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}
