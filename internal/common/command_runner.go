package common

import (
	"context"
	"fmt"

	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/types"
)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc func(docs []types.UploadedDocument, cfg CommandConfig)

// DocumentOperationFunc runs the command's work over the loaded documents.
type DocumentOperationFunc[Output any] func(context.Context, []types.UploadedDocument) (Output, error)

// DocumentCommand describes a file-based CLI command
type DocumentCommand[Output any] struct {
	Logger      *errors.Logger
	Config      CommandConfig
	MaxFileSize int64
	Files       []string
	Operation   DocumentOperationFunc[Output]
	LogDetails  LogDetailsFunc
}

// RunDocumentCommand loads the command's files, runs its operation and
// writes the formatted output.
func RunDocumentCommand[Output any](ctx context.Context, cmd DocumentCommand[Output]) error {
	logger := cmd.Logger
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if len(cmd.Files) == 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "at least one CV file is required", nil)
	}

	fileProcessor := NewFileProcessor(logger, cmd.MaxFileSize)
	outputHandler := NewOutputHandler(logger)

	docs, err := fileProcessor.LoadDocuments(cmd.Files...)
	if err != nil {
		return err
	}

	if cmd.LogDetails != nil {
		cmd.LogDetails(docs, cmd.Config)
	}

	result, err := cmd.Operation(ctx, docs)
	if err != nil {
		return fmt.Errorf("operation failed: %w", err)
	}

	return outputHandler.HandleOutput(result, cmd.Config)
}
