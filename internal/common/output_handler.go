package common

import (
	"fmt"

	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/formatters"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger, 0),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
	}
}

// HandleOutput formats data and writes it to the configured output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}
	return oh.Write([]byte(output), config.OutputFile)
}

// Write sends content to filename, or to stdout when filename is empty
func (oh *OutputHandler) Write(content []byte, filename string) error {
	if filename == "" {
		fmt.Print(string(content))
		return nil
	}

	if err := oh.fileProcessor.WriteFile(filename, content); err != nil {
		return err
	}
	oh.logger.Info("Output written successfully", "file", filename, "bytes", len(content))
	return nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
