package common

import (
	"fmt"
	"slices"
	"strings"

	"cvanalyzer/internal/errors"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}

// ResolveJobDescription returns the inline job description, or the contents
// of jobFile when no inline text is given. Supplying both is an error.
func ResolveJobDescription(fp *FileProcessor, inline, jobFile string) (string, error) {
	switch {
	case inline != "" && jobFile != "":
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput,
			"use either --job or --job-file, not both", nil)
	case jobFile != "":
		text, err := fp.ReadText(jobFile)
		if err != nil {
			return "", err
		}
		inline = text
	}

	if strings.TrimSpace(inline) == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput,
			"a job description is required (--job or --job-file)", nil)
	}
	return inline, nil
}
