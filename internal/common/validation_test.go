package common

import (
	"os"
	"path/filepath"
	"testing"

	"cvanalyzer/internal/errors"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectedError    string
	}{
		{name: "json", format: "json", supportedFormats: supported},
		{name: "markdown", format: "markdown", supportedFormats: supported},
		{
			name:             "unknown format",
			format:           "xml",
			supportedFormats: supported,
			expectedError:    "unsupported output format 'xml'. Supported formats: [json text markdown]",
		},
		{
			name:             "case sensitive",
			format:           "JSON",
			supportedFormats: supported,
			expectedError:    "unsupported output format 'JSON'. Supported formats: [json text markdown]",
		},
		{name: "no restrictions", format: "xml", supportedFormats: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)
			if tt.expectedError == "" {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.expectedError {
				t.Errorf("Expected error '%s', got '%v'", tt.expectedError, err)
			}
		})
	}
}

func TestResolveJobDescription(t *testing.T) {
	dir := t.TempDir()
	jobFile := filepath.Join(dir, "job.txt")
	if err := os.WriteFile(jobFile, []byte("Platform engineer, Kubernetes"), 0600); err != nil {
		t.Fatal(err)
	}
	fp := NewFileProcessor(nil, 0)

	tests := []struct {
		name     string
		inline   string
		jobFile  string
		want     string
		wantCode string
	}{
		{name: "inline", inline: "Go developer", want: "Go developer"},
		{name: "from file", jobFile: jobFile, want: "Platform engineer, Kubernetes"},
		{name: "both", inline: "Go developer", jobFile: jobFile, wantCode: errors.ErrCodeInvalidInput},
		{name: "blank", inline: "  \n", wantCode: errors.ErrCodeInvalidInput},
		{name: "missing file", jobFile: filepath.Join(dir, "nope.txt"), wantCode: errors.ErrCodeFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveJobDescription(fp, tt.inline, tt.jobFile)
			if tt.wantCode != "" {
				if !errors.HasCode(err, tt.wantCode) {
					t.Fatalf("Expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "text", "markdown"}

	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", supportedFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", supportedFormats)
		}
	})
}
