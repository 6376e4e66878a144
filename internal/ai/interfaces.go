package ai

import (
	"context"

	"cvanalyzer/internal/types"
)

// Operation names one kind of oracle request
type Operation string

const (
	OperationAnalyzeFit     Operation = "analyze_fit"
	OperationExtractProfile Operation = "extract_profile"
)

// OracleRequest carries the texts one oracle call is built from. JobDescription
// is ignored by OperationExtractProfile.
type OracleRequest struct {
	Operation      Operation
	ResumeText     string
	JobDescription string
}

// OracleReply is the oracle's raw JSON answer. Parsing and normalization are
// the caller's job.
type OracleReply struct {
	Text  string
	Model string
	Usage *types.TokenUsage
}

// Oracle scores CVs against job descriptions. Implementations must be safe
// for concurrent use.
type Oracle interface {
	Complete(ctx context.Context, req OracleRequest) (*OracleReply, error)
	Model() string
}

// ModelLister is implemented by oracles that can enumerate their backend's models
type ModelLister interface {
	ListModels(ctx context.Context, limit int) ([]string, error)
}

// HealthReporter is implemented by oracles that expose model availability and
// circuit breaker state
type HealthReporter interface {
	GetModelInfo(ctx context.Context) *ModelInfo
	CircuitBreakerStats() map[string]any
}

// ModelInfo represents information about the oracle model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
