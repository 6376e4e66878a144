// Package session coordinates one analysis request lifecycle at a time and
// keeps the last result for bullet regeneration, copy and download actions.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"cvanalyzer/internal/bullets"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/observability"
	"cvanalyzer/internal/types"

	"github.com/google/uuid"
)

// Phase is the visible state of a session
type Phase string

const (
	PhaseIdle    Phase = "Idle"
	PhaseLoading Phase = "Loading"
	PhaseResults Phase = "Results"
	PhaseError   Phase = "Error"
)

// Analyzer runs extraction and assessment for one submitted document
type Analyzer interface {
	Analyze(ctx context.Context, doc types.UploadedDocument, jobDescription string) (*types.AnalysisResult, error)
}

// Session is the analysis state machine. All methods are safe for concurrent
// use; the lock is not held while the analyzer runs.
type Session struct {
	id       string
	analyzer Analyzer
	logger   *errors.Logger
	obs      *observability.Manager

	mu              sync.Mutex
	generation      uint64
	inFlight        bool
	phase           Phase
	err             error
	jobDescription  string
	result          *types.AnalysisResult
	renderedBullets []types.Bullet
	oracleBullets   []string
	debug           bool
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger; the session ID is attached to every entry
func WithLogger(l *errors.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithObservability records phase transitions on m
func WithObservability(m *observability.Manager) Option {
	return func(s *Session) { s.obs = m }
}

// New creates an idle session
func New(analyzer Analyzer, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		analyzer: analyzer,
		phase:    PhaseIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = errors.NewNopLogger()
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Submit validates the inputs and runs the analyzer. Blank inputs move the
// session straight to Error. A submit while another analyzer call is running,
// including one whose outcome Clear discarded, is rejected with
// REQUEST_IN_FLIGHT and leaves the session untouched.
func (s *Session) Submit(ctx context.Context, doc types.UploadedDocument, jobDescription string) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return errors.NewSessionError(errors.ErrCodeRequestInFlight,
			"an analysis is already running; wait for it to finish", nil)
	}

	if err := validateSubmission(doc, jobDescription); err != nil {
		s.fail(ctx, err)
		s.mu.Unlock()
		return err
	}

	s.generation++
	gen := s.generation
	s.resetResult()
	s.err = nil
	s.jobDescription = jobDescription
	s.inFlight = true
	s.transition(ctx, PhaseLoading)
	s.mu.Unlock()

	s.logger.Info("Analysis started", "filename", doc.Filename, "size", len(doc.Data))
	start := time.Now()
	result, err := s.analyzer.Analyze(ctx, doc, jobDescription)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if gen != s.generation {
		s.logger.Debug("Discarding outcome of a cleared analysis", "filename", doc.Filename)
		return err
	}
	if err == nil && result == nil {
		err = errors.NewInternalError(errors.ErrCodeInternal, "analysis returned no result", nil)
	}
	if err != nil {
		s.logger.LogError(err, "Analysis failed",
			"filename", doc.Filename,
			"duration", time.Since(start).String())
		s.fail(ctx, err)
		return err
	}

	s.result = result
	s.oracleBullets = append([]string(nil), result.ExperienceEnhancement...)
	s.renderedBullets = bullets.Synthesize(*result, jobDescription)
	s.transition(ctx, PhaseResults)

	s.logger.Info("Analysis completed",
		"filename", doc.Filename,
		"fit_score", result.FitScore,
		"bullets", len(s.renderedBullets),
		"duration", time.Since(start).String())
	return nil
}

func validateSubmission(doc types.UploadedDocument, jobDescription string) error {
	if len(doc.Data) == 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "please choose a CV file", nil)
	}
	if strings.TrimSpace(jobDescription) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "please paste a job description", nil)
	}
	return nil
}

// RegenerateBullets re-runs bullet synthesis over the stored result. The
// phase does not change.
func (s *Session) RegenerateBullets() ([]types.Bullet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return nil, noResultYet()
	}
	s.renderedBullets = bullets.Synthesize(*s.result, s.jobDescription)
	s.logger.Debug("Bullets regenerated", "count", len(s.renderedBullets))
	return cloneBullets(s.renderedBullets), nil
}

// CopySuggestions returns the improvement suggestions as a plain bullet list
func (s *Session) CopySuggestions() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return "", noResultYet()
	}
	items := make([]string, 0, len(s.result.ImprovementSuggestions))
	for _, item := range s.result.ImprovementSuggestions {
		items = append(items, bullets.StripMarkup(item))
	}
	return bullets.TextList(items), nil
}

// CopyBullets returns the rendered bullets with all markup stripped
func (s *Session) CopyBullets() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return "", noResultYet()
	}
	return bullets.List(s.renderedBullets, bullets.PlainText), nil
}

// DownloadResult serializes the stored result as indented JSON
func (s *Session) DownloadResult() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return nil, noResultYet()
	}
	data, err := json.MarshalIndent(s.result, "", "  ")
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "failed to serialize result", err)
	}
	return data, nil
}

// ToggleDebug flips the debug view flag and returns its new value. It is
// allowed in every phase, including while a request is in flight.
func (s *Session) ToggleDebug() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = !s.debug
	return s.debug
}

// Clear discards all state and returns to Idle. An in-flight analysis keeps
// running but its outcome is dropped; new submits are rejected until it ends.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.resetResult()
	s.err = nil
	s.jobDescription = ""
	s.transition(context.Background(), PhaseIdle)
}

// Phase returns the current phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Err returns the error that moved the session to Error, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Snapshot returns a consistent copy of the session state
func (s *Session) Snapshot() types.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := types.SessionSnapshot{
		ID:              s.id,
		Phase:           string(s.phase),
		RenderedBullets: cloneBullets(s.renderedBullets),
		OracleBullets:   append([]string(nil), s.oracleBullets...),
		Debug:           s.debug,
	}
	if s.result != nil {
		r := *s.result
		r.ImprovementSuggestions = append([]string{}, s.result.ImprovementSuggestions...)
		r.ExperienceEnhancement = append([]string{}, s.result.ExperienceEnhancement...)
		snap.Result = &r
	}
	if s.err != nil {
		snap.ErrorCode = errors.CodeOf(s.err)
		snap.ErrorMessage = userMessage(s.err)
	}
	return snap
}

// fail stores err and moves to Error. Callers hold the lock.
func (s *Session) fail(ctx context.Context, err error) {
	s.resetResult()
	s.err = err
	s.transition(ctx, PhaseError)
}

func (s *Session) resetResult() {
	s.result = nil
	s.renderedBullets = nil
	s.oracleBullets = nil
}

// transition moves to next. Callers hold the lock.
func (s *Session) transition(ctx context.Context, next Phase) {
	prev := s.phase
	s.phase = next
	if prev != next {
		s.logger.Debug("Session phase changed", "from", prev, "to", next)
	}
	s.obs.RecordSessionTransition(ctx, string(prev), string(next))
}

func noResultYet() error {
	return errors.NewSessionError(errors.ErrCodeNoResultYet, "run an analysis first", nil)
}

// userMessage prefers the AppError message over the full cause chain
func userMessage(err error) string {
	if appErr, ok := errors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func cloneBullets(in []types.Bullet) []types.Bullet {
	if in == nil {
		return nil
	}
	out := make([]types.Bullet, len(in))
	for i, b := range in {
		out[i] = types.Bullet{Spans: append([]types.Span(nil), b.Spans...)}
	}
	return out
}
