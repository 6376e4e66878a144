package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"cvanalyzer/internal/bullets"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/types"
)

// stubAnalyzer returns result/err. When release is non-nil, Analyze signals
// started and blocks until release is closed.
type stubAnalyzer struct {
	mu      sync.Mutex
	result  *types.AnalysisResult
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (a *stubAnalyzer) Analyze(ctx context.Context, doc types.UploadedDocument, jd string) (*types.AnalysisResult, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.release != nil {
		a.started <- struct{}{}
		<-a.release
	}
	if a.err != nil {
		return nil, a.err
	}
	r := *a.result
	return &r, nil
}

func (a *stubAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

var (
	cvDoc = types.UploadedDocument{Data: []byte("Python, AWS, SQL"), Filename: "cv.txt"}
	jd    = "Backend engineer: Kubernetes, Terraform, AWS and SQL"
)

func sampleResult() *types.AnalysisResult {
	return &types.AnalysisResult{
		FitScore:               78,
		FitReason:              "Solid cloud background",
		ExpectedSalaryNote:     "28,000-35,000 ILS gross/month",
		ImprovementSuggestions: []string{"add cloud experience with Kubernetes and AWS", "Led **on-call** rotation."},
		ExperienceEnhancement:  []string{},
	}
}

func TestNewSessionIsIdle(t *testing.T) {
	s := New(&stubAnalyzer{result: sampleResult()})

	snap := s.Snapshot()
	if snap.Phase != string(PhaseIdle) || snap.Result != nil || snap.ID == "" {
		t.Errorf("Unexpected initial snapshot: %+v", snap)
	}
}

func TestSubmitSuccess(t *testing.T) {
	analyzer := &stubAnalyzer{result: sampleResult()}
	s := New(analyzer)

	if err := s.Submit(context.Background(), cvDoc, jd); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	snap := s.Snapshot()
	if snap.Phase != string(PhaseResults) {
		t.Fatalf("Expected Results, got %s", snap.Phase)
	}
	if snap.Result == nil || snap.Result.FitScore != 78 {
		t.Errorf("Expected stored result, got %+v", snap.Result)
	}
	if len(snap.RenderedBullets) != 2 {
		t.Fatalf("Expected 2 synthesized bullets, got %d", len(snap.RenderedBullets))
	}

	first := bullets.PlainText(snap.RenderedBullets[0])
	if !strings.HasPrefix(first, "Implemented add cloud") || !strings.HasSuffix(first, bullets.Suffix) {
		t.Errorf("Unexpected fallback bullet %q", first)
	}
	md := bullets.Markdown(snap.RenderedBullets[0])
	if !strings.Contains(md, "**Kubernetes**") {
		t.Errorf("Expected Kubernetes emphasized, got %q", md)
	}
}

func TestSubmitBlankInputs(t *testing.T) {
	tests := []struct {
		name string
		doc  types.UploadedDocument
		jd   string
	}{
		{"blank job description", cvDoc, "  \n "},
		{"empty document", types.UploadedDocument{Filename: "cv.pdf"}, jd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &stubAnalyzer{result: sampleResult()}
			s := New(analyzer)

			err := s.Submit(context.Background(), tt.doc, tt.jd)
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Fatalf("Expected INVALID_INPUT, got %v", err)
			}
			if s.Phase() != PhaseError {
				t.Errorf("Expected Error phase, got %s", s.Phase())
			}
			if analyzer.callCount() != 0 {
				t.Error("Expected analyzer not to be invoked")
			}
			if snap := s.Snapshot(); snap.ErrorCode != errors.ErrCodeInvalidInput || snap.ErrorMessage == "" {
				t.Errorf("Expected error details in snapshot, got %+v", snap)
			}
		})
	}
}

func TestSubmitFailureClearsStaleResult(t *testing.T) {
	analyzer := &stubAnalyzer{result: sampleResult()}
	s := New(analyzer)
	if err := s.Submit(context.Background(), cvDoc, jd); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	analyzer.err = errors.NewOracleError(errors.ErrCodeOracleUnavailable, "the scoring service is unavailable", nil)
	err := s.Submit(context.Background(), cvDoc, jd)
	if !errors.HasCode(err, errors.ErrCodeOracleUnavailable) {
		t.Fatalf("Expected ORACLE_UNAVAILABLE, got %v", err)
	}

	snap := s.Snapshot()
	if snap.Phase != string(PhaseError) || snap.Result != nil || len(snap.RenderedBullets) != 0 {
		t.Errorf("Expected no stale result after failure, got %+v", snap)
	}
	if snap.ErrorMessage != "the scoring service is unavailable" {
		t.Errorf("Unexpected error message %q", snap.ErrorMessage)
	}
	if _, err := s.CopyBullets(); !errors.HasCode(err, errors.ErrCodeNoResultYet) {
		t.Errorf("Expected NO_RESULT_YET after failure, got %v", err)
	}
}

func TestSubmitWhileLoading(t *testing.T) {
	analyzer := &stubAnalyzer{
		result:  sampleResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(analyzer)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), cvDoc, jd) }()
	<-analyzer.started

	if s.Phase() != PhaseLoading {
		t.Fatalf("Expected Loading, got %s", s.Phase())
	}
	err := s.Submit(context.Background(), cvDoc, jd)
	if !errors.HasCode(err, errors.ErrCodeRequestInFlight) {
		t.Errorf("Expected REQUEST_IN_FLIGHT, got %v", err)
	}
	if s.Phase() != PhaseLoading {
		t.Errorf("Expected rejected submit to leave Loading, got %s", s.Phase())
	}

	// Debug toggling stays responsive while the analyzer is blocked
	if !s.ToggleDebug() {
		t.Error("Expected debug on")
	}

	close(analyzer.release)
	if err := <-done; err != nil {
		t.Fatalf("Expected first submit to succeed, got %v", err)
	}
	if analyzer.callCount() != 1 {
		t.Errorf("Expected exactly one analyzer call, got %d", analyzer.callCount())
	}
	if snap := s.Snapshot(); snap.Phase != string(PhaseResults) || !snap.Debug {
		t.Errorf("Unexpected final snapshot %+v", snap)
	}
}

func TestClearDuringLoadingDropsOutcome(t *testing.T) {
	analyzer := &stubAnalyzer{
		result:  sampleResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(analyzer)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), cvDoc, jd) }()
	<-analyzer.started

	s.Clear()
	close(analyzer.release)
	<-done

	if snap := s.Snapshot(); snap.Phase != string(PhaseIdle) || snap.Result != nil {
		t.Errorf("Expected cleared session to stay Idle, got %+v", snap)
	}
}

func TestClearDuringLoadingKeepsSingleRequest(t *testing.T) {
	analyzer := &stubAnalyzer{
		result:  sampleResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(analyzer)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), cvDoc, jd) }()
	<-analyzer.started

	s.Clear()
	if s.Phase() != PhaseIdle {
		t.Fatalf("Expected Clear to return to Idle, got %s", s.Phase())
	}

	err := s.Submit(context.Background(), cvDoc, jd)
	if !errors.HasCode(err, errors.ErrCodeRequestInFlight) {
		t.Errorf("Expected REQUEST_IN_FLIGHT while the cleared call runs, got %v", err)
	}
	if analyzer.callCount() != 1 {
		t.Errorf("Expected exactly one analyzer call, got %d", analyzer.callCount())
	}
	if s.Phase() != PhaseIdle {
		t.Errorf("Expected rejected submit to leave Idle, got %s", s.Phase())
	}

	close(analyzer.release)
	<-done

	analyzer.release = nil
	if err := s.Submit(context.Background(), cvDoc, jd); err != nil {
		t.Fatalf("Expected submit after the call finished to succeed, got %v", err)
	}
	if analyzer.callCount() != 2 || s.Phase() != PhaseResults {
		t.Errorf("Expected a second call and Results, got %d calls in %s", analyzer.callCount(), s.Phase())
	}
}

func TestResultActions(t *testing.T) {
	s := New(&stubAnalyzer{result: sampleResult()})

	if _, err := s.RegenerateBullets(); !errors.HasCode(err, errors.ErrCodeNoResultYet) {
		t.Errorf("Expected NO_RESULT_YET, got %v", err)
	}
	if _, err := s.CopySuggestions(); !errors.HasCode(err, errors.ErrCodeNoResultYet) {
		t.Errorf("Expected NO_RESULT_YET, got %v", err)
	}
	if _, err := s.DownloadResult(); !errors.HasCode(err, errors.ErrCodeNoResultYet) {
		t.Errorf("Expected NO_RESULT_YET, got %v", err)
	}
	if s.Phase() != PhaseIdle {
		t.Errorf("Expected actions without result to keep Idle, got %s", s.Phase())
	}

	if err := s.Submit(context.Background(), cvDoc, jd); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	first, err := s.RegenerateBullets()
	if err != nil {
		t.Fatalf("Failed to regenerate: %v", err)
	}
	second, _ := s.RegenerateBullets()
	if bullets.List(first, bullets.Markdown) != bullets.List(second, bullets.Markdown) {
		t.Error("Expected regeneration to be deterministic")
	}
	if s.Phase() != PhaseResults {
		t.Errorf("Expected regeneration to keep Results, got %s", s.Phase())
	}

	copied, err := s.CopyBullets()
	if err != nil {
		t.Fatalf("Failed to copy bullets: %v", err)
	}
	for _, marker := range []string{"**", "<strong>", "</strong>"} {
		if strings.Contains(copied, marker) {
			t.Errorf("Expected copied bullets without %q, got %q", marker, copied)
		}
	}

	suggestions, _ := s.CopySuggestions()
	want := "• add cloud experience with Kubernetes and AWS\n• Led on-call rotation."
	if suggestions != want {
		t.Errorf("Expected %q, got %q", want, suggestions)
	}

	data, err := s.DownloadResult()
	if err != nil {
		t.Fatalf("Failed to download: %v", err)
	}
	var decoded types.AnalysisResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if decoded.FitScore != 78 || !strings.Contains(string(data), "\n  \"fit_score\"") {
		t.Errorf("Expected indented result JSON, got %s", data)
	}
}

func TestOracleBulletsPassThrough(t *testing.T) {
	result := sampleResult()
	result.ExperienceEnhancement = []string{"Led the <b>AWS</b> migration.", "Reduced SQL latency by 40%."}
	s := New(&stubAnalyzer{result: result})

	if err := s.Submit(context.Background(), cvDoc, jd); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.OracleBullets) != 2 {
		t.Errorf("Expected oracle bullets cached, got %v", snap.OracleBullets)
	}
	lines := bullets.Lines(snap.RenderedBullets, bullets.Markdown)
	if lines[0] != "• Led the <b>AWS</b> migration." {
		t.Errorf("Expected oracle bullet unchanged, got %q", lines[0])
	}

	copied, _ := s.CopyBullets()
	if strings.Contains(copied, "<b>") {
		t.Errorf("Expected markup stripped from copied bullets, got %q", copied)
	}
}

func TestClearAndToggleDebug(t *testing.T) {
	s := New(&stubAnalyzer{result: sampleResult()})
	if err := s.Submit(context.Background(), cvDoc, jd); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	s.ToggleDebug()
	s.Clear()

	snap := s.Snapshot()
	if snap.Phase != string(PhaseIdle) || snap.Result != nil || snap.RenderedBullets != nil || snap.ErrorCode != "" {
		t.Errorf("Expected empty Idle snapshot, got %+v", snap)
	}
	if !snap.Debug {
		t.Error("Expected debug flag to survive clear")
	}
	if s.ToggleDebug() {
		t.Error("Expected debug to toggle off")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(&stubAnalyzer{result: sampleResult()})
	if err := s.Submit(context.Background(), cvDoc, jd); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	snap := s.Snapshot()
	snap.Result.ImprovementSuggestions[0] = "mutated"
	snap.RenderedBullets[0].Spans[0].Text = "mutated"

	again := s.Snapshot()
	if again.Result.ImprovementSuggestions[0] == "mutated" || again.RenderedBullets[0].Spans[0].Text == "mutated" {
		t.Error("Expected snapshot mutation not to leak into the session")
	}
}
