package analysis

import (
	"context"
	"strings"
	"sync"

	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/types"
)

// FailedResult is the record a batch reports for a file that could not be analyzed
func FailedResult(err error) types.AnalysisResult {
	message := err.Error()
	if appErr, ok := errors.As(err); ok {
		message = appErr.Message
	}
	return types.AnalysisResult{
		FitScore:               0,
		FitReason:              "Error: " + message,
		ExpectedSalaryNote:     "N/A",
		ImprovementSuggestions: []string{"Processing failed."},
		ExperienceEnhancement:  []string{},
	}
}

// RunBatch analyzes every document against jobDescription. A failing file
// yields a failed record instead of aborting the batch; results keep the
// input order.
func (p *Pipeline) RunBatch(ctx context.Context, docs []types.UploadedDocument, jobDescription string) (*types.BatchResult, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "job description is required", nil)
	}
	if len(docs) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "at least one CV file is required", nil)
	}

	ctx, span := p.obs.Tracer("cvanalyzer/analysis").Start(ctx, "analysis.batch")
	defer span.End()

	items := make([]types.BatchItem, len(docs))
	semaphore := make(chan struct{}, p.batchConcurrency)
	var wg sync.WaitGroup

	for i, doc := range docs {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, doc types.UploadedDocument) {
			defer func() {
				<-semaphore
				wg.Done()
			}()
			items[i] = p.batchItem(ctx, doc, jobDescription)
		}(i, doc)
	}
	wg.Wait()

	failed := 0
	for _, item := range items {
		if item.Error != "" {
			failed++
		}
	}
	p.logger.Info("Batch analysis finished",
		"files", len(docs),
		"failed", failed,
		"concurrency", p.batchConcurrency)

	return &types.BatchResult{JobDescription: jobDescription, Results: items}, nil
}

func (p *Pipeline) batchItem(ctx context.Context, doc types.UploadedDocument, jobDescription string) types.BatchItem {
	item := types.BatchItem{Filename: doc.Filename}

	result, err := p.analyze(ctx, doc, jobDescription)
	p.obs.RecordAnalysis(ctx, "batch", outcome(err))
	if err != nil {
		p.logger.Warn("Batch file failed",
			"filename", doc.Filename,
			"code", errors.CodeOf(err),
			"error", err.Error())
		item.Result = FailedResult(err)
		item.Error = errors.CodeOf(err)
		return item
	}

	item.Result = *result
	return item
}
