package cli

import (
	"context"

	"cvanalyzer/internal/common"
	"cvanalyzer/internal/types"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [cv-file...]",
	Short: "Score several CVs against one job description",
	Long: `Analyze every given CV against the same job description. Files are
processed concurrently (app.batchConcurrency). A file that fails is reported
with a zero score and its error code; the rest of the batch still runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

var batchOpts struct {
	job     string
	jobFile string
}

func init() {
	batchCmd.Flags().StringVarP(&batchOpts.job, "job", "j", "", "Job description text")
	batchCmd.Flags().StringVar(&batchOpts.jobFile, "job-file", "", "File containing the job description")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	jobDescription, err := common.ResolveJobDescription(
		common.NewFileProcessor(logger, 0), batchOpts.job, batchOpts.jobFile)
	if err != nil {
		return err
	}

	pipeline, _, err := buildPipeline(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return err
	}

	return common.RunDocumentCommand(cmd.Context(), common.DocumentCommand[*types.BatchResult]{
		Logger:      logger,
		Config:      outputConfig,
		MaxFileSize: cfg.App.MaxFileSizeBytes(),
		Files:       args,
		LogDetails: func(docs []types.UploadedDocument, cfg common.CommandConfig) {
			logger.Info("Starting batch analysis",
				"files", len(docs),
				"job_chars", len(jobDescription),
				"output_format", cfg.OutputFormat)
		},
		Operation: func(ctx context.Context, docs []types.UploadedDocument) (*types.BatchResult, error) {
			return pipeline.RunBatch(ctx, docs, jobDescription)
		},
	})
}
