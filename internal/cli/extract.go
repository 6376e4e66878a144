package cli

import (
	"context"

	"cvanalyzer/internal/common"
	"cvanalyzer/internal/types"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [cv-file]",
	Short: "Extract a candidate profile from a CV",
	Long: `Extract structured candidate details from a CV: name, contact details,
location, experience, skills, education and certifications.

With --text the plain text of the document is printed instead and no model
call is made.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var extractTextOnly bool

func init() {
	extractCmd.Flags().BoolVar(&extractTextOnly, "text", false, "Print the extracted plain text only")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	logDetails := func(docs []types.UploadedDocument, cfg common.CommandConfig) {
		logger.Info("Starting extraction",
			"filename", docs[0].Filename,
			"text_only", extractTextOnly,
			"output_format", cfg.OutputFormat)
	}

	if extractTextOnly {
		fileProcessor := common.NewFileProcessor(logger, cfg.App.MaxFileSizeBytes())
		doc, err := fileProcessor.LoadDocument(args[0])
		if err != nil {
			return err
		}
		logDetails([]types.UploadedDocument{doc}, outputConfig)

		text, err := buildExtractionPipeline(cfg, logger).Extract(cmd.Context(), doc)
		if err != nil {
			return err
		}
		return common.NewOutputHandler(logger).Write([]byte(text+"\n"), outputConfig.OutputFile)
	}

	pipeline, _, err := buildPipeline(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return err
	}
	return common.RunDocumentCommand(cmd.Context(), common.DocumentCommand[*types.ProfileExtraction]{
		Logger:      logger,
		Config:      outputConfig,
		MaxFileSize: cfg.App.MaxFileSizeBytes(),
		Files:       args,
		LogDetails:  logDetails,
		Operation: func(ctx context.Context, docs []types.UploadedDocument) (*types.ProfileExtraction, error) {
			return pipeline.ExtractProfile(ctx, docs[0])
		},
	})
}
