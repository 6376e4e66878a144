package cli

import (
	"fmt"

	"cvanalyzer/internal/analysis"
	"cvanalyzer/internal/common"
	"cvanalyzer/internal/session"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [cv-file]",
	Short: "Score a CV against a job description",
	Long: `Analyze a CV (PDF, DOCX or TXT) against a job description and report:
- A fit score from 0 to 100 with the reasoning behind it
- A note on the expected salary
- Improvement suggestions for the CV
- Rewritten experience bullets with the job's keywords emphasized

The analysis runs against the configured model, or against a running
cvanalyzer server when --server is given.

Use --copy to print only the suggestions or bullets as plain text, and
--download to save the raw result as JSON.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		switch analyzeOpts.copy {
		case "", "suggestions", "bullets":
			return nil
		default:
			return fmt.Errorf("--copy must be 'suggestions' or 'bullets', got '%s'", analyzeOpts.copy)
		}
	},
	RunE: runAnalyze,
}

var analyzeOpts struct {
	job      string
	jobFile  string
	copy     string
	download string
	server   string
	apiKey   string
	debug    bool
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOpts.job, "job", "j", "", "Job description text")
	analyzeCmd.Flags().StringVar(&analyzeOpts.jobFile, "job-file", "", "File containing the job description")
	analyzeCmd.Flags().StringVar(&analyzeOpts.copy, "copy", "", "Print only 'suggestions' or 'bullets' as plain text")
	analyzeCmd.Flags().StringVar(&analyzeOpts.download, "download", "", "Save the raw result as JSON to this file")
	analyzeCmd.Flags().StringVar(&analyzeOpts.server, "server", "", "Base URL of a cvanalyzer server to analyze with")
	analyzeCmd.Flags().StringVar(&analyzeOpts.apiKey, "api-key", "", "API key for --server")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.debug, "debug", false, "Include session debug details in the report")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	fileProcessor := common.NewFileProcessor(logger, cfg.App.MaxFileSizeBytes())
	outputHandler := common.NewOutputHandler(logger)

	doc, err := fileProcessor.LoadDocument(args[0])
	if err != nil {
		return err
	}
	jobDescription, err := common.ResolveJobDescription(fileProcessor, analyzeOpts.job, analyzeOpts.jobFile)
	if err != nil {
		return err
	}

	var analyzer session.Analyzer
	if analyzeOpts.server != "" {
		apiKey := analyzeOpts.apiKey
		if apiKey == "" && len(cfg.Server.APIKeys) > 0 {
			apiKey = cfg.Server.APIKeys[0]
		}
		analyzer = analysis.NewRemoteAnalyzer(analyzeOpts.server, analysis.WithAPIKey(apiKey))
		logger.Debug("Using remote analyzer", "server", analyzeOpts.server)
	} else {
		pipeline, _, err := buildPipeline(cmd.Context(), cfg, nil, logger)
		if err != nil {
			return err
		}
		analyzer = pipeline
	}

	sess := session.New(analyzer, session.WithLogger(logger))
	if analyzeOpts.debug {
		sess.ToggleDebug()
	}

	logger.Info("Starting CV analysis",
		"filename", doc.Filename,
		"job_chars", len(jobDescription),
		"output_format", outputConfig.OutputFormat)

	if err := sess.Submit(cmd.Context(), doc, jobDescription); err != nil {
		if outputConfig.OutputFormat != "json" {
			_ = outputHandler.HandleOutput(sess.Snapshot(), outputConfig)
		}
		return fmt.Errorf("failed to analyze CV: %w", err)
	}

	if analyzeOpts.download != "" {
		data, err := sess.DownloadResult()
		if err != nil {
			return err
		}
		if err := fileProcessor.WriteFile(analyzeOpts.download, data); err != nil {
			return err
		}
		logger.Info("Result saved", "file", analyzeOpts.download)
	}

	switch analyzeOpts.copy {
	case "suggestions":
		text, err := sess.CopySuggestions()
		if err != nil {
			return err
		}
		return outputHandler.Write([]byte(text), outputConfig.OutputFile)
	case "bullets":
		text, err := sess.CopyBullets()
		if err != nil {
			return err
		}
		return outputHandler.Write([]byte(text), outputConfig.OutputFile)
	}

	snapshot := sess.Snapshot()
	if outputConfig.OutputFormat == "json" && !snapshot.Debug {
		return outputHandler.HandleOutput(snapshot.Result, outputConfig)
	}
	return outputHandler.HandleOutput(snapshot, outputConfig)
}
