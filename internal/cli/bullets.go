package cli

import (
	"encoding/json"
	"fmt"

	"cvanalyzer/internal/bullets"
	"cvanalyzer/internal/common"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/types"

	"github.com/spf13/cobra"
)

var bulletsCmd = &cobra.Command{
	Use:   "bullets",
	Short: "Regenerate experience bullets from a saved result",
	Long: `Rebuild the experience bullets of a result saved with 'analyze --download'.
Keywords from the job description are emphasized in each bullet. No model
call is made.`,
	Args: cobra.NoArgs,
	RunE: runBullets,
}

var bulletsOpts struct {
	result  string
	job     string
	jobFile string
}

func init() {
	bulletsCmd.Flags().StringVarP(&bulletsOpts.result, "result", "r", "", "Saved analysis result (JSON)")
	bulletsCmd.Flags().StringVarP(&bulletsOpts.job, "job", "j", "", "Job description text")
	bulletsCmd.Flags().StringVar(&bulletsOpts.jobFile, "job-file", "", "File containing the job description")
	_ = bulletsCmd.MarkFlagRequired("result")
}

func runBullets(cmd *cobra.Command, args []string) error {
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	fileProcessor := common.NewFileProcessor(logger, 0)
	raw, err := fileProcessor.ReadFile(bulletsOpts.result)
	if err != nil {
		return err
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("Cannot parse result file: %s", bulletsOpts.result), err)
	}

	jobDescription, err := common.ResolveJobDescription(fileProcessor, bulletsOpts.job, bulletsOpts.jobFile)
	if err != nil {
		return err
	}

	rendered := bullets.Synthesize(result, jobDescription)
	logger.Info("Bullets regenerated", "count", len(rendered))

	return common.NewOutputHandler(logger).HandleOutput(rendered, outputConfig)
}
