package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/playpi/playpi/api/schemas"
)

func newResearchCmd() *cobra.Command {
	var (
		promptFile string
		output     string
		timeout    time.Duration
	)

	researchCmd := &cobra.Command{
		Use:   "research [prompt...]",
		Short: "Run a Deep Research task and print the report",
		Long:  "Run a Deep Research task. Research can take several minutes; progress is logged while the report is generated.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := buildPrompt(promptFile, args)
			if err != nil {
				return err
			}
			return runRequest(cmd, schemas.Request{
				Prompt:     prompt,
				Mode:       schemas.ModeDeepResearch,
				Timeout:    timeout,
				OutputPath: output,
			})
		},
	}

	researchCmd.Flags().StringVarP(&promptFile, "prompt-file", "f", "", "file whose contents are prepended to the prompt")
	researchCmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file instead of stdout")
	researchCmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "completion budget (default from config)")
	return researchCmd
}
