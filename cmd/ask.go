package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/playpi/playpi/api/schemas"
)

func newAskCmd() *cobra.Command {
	var (
		promptFile string
		output     string
		timeout    time.Duration
	)

	askCmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Ask a question and print the answer with reasoning and sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := buildPrompt(promptFile, args)
			if err != nil {
				return err
			}
			return runRequest(cmd, schemas.Request{
				Prompt:     prompt,
				Mode:       schemas.ModeNone,
				Timeout:    timeout,
				OutputPath: output,
			})
		},
	}

	askCmd.Flags().StringVarP(&promptFile, "prompt-file", "f", "", "file whose contents are prepended to the prompt")
	askCmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this file instead of stdout")
	askCmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "completion budget (default from config)")
	return askCmd
}
