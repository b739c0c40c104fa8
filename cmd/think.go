package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/playpi/playpi/api/schemas"
)

func newThinkCmd() *cobra.Command {
	var (
		promptFile string
		output     string
		timeout    time.Duration
	)

	thinkCmd := &cobra.Command{
		Use:   "think [prompt...]",
		Short: "Ask with the Deep Think tool enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := buildPrompt(promptFile, args)
			if err != nil {
				return err
			}
			return runRequest(cmd, schemas.Request{
				Prompt:     prompt,
				Mode:       schemas.ModeDeepThink,
				Timeout:    timeout,
				OutputPath: output,
			})
		},
	}

	thinkCmd.Flags().StringVarP(&promptFile, "prompt-file", "f", "", "file whose contents are prepended to the prompt")
	thinkCmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this file instead of stdout")
	thinkCmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "completion budget (default from config)")
	return thinkCmd
}
