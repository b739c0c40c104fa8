package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/playpi/playpi/api/schemas"
)

func newImageCmd() *cobra.Command {
	var (
		promptFile string
		dir        string
		timeout    time.Duration
	)

	imageCmd := &cobra.Command{
		Use:   "image [prompt...]",
		Short: "Generate an image and print the downloaded file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := buildPrompt(promptFile, args)
			if err != nil {
				return err
			}
			return runRequest(cmd, schemas.Request{
				Prompt:      prompt,
				Mode:        schemas.ModeImageGeneration,
				Timeout:     timeout,
				DownloadDir: dir,
			})
		},
	}

	imageCmd.Flags().StringVarP(&promptFile, "prompt-file", "f", "", "file whose contents are prepended to the prompt")
	imageCmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory the image is moved into")
	imageCmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "completion budget (default from config)")
	return imageCmd
}
