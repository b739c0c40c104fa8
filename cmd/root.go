// Package cmd wires the playpi command line surface: one subcommand per chat
// mode plus a batch runner, all sharing browser and provider configuration.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/playpi/playpi/internal/config"
	"github.com/playpi/playpi/internal/observability"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "playpi",
	Short:   "playpi drives the Gemini web UI from the command line",
	Long:    "playpi automates the Gemini chat UI through a real browser: it types prompts, toggles deep-research, deep-think or image-generation tools, waits for generation to finish and prints the response as markdown.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(cmd); err != nil {
			return err
		}
		loaded, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", ServiceName: "playpi"})
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", ServiceName: "playpi"})
			return err
		}
		cfg = loaded
		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("Starting playpi", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command under a signal-aware context so Ctrl+C
// unwinds in-flight requests and releases the browser.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		observability.Sync()
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
	observability.Sync()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.playpi/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging on the console")
	rootCmd.PersistentFlags().Bool("headless", false, "run the browser without a window (manual login is impossible while headless)")
	rootCmd.PersistentFlags().String("profile", "default", "named browser profile holding the login session")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newThinkCmd())
	rootCmd.AddCommand(newResearchCmd())
	rootCmd.AddCommand(newImageCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initializeConfig layers defaults, the config file, environment variables
// and flags, in ascending precedence.
func initializeConfig(cmd *cobra.Command) error {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.playpi")
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PLAYPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.BindPFlag("browser.headless", cmd.Root().PersistentFlags().Lookup("headless")); err != nil {
		return err
	}
	if err := v.BindPFlag("browser.profile", cmd.Root().PersistentFlags().Lookup("profile")); err != nil {
		return err
	}
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		v.Set("logger.level", "debug")
	}
	return nil
}
