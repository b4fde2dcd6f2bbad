package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kapu/post-reactors/internal/app"
	"github.com/kapu/post-reactors/internal/config"
	"github.com/kapu/post-reactors/internal/util"
)

var rootCmd = &cobra.Command{
	Use:          "reactorctl",
	Short:        "reactorctl scrapes LinkedIn post reactors and manages projects from the terminal.",
	SilenceUsage: true,
}

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withContainer builds the service graph from the environment, runs fn and tears it down.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	buildCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer container.Close()

	return fn(cmd.Context(), container)
}
