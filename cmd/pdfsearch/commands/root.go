package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"pdfsearch/internal/bootstrap"
	"pdfsearch/internal/shared/config"
)

var (
	timeout time.Duration

	// buildApp is swapped in tests.
	buildApp = func(ctx context.Context) (*bootstrap.App, error) {
		return bootstrap.BuildCLI(ctx, config.Load())
	}
)

var rootCmd = &cobra.Command{
	Use:   "pdfsearch",
	Short: "Keep item PDF text searchable",
	Long: `pdfsearch manages the "PDF Search" element set: it installs and removes the
set, regenerates the extracted text of one item, or re-extracts every item in
the archive.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "abort the command after this long (0 = no limit)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}
