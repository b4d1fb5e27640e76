package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pdfsearch/internal/bootstrap"
	"pdfsearch/internal/hooks"
	"pdfsearch/internal/pdfsearch"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Create the PDF Search element set",
	Long:  "Create the PDF Search::Text element. Fails if a set with that name exists or pdftotext is not on PATH.",
	Args:  cobra.NoArgs,
	RunE:  runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Delete the PDF Search element set and all extracted text",
	Args:  cobra.NoArgs,
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
		if err := app.Hooks.Fire(ctx, hooks.Install, nil); err != nil {
			return err
		}
		slot, err := app.Slots.Get(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "installed %s::%s (element %d)\n", pdfsearch.ElementSetName, pdfsearch.ElementName, slot.ElementID)
		return nil
	})
}

func runUninstall(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
		if err := app.Hooks.Fire(ctx, hooks.Uninstall, nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uninstalled %s\n", pdfsearch.ElementSetName)
		return nil
	})
}
