package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pdfsearch/internal/bootstrap"
	"pdfsearch/internal/queue"
)

var (
	backfillEnqueue bool
	refreshEnqueue  bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Re-extract PDF text for every item",
	Long:  "Walk every item in the archive and regenerate its PDF Search::Text records. Safe to run repeatedly.",
	Args:  cobra.NoArgs,
	RunE:  runBackfill,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <itemID>",
	Short: "Re-extract PDF text for one item",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefresh,
}

func init() {
	backfillCmd.Flags().BoolVar(&backfillEnqueue, "enqueue", false, "send the job to the worker queue instead of running it here")
	refreshCmd.Flags().BoolVar(&refreshEnqueue, "enqueue", false, "send the job to the worker queue instead of running it here")
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(refreshCmd)
}

var errNoQueue = errors.New("--enqueue needs PDFSEARCH_SQS_QUEUE_URL")

func runBackfill(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
		out := cmd.OutOrStdout()
		if backfillEnqueue {
			if app.Queue == nil {
				return errNoQueue
			}
			requestID := uuid.NewString()
			if err := app.Queue.Send(ctx, queue.NewBackfillMessage(requestID, time.Now())); err != nil {
				return err
			}
			fmt.Fprintf(out, "backfill queued (request %s)\n", requestID)
			return nil
		}

		res, err := app.Backfill.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "backfill %s: %d items, %d refreshed, %d failed, %d text records in %s\n",
			res.RunID, res.Items, res.Refreshed, res.Failed, res.Records, res.Duration.Round(time.Millisecond))
		return nil
	})
}

func runRefresh(cmd *cobra.Command, args []string) error {
	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || itemID <= 0 {
		return fmt.Errorf("item id must be a positive integer, got %q", args[0])
	}
	return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
		out := cmd.OutOrStdout()
		if refreshEnqueue {
			if app.Queue == nil {
				return errNoQueue
			}
			requestID := uuid.NewString()
			if err := app.Queue.Send(ctx, queue.NewRefreshItemMessage(itemID, requestID, time.Now())); err != nil {
				return err
			}
			fmt.Fprintf(out, "refresh of item %d queued (request %s)\n", itemID, requestID)
			return nil
		}

		res, err := app.Engine.RefreshItemResolved(ctx, app.Slots, itemID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "item %d: %d files, %d PDFs, %d text records, %d extraction failures\n",
			res.ItemID, res.Files, res.PDFs, res.Records, res.ExtractionFailures)
		return nil
	})
}
