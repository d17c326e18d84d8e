package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/jobs"

	"github.com/spf13/cobra"
)

var downloadParallel int

var downloadCmd = &cobra.Command{
	Use:   "download <slug>",
	Short: "Download the missing items of a collection",
	Long: `Download every item of a collection revision that is not in the library yet.

Direct links and, for premium accounts, NexusMods files are fetched
automatically. Files that can only be downloaded by hand are opened in the
browser; run 'lmm collection rescan' once they are saved.

Press Ctrl+C to cancel. Items already fetched stay in the library.

Examples:
  lmm collection download tcoll1
  lmm collection download tcoll1 --type all --parallel 2`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	addRevisionFlag(downloadCmd)
	addItemTypeFlag(downloadCmd)
	downloadCmd.Flags().IntVarP(&downloadParallel, "parallel", "p", 0, "concurrent downloads (default: config max_parallel_downloads)")

	collectionCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	itemType, err := domain.ParseItemType(collItemType)
	if err != nil {
		return err
	}

	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rev, err := lookupRevision(ctx, service, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Downloading %s items of %s (revision %d)\n", itemType, rev.Collection.Name, rev.RevisionNumber)

	job := service.Collections().DownloadItems(ctx, *rev, itemType, downloadParallel)
	waitWithProgress(ctx, cmd, job)

	switch job.State() {
	case jobs.StateCancelled:
		fmt.Fprintln(out, colorYellow("Download cancelled."))
		return ErrCancelled
	case jobs.StateFailed:
		return fmt.Errorf("downloading %s: %w", rev, job.Err())
	}

	// Failures of single items are logged, so recount what is still missing
	entries, err := service.Collections().GetItems(context.WithoutCancel(ctx), rev.ID, itemType)
	if err != nil {
		return err
	}
	done, err := service.Collections().IsFullyDownloaded(context.WithoutCancel(ctx), entries)
	if err != nil {
		return err
	}
	if done {
		fmt.Fprintf(out, "%s All %s items downloaded\n", colorGreen("✓"), itemType)
		return nil
	}
	fmt.Fprintf(out, "%s Some items are still missing. See 'lmm collection missing %s'.\n", colorYellow("!"), rev.Collection.Slug)
	return nil
}

// waitWithProgress prints job progress until it finishes
func waitWithProgress(ctx context.Context, cmd *cobra.Command, job *jobs.Job) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	last := jobs.Progress{Done: -1}
	report := func() {
		p := job.Progress()
		if p == last || p.Total == 0 {
			return
		}
		last = p
		fmt.Fprintf(cmd.ErrOrStderr(), "  %d/%d items (%.0f%%)\n", p.Done, p.Total, p.Fraction()*100)
	}

	for {
		select {
		case <-job.Done():
			report()
			return
		case <-ticker.C:
			report()
		case <-ctx.Done():
			// The job sees the same context; wait for it to wind down
			if err := job.Wait(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}
			return
		}
	}
}
