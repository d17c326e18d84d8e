package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rescanCmd = &cobra.Command{
	Use:   "rescan <slug>",
	Short: "Link files in the downloads folder to a collection",
	Long: `Scan the downloads folder for archives that belong to a collection revision
and add them to the library.

Use this after downloading files by hand. Files are matched by content hash,
so renamed downloads are found too. Running it again changes nothing.

Examples:
  lmm collection rescan tcoll1`,
	Args: cobra.ExactArgs(1),
	RunE: runRescan,
}

func init() {
	addRevisionFlag(rescanCmd)

	collectionCmd.AddCommand(rescanCmd)
}

func runRescan(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx := cmd.Context()
	rev, err := lookupRevision(ctx, service, args[0])
	if err != nil {
		return err
	}

	report, err := service.Collections().RescanDownloads(ctx, *rev)
	if err != nil {
		return fmt.Errorf("rescanning %s: %w", service.Config().DownloadsPath, err)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), map[string]int{
			"scanned": report.Scanned,
			"matched": report.Matched,
			"skipped": report.Skipped,
			"failed":  report.Failed,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %d file(s) in %s\n", report.Scanned, service.Config().DownloadsPath)
	fmt.Fprintf(out, "  Matched: %d\n", report.Matched)
	if report.Skipped > 0 {
		fmt.Fprintf(out, "  Skipped: %d (too small)\n", report.Skipped)
	}
	if report.Failed > 0 {
		fmt.Fprintf(out, "  %s %d\n", colorRed("Failed:"), report.Failed)
	}
	return nil
}
