package main

import (
	"fmt"

	"github.com/DonovanMods/lmm-collections/internal/domain"

	"github.com/spf13/cobra"
)

var missingCmd = &cobra.Command{
	Use:   "missing <slug>",
	Short: "List download links for items that are not downloaded",
	Long: `List where each item of a collection revision that is not downloaded yet
can be fetched from. NexusMods files link to their download page, other
files to their original address.

Examples:
  lmm collection missing tcoll1
  lmm collection missing tcoll1 --type optional --json`,
	Args: cobra.ExactArgs(1),
	RunE: runMissing,
}

func init() {
	addRevisionFlag(missingCmd)
	addItemTypeFlag(missingCmd)

	collectionCmd.AddCommand(missingCmd)
}

type missingJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	URI        string `json:"uri"`
	ManualOnly bool   `json:"manual_only,omitempty"`
}

func runMissing(cmd *cobra.Command, args []string) error {
	itemType, err := domain.ParseItemType(collItemType)
	if err != nil {
		return err
	}

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

	links, err := service.Collections().GetMissingDownloadLinks(ctx, rev.ID, itemType)
	if err != nil {
		return err
	}

	if jsonOutput {
		out := make([]missingJSON, 0, len(links))
		for _, l := range links {
			out = append(out, missingJSON{ID: l.Entry.ID, Name: l.Entry.Name, Kind: l.Entry.Kind.String(), URI: l.URI, ManualOnly: l.Entry.ManualOnly})
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}

	out := cmd.OutOrStdout()
	if len(links) == 0 {
		fmt.Fprintf(out, "%s Nothing missing.\n", colorGreen("✓"))
		return nil
	}
	for _, l := range links {
		fmt.Fprintf(out, "%s\n  %s\n", l.Entry.Name, l.URI)
	}
	fmt.Fprintf(out, "\n%d item(s) missing. Save them to the downloads folder, then run 'lmm collection rescan %s'.\n",
		len(links), rev.Collection.Slug)
	return nil
}
