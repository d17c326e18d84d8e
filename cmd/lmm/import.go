package main

import (
	"fmt"

	"github.com/DonovanMods/lmm-collections/internal/collections"
	"github.com/DonovanMods/lmm-collections/internal/domain"

	"github.com/spf13/cobra"
)

var (
	importSlug     string
	importRevision int
)

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import a collection revision",
	Long: `Import a collection revision from a collection.json manifest or from a
collection archive (.zip, .7z, .rar) that contains one.

Importing a revision that is already stored changes nothing. Remote file
details are looked up on NexusMods when you are logged in.

Examples:
  lmm collection import ./collection.json --slug tcoll1 --revision 3
  lmm collection import ~/Downloads/my-collection.7z`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importSlug, "slug", "", "collection slug (default: derived from the collection name)")
	importCmd.Flags().IntVarP(&importRevision, "revision", "r", 1, "revision number")

	collectionCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	rev, err := service.ImportCollection(cmd.Context(), args[0], importSlug, importRevision)
	if err != nil {
		return fmt.Errorf("importing %s: %w", args[0], err)
	}

	entries, err := service.Collections().GetItems(cmd.Context(), rev.ID, domain.ItemAll)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Imported %s (%s, revision %d)\n", colorGreen("✓"), rev.Collection.Name, rev.Collection.Slug, rev.RevisionNumber)
	fmt.Fprintf(out, "  Required: %d to download\n", collections.CountItems(entries, domain.ItemRequired))
	fmt.Fprintf(out, "  Optional: %d to download\n", collections.CountItems(entries, domain.ItemOptional))
	return nil
}
