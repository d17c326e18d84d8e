package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	deleteGroups bool
	deleteYes    bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a collection or one of its revisions",
	Long: `Delete a stored collection with all its revisions, or only the revision
given with --revision. Files already in the library are kept.

With --groups only the installed groups of the revision are removed from
every loadout; the revision itself stays.

Examples:
  lmm collection delete tcoll1
  lmm collection delete tcoll1 --revision 2 --yes
  lmm collection delete tcoll1 --groups`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().IntVarP(&collRevision, "revision", "r", 0, "delete only this revision")
	deleteCmd.Flags().BoolVar(&deleteGroups, "groups", false, "remove the revision's installed groups instead (newest revision unless --revision)")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")

	collectionCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx := cmd.Context()
	d := service.Collections()
	out := cmd.OutOrStdout()

	if deleteGroups || collRevision > 0 {
		rev, err := lookupRevision(ctx, service, args[0])
		if err != nil {
			return err
		}
		if deleteGroups {
			if !confirm(cmd, fmt.Sprintf("Remove every installed group of %s?", rev)) {
				return ErrCancelled
			}
			if err := d.DeleteCollectionLoadoutGroup(ctx, rev.ID); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Removed installed groups of %s\n", colorGreen("✓"), rev)
			return nil
		}
		if !confirm(cmd, fmt.Sprintf("Delete revision %d of %s?", rev.RevisionNumber, rev.Collection.Name)) {
			return ErrCancelled
		}
		if err := d.DeleteRevision(ctx, rev.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Deleted %s\n", colorGreen("✓"), rev)
		return nil
	}

	c, err := service.DB().CollectionBySlug(ctx, args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if !confirm(cmd, fmt.Sprintf("Delete %s and all its revisions?", c.Name)) {
		return ErrCancelled
	}
	if err := d.DeleteCollection(ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Deleted %s\n", colorGreen("✓"), c.Slug)
	return nil
}

// confirm asks a yes/no question on stdin unless --yes was given
func confirm(cmd *cobra.Command, question string) bool {
	if deleteYes {
		return true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	input, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}
