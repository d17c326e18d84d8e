package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/DonovanMods/lmm-collections/internal/collections"
	"github.com/DonovanMods/lmm-collections/internal/domain"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <slug>",
	Short: "Show the status of every item in a collection",
	Long: `Show, for every item of a collection revision, whether it is bundled,
not downloaded, in the library, or installed in the loadout.

Examples:
  lmm collection status tcoll1
  lmm collection status tcoll1 --revision 2 --type all
  lmm collection status tcoll1 --loadout "Main" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	addRevisionFlag(statusCmd)
	addItemTypeFlag(statusCmd)
	addLoadoutFlag(statusCmd)

	collectionCmd.AddCommand(statusCmd)
}

type statusJSONOutput struct {
	Slug            string            `json:"slug"`
	Name            string            `json:"name"`
	Revision        int               `json:"revision"`
	ItemType        string            `json:"item_type"`
	Downloaded      int               `json:"downloaded"`
	Total           int               `json:"total"`
	FullyDownloaded bool              `json:"fully_downloaded"`
	Loadout         string            `json:"loadout,omitempty"`
	FullyInstalled  *bool             `json:"fully_installed,omitempty"`
	Entries         []statusEntryJSON `json:"entries"`
}

type statusEntryJSON struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	ManualOnly  bool   `json:"manual_only,omitempty"`
	LibraryFile string `json:"library_file,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	loadout, err := service.Loadout(ctx, collLoadout)
	if err != nil {
		return err
	}
	var group *domain.CollectionGroup
	if loadout != nil {
		group, err = service.Collections().GetCollectionGroup(ctx, rev.ID, loadout.ID)
		if err != nil {
			return err
		}
	}

	d := service.Collections()
	entries, err := d.GetItems(ctx, rev.ID, itemType)
	if err != nil {
		return err
	}

	out := statusJSONOutput{
		Slug:     rev.Collection.Slug,
		Name:     rev.Collection.Name,
		Revision: rev.RevisionNumber,
		ItemType: itemType.String(),
		Total:    collections.CountItems(entries, itemType),
		Entries:  make([]statusEntryJSON, 0, len(entries)),
	}
	for _, e := range entries {
		status, err := d.GetStatus(ctx, e, group)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", e.Name, err)
		}
		if e.IsDownloadable() && status.IsDownloaded() {
			out.Downloaded++
		}
		item := statusEntryJSON{
			ID:         e.ID,
			Name:       e.Name,
			Kind:       e.Kind.String(),
			Type:       e.Type.String(),
			Status:     status.String(),
			ManualOnly: e.ManualOnly,
		}
		if status.IsInLibrary() {
			item.LibraryFile = status.LibraryItem.FileName
		}
		out.Entries = append(out.Entries, item)
	}

	if out.FullyDownloaded, err = d.IsFullyDownloaded(ctx, entries); err != nil {
		return err
	}
	if loadout != nil {
		out.Loadout = loadout.Name
		installed := false
		if group != nil {
			if installed, err = d.IsFullyInstalled(ctx, entries, group); err != nil {
				return err
			}
		}
		out.FullyInstalled = &installed
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	printStatus(cmd, out)
	return nil
}

func printStatus(cmd *cobra.Command, out statusJSONOutput) {
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "Collection: %s (%s)\n", out.Name, out.Slug)
	fmt.Fprintf(stdout, "  Revision: %d\n", out.Revision)
	fmt.Fprintf(stdout, "  %s items: %d/%d downloaded\n", out.ItemType, out.Downloaded, out.Total)
	if out.FullyInstalled != nil {
		state := colorYellow("not installed")
		if *out.FullyInstalled {
			state = colorGreen("installed")
		}
		fmt.Fprintf(stdout, "  Loadout %s: %s\n", out.Loadout, state)
	}
	fmt.Fprintln(stdout)

	if len(out.Entries) == 0 {
		fmt.Fprintln(stdout, "No entries of this type.")
		return
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tTYPE\tSTATUS")
	fmt.Fprintln(w, "----\t------\t----\t------")
	for _, e := range out.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", truncate(e.Name, 40), e.Kind, e.Type, statusLabel(e))
	}
	w.Flush()

	if out.FullyDownloaded {
		fmt.Fprintf(stdout, "\n%s All items downloaded\n", colorGreen("✓"))
	} else {
		fmt.Fprintf(stdout, "\nUse 'lmm collection download %s' to fetch missing items.\n", out.Slug)
	}
}

func statusLabel(e statusEntryJSON) string {
	switch e.Status {
	case domain.StatusNotDownloaded.String():
		if e.ManualOnly {
			return colorRed(e.Status) + " (manual)"
		}
		return colorRed(e.Status)
	case domain.StatusInstalled.String():
		return colorGreen(e.Status)
	default:
		return e.Status
	}
}
