package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/DonovanMods/lmm-collections/internal/core"
	"github.com/DonovanMods/lmm-collections/internal/domain"

	"github.com/spf13/cobra"
)

// Flags shared by the collection subcommands
var (
	collRevision int
	collItemType string
	collLoadout  string
)

var collectionCmd = &cobra.Command{
	Use:     "collection",
	Aliases: []string{"coll", "c"},
	Short:   "Manage mod collections",
	Long: `Import collection revisions, check which of their items are downloaded
or installed, and fetch the missing ones.

Collections are addressed by slug. Commands default to the newest stored
revision; pass --revision to pick another one.`,
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored collections and their revisions",
	Args:  cobra.NoArgs,
	RunE:  runCollectionList,
}

func init() {
	collectionCmd.AddCommand(collectionListCmd)
	rootCmd.AddCommand(collectionCmd)
}

// addRevisionFlag registers --revision on a subcommand
func addRevisionFlag(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&collRevision, "revision", "r", 0, "revision number (default: newest)")
}

// addItemTypeFlag registers --type on a subcommand
func addItemTypeFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&collItemType, "type", "t", "required", "item type: required, optional or all")
}

// addLoadoutFlag registers --loadout on a subcommand
func addLoadoutFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&collLoadout, "loadout", "l", "", "loadout to check installs against (default: config default_loadout)")
}

// lookupRevision resolves the slug argument and --revision
func lookupRevision(ctx context.Context, service *core.Service, slug string) (*domain.CollectionRevision, error) {
	rev, err := service.Revision(ctx, slug, collRevision)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, fmt.Errorf("%s: %w (use 'lmm collection list' to see stored collections)", slug, err)
		}
		return nil, err
	}
	return rev, nil
}

// writeJSON prints v as indented JSON
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type listCollectionJSON struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	GameID    string `json:"game_id"`
	Revisions []int  `json:"revisions"`
}

func runCollectionList(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx := cmd.Context()
	colls, err := service.DB().Collections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	out := make([]listCollectionJSON, 0, len(colls))
	for _, c := range colls {
		revisions, err := service.DB().Revisions(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("listing revisions of %s: %w", c.Slug, err)
		}
		item := listCollectionJSON{Slug: c.Slug, Name: c.Name, GameID: c.GameID, Revisions: []int{}}
		for _, r := range revisions {
			item.Revisions = append(item.Revisions, r.RevisionNumber)
		}
		out = append(out, item)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), out)
	}

	if len(out) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No collections stored.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'lmm collection import' to add one.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tGAME\tREVISIONS")
	fmt.Fprintln(w, "----\t----\t----\t---------")
	for _, c := range out {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Slug, truncate(c.Name, 40), c.GameID, joinInts(c.Revisions))
	}
	w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d collection(s)\n", len(out))
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// truncate shortens s to max runes, marking the cut with "..."
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
