package main

import (
	"fmt"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/tui"

	"github.com/spf13/cobra"
)

var watchKeys string

var watchCmd = &cobra.Command{
	Use:   "watch <slug>",
	Short: "Interactive, live-updating view of a collection",
	Long: `Open a full-screen view of a collection revision. Item statuses and the
downloaded count update as files arrive, whether from this view, another
lmm process, or a rescan.

Keys: d download missing, r rescan, c cancel, ? help, q quit.

Examples:
  lmm collection watch tcoll1
  lmm collection watch tcoll1 --type all --keys standard`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	addRevisionFlag(watchCmd)
	addItemTypeFlag(watchCmd)
	addLoadoutFlag(watchCmd)
	watchCmd.Flags().StringVar(&watchKeys, "keys", "vim", "key bindings: vim or standard")

	collectionCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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
	group, err := service.Group(ctx, rev.ID, collLoadout)
	if err != nil {
		return err
	}
	entries, err := service.Collections().GetItems(ctx, rev.ID, domain.ItemAll)
	if err != nil {
		return err
	}

	return tui.Run(ctx, service.Collections(), *rev, entries, tui.Options{
		ItemType:    itemType,
		Group:       group,
		MaxParallel: service.Config().MaxParallelDownloads,
		KeyMode:     watchKeys,
	})
}
