package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/library"
)

func newAssignCmd(a *app) *cobra.Command {
	var (
		filters       filterFlags
		allUnassigned bool
	)

	cmd := &cobra.Command{
		Use:   "assign <series-id> [volume-id...]",
		Short: "File unassigned volumes under a series",
		Long: `File the given unassigned volumes under a series. With --all-unassigned
every unassigned volume matching the filter flags is filed. Volumes that
already belong to a series are left alone.`,
		Example: `  shelf assign col-... itm-... itm-...
  shelf assign col-... --all-unassigned --search berserk`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !allUnassigned && len(args) < 2 {
				return errors.New("name volumes to assign or pass --all-unassigned")
			}
			q, err := filters.query()
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context()); err != nil {
				return err
			}

			v := a.catalog.View(q)
			sel := a.catalog.Selection()
			if allUnassigned {
				sel.SelectAll(library.LevelItem, v)
			}
			for _, id := range args[1:] {
				if !sel.IsSelected(library.LevelItem, id) {
					sel.Toggle(library.LevelItem, id)
				}
			}

			res, err := a.catalog.AssignSelected(cmd.Context(), v, args[0])
			return a.reportBulk("Assigned", res, err)
		},
	}

	filters.register(cmd)
	cmd.Flags().BoolVar(&allUnassigned, "all-unassigned", false, "assign every matching unassigned volume")
	return cmd
}

func newMarkCmd(a *app) *cobra.Command {
	var (
		ownership string
		progress  string
		series    []string
	)

	cmd := &cobra.Command{
		Use:   "mark [volume-id...]",
		Short: "Set ownership or progress on several volumes at once",
		Example: `  shelf mark itm-... itm-... --progress read
  shelf mark --series col-... --ownership owned`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.ItemPatch
			if ownership != "" {
				o := domain.OwnershipStatus(ownership)
				if !o.Valid() {
					return fmt.Errorf("unknown ownership %q", ownership)
				}
				patch.Ownership = &o
			}
			if progress != "" {
				p := domain.ProgressStatus(progress)
				if !p.Valid() {
					return fmt.Errorf("unknown progress %q", progress)
				}
				patch.Progress = &p
			}
			if patch.IsEmpty() {
				return errors.New("nothing to change: pass --ownership or --progress")
			}
			if len(args) == 0 && len(series) == 0 {
				return errors.New("name volumes or pass --series")
			}
			if err := a.load(cmd.Context()); err != nil {
				return err
			}

			store := a.catalog.Store()
			sel := a.catalog.Selection()
			for _, id := range args {
				if !sel.IsSelected(library.LevelItem, id) {
					sel.Toggle(library.LevelItem, id)
				}
			}
			for _, cid := range series {
				if _, ok := store.Collection(cid); !ok {
					return fmt.Errorf("unknown series %q", cid)
				}
				for _, it := range store.ItemsOf(cid) {
					if !sel.IsSelected(library.LevelItem, it.ID) {
						sel.Toggle(library.LevelItem, it.ID)
					}
				}
			}

			res, err := a.catalog.MarkSelected(cmd.Context(), a.catalog.View(library.Query{}), patch)
			return a.reportBulk("Updated", res, err)
		},
	}

	f := cmd.Flags()
	f.StringVar(&ownership, "ownership", "", "owned, wishlist, preordered or for_sale")
	f.StringVar(&progress, "progress", "", "unread, reading, read or dropped")
	f.StringSliceVar(&series, "series", nil, "mark every volume of this series (repeatable)")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete series or volumes",
		Long: `Delete the named series and volumes. Deleting a series also deletes
every volume filed under it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context()); err != nil {
				return err
			}

			store := a.catalog.Store()
			sel := a.catalog.Selection()
			for _, id := range args {
				level := library.LevelItem
				if _, ok := store.Collection(id); ok {
					level = library.LevelCollection
				} else if _, ok := store.Item(id); !ok {
					return fmt.Errorf("no series or volume with ID %q", id)
				}
				if !sel.IsSelected(level, id) {
					sel.Toggle(level, id)
				}
			}

			v := a.catalog.View(library.Query{})
			// Items first: a series delete takes its items with it.
			items, itemErr := a.catalog.DeleteSelected(cmd.Context(), v, library.LevelItem)
			collections, colErr := a.catalog.DeleteSelected(cmd.Context(), v, library.LevelCollection)

			res := items
			res.Done = append(res.Done, collections.Done...)
			res.Failed = append(res.Failed, collections.Failed...)
			return a.reportBulk("Deleted", res, errors.Join(itemErr, colErr))
		},
	}
	return cmd
}
