package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

func newAddSeriesCmd(a *app) *cobra.Command {
	var (
		creator     string
		category    string
		description string
		status      string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:     "add-series <title>",
		Short:   "Create a series",
		Example: `  shelf add-series "Berserk" --creator "Kentaro Miura" --category Manga --tag seinen --status ongoing`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			s := domain.CollectionStatus(status)
			if !s.Valid() {
				return fmt.Errorf("unknown series status %q", status)
			}

			created, err := a.catalog.CreateCollection(cmd.Context(), domain.CollectionWithItems{
				Collection: domain.Collection{
					Title:       args[0],
					Creator:     creator,
					Category:    category,
					Description: description,
					Tags:        tags,
					Status:      s,
				},
			})
			if err != nil {
				return err
			}

			if a.jsonOutput() {
				return a.writeJSON(created)
			}
			fmt.Fprintf(a.out, "Created series %s (%s)\n", created.Title, created.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&creator, "creator", "", "author or artist")
	f.StringVar(&category, "category", "", "category, e.g. Manga or Novel")
	f.StringVar(&description, "description", "", "description; HTML is converted to Markdown")
	f.StringVar(&status, "status", "", "ongoing, completed, hiatus or cancelled")
	f.StringSliceVarP(&tags, "tag", "t", nil, "tag (repeatable)")
	return cmd
}

func newAddVolumeCmd(a *app) *cobra.Command {
	var (
		series    string
		number    float64
		ownership string
		progress  string
		isbn      string
		notes     string
		rating    float64
		price     float64
	)

	cmd := &cobra.Command{
		Use:   "add-volume <title>",
		Short: "Create a volume, optionally filed under a series",
		Example: `  shelf add-volume "Berserk Vol. 1" --series col-... --number 1 --ownership owned
  shelf add-volume "Pluto Vol. 1" --number 1 --ownership wishlist`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			item := domain.Item{
				CollectionID: series,
				Title:        args[0],
				Number:       number,
				Ownership:    domain.OwnershipStatus(ownership),
				Progress:     domain.ProgressStatus(progress),
				ISBN:         isbn,
				Notes:        notes,
			}
			if ownership != "" && !item.Ownership.Valid() {
				return fmt.Errorf("unknown ownership %q", ownership)
			}
			if progress != "" && !item.Progress.Valid() {
				return fmt.Errorf("unknown progress %q", progress)
			}
			if cmd.Flags().Changed("rating") {
				item.Rating = &rating
			}
			if cmd.Flags().Changed("price") {
				item.Price = &price
			}

			created, err := a.catalog.CreateItem(cmd.Context(), item)
			if err != nil {
				return err
			}

			if a.jsonOutput() {
				return a.writeJSON(created)
			}
			fmt.Fprintf(a.out, "Created volume %s (%s)\n", created.Title, created.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&series, "series", "", "series ID to file the volume under")
	f.Float64Var(&number, "number", 0, "volume number; fractional for specials")
	f.StringVar(&ownership, "ownership", "", "owned, wishlist, preordered or for_sale (default owned)")
	f.StringVar(&progress, "progress", "", "unread, reading, read or dropped (default unread)")
	f.StringVar(&isbn, "isbn", "", "ISBN-10 or ISBN-13")
	f.StringVar(&notes, "notes", "", "free-form notes")
	f.Float64Var(&rating, "rating", 0, "rating from 0 to 10")
	f.Float64Var(&price, "price", 0, "purchase price")
	return cmd
}
