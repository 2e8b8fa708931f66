package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTagsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "tags [query]",
		Short: "List tags in use, or suggest tags matching a query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context()); err != nil {
				return err
			}

			store := a.catalog.Store()
			var tags []string
			if len(args) == 1 {
				tags = store.SuggestTags(args[0], limit)
			} else {
				tags = store.Tags()
			}

			if a.jsonOutput() {
				if tags == nil {
					tags = []string{}
				}
				return a.writeJSON(tags)
			}
			for _, tag := range tags {
				fmt.Fprintln(a.out, tag)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum suggestions")
	return cmd
}
