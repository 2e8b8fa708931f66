package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/library"
)

const (
	viewCollections = "collections"
	viewItems       = "items"
)

// filterFlags collects the filter and sort flags shared by commands that
// act on a view.
type filterFlags struct {
	search      string
	category    string
	status      string
	ownership   string
	progress    string
	includeTags []string
	excludeTags []string
	cover       string
	isbn        string
	sort        string
	desc        bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.search, "search", "s", "", "match titles, creators, tags and notes")
	fs.StringVar(&f.category, "category", "", "series category")
	fs.StringVar(&f.status, "status", "", "series status (ongoing, completed, hiatus, cancelled)")
	fs.StringVar(&f.ownership, "ownership", "", "volume ownership (owned, wishlist, preordered, for_sale)")
	fs.StringVar(&f.progress, "progress", "", "volume progress (unread, reading, read, dropped)")
	fs.StringSliceVarP(&f.includeTags, "tag", "t", nil, "require tag (repeatable)")
	fs.StringSliceVar(&f.excludeTags, "exclude-tag", nil, "exclude tag (repeatable)")
	fs.StringVar(&f.cover, "cover", "", "cover presence (any, has, missing)")
	fs.StringVar(&f.isbn, "isbn", "", "ISBN presence (any, has, missing)")
	fs.StringVar(&f.sort, "sort", "title", "sort field ("+sortFieldNames()+")")
	fs.BoolVar(&f.desc, "desc", false, "sort descending")
}

func sortFieldNames() string {
	names := make([]string, 0, len(library.SortFields()))
	for _, f := range library.SortFields() {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}

// query validates the flags and builds a library query.
func (f *filterFlags) query() (library.Query, error) {
	var q library.Query

	field, err := library.ParseSortField(f.sort)
	if err != nil {
		return q, err
	}
	cover, err := library.ParseCompleteness(f.cover)
	if err != nil {
		return q, fmt.Errorf("--cover: %w", err)
	}
	isbn, err := library.ParseCompleteness(f.isbn)
	if err != nil {
		return q, fmt.Errorf("--isbn: %w", err)
	}

	filter := library.Filter{
		Search:           f.search,
		Category:         f.category,
		CollectionStatus: domain.CollectionStatus(f.status),
		Ownership:        domain.OwnershipStatus(f.ownership),
		Progress:         domain.ProgressStatus(f.progress),
		IncludeTags:      f.includeTags,
		ExcludeTags:      f.excludeTags,
		Cover:            cover,
		ExternalID:       isbn,
	}
	if !filter.CollectionStatus.Valid() {
		return q, fmt.Errorf("unknown series status %q", f.status)
	}
	if filter.Ownership != "" && !filter.Ownership.Valid() {
		return q, fmt.Errorf("unknown ownership %q", f.ownership)
	}
	if filter.Progress != "" && !filter.Progress.Valid() {
		return q, fmt.Errorf("unknown progress %q", f.progress)
	}

	q.Filter = filter
	q.Sort = field
	if f.desc {
		q.Direction = library.Descending
	}
	return q, nil
}

func newListCmd(a *app) *cobra.Command {
	var (
		filters filterFlags
		view    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List series or volumes matching a filter",
		Example: `  shelf list
  shelf list --tag seinen --sort average_rating --desc
  shelf list --view items --progress unread --ownership owned`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if view != viewCollections && view != viewItems {
				return fmt.Errorf("--view must be %q or %q", viewCollections, viewItems)
			}
			q, err := filters.query()
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context()); err != nil {
				return err
			}

			v := a.catalog.View(q)
			if view == viewItems {
				return a.printItems(v)
			}
			return a.printCollections(v)
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&view, "view", viewCollections, "rows to show (collections, items)")
	return cmd
}

func (a *app) printCollections(v *library.View) error {
	if a.jsonOutput() {
		rows := make([]domain.CollectionWithItems, 0, len(v.Collections))
		for _, row := range v.Collections {
			rows = append(rows, domain.CollectionWithItems{Collection: row.Collection, Items: row.Items})
		}
		return a.writeJSON(rows)
	}

	tbl := newTable()
	tbl.AddRow("ID", "TITLE", "CREATOR", "STATUS", "VOLUMES", "TAGS")
	for _, row := range v.Collections {
		c := row.Collection
		tbl.AddRow(c.ID, c.Title, c.Creator, c.Status,
			fmt.Sprintf("%d/%d", len(row.Items), len(c.ItemIDs)), strings.Join(c.Tags, ", "))
	}
	fmt.Fprintln(a.out, tbl)
	a.printTotals(v.Totals)
	return nil
}

func (a *app) printItems(v *library.View) error {
	if a.jsonOutput() {
		items := make([]domain.Item, 0, len(v.Items))
		for _, row := range v.Items {
			items = append(items, row.Item)
		}
		return a.writeJSON(items)
	}

	tbl := newTable()
	tbl.AddRow("ID", "#", "TITLE", "SERIES", "OWNERSHIP", "PROGRESS", "RATING")
	for _, row := range v.Items {
		it := row.Item
		series := row.CollectionTitle
		if series == "" {
			series = "-"
		}
		tbl.AddRow(it.ID, formatNumber(it.Number), it.Title, series, it.Ownership, it.Progress, formatOptional(it.Rating))
	}
	fmt.Fprintln(a.out, tbl)
	a.printTotals(v.Totals)
	return nil
}

// maxColWidth truncates long titles and tag lists.
const maxColWidth = 48

func newTable() *uitable.Table {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = maxColWidth
	return tbl
}

func (a *app) printTotals(t library.Totals) {
	line := fmt.Sprintf("%d series, %d volumes (%d unassigned), %d owned, %d read",
		t.Collections, t.Items, t.Unassigned, t.Owned, t.Read)
	if t.Price > 0 {
		line += fmt.Sprintf(", %.2f spent", t.Price)
	}
	fmt.Fprintln(a.out)
	color.New(color.Faint).Fprintln(a.out, line)
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func formatOptional(p *float64) string {
	if p == nil {
		return "-"
	}
	return formatNumber(*p)
}
