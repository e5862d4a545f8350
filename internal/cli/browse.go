package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/pokemart/internal/catalog"
	"github.com/roach88/pokemart/internal/filter"
	"github.com/roach88/pokemart/internal/storefront"
)

// BrowseOptions holds flags for the browse command.
type BrowseOptions struct {
	*RootOptions
	Search string
	Types  []string
	Min    string
	Max    string
	Sort   string
}

// BrowseResult is the filtered catalog view.
type BrowseResult struct {
	Items []storefront.Listing `json:"items"`
	Count int                  `json:"count"`
}

func (r BrowseResult) renderText(out io.Writer) {
	if len(r.Items) == 0 {
		fmt.Fprint(out, "No items match.")
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "ID\tNAME\tTYPES\tPRICE\tSTOCK\tIN CART\tAVAILABLE")
	for _, l := range r.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
			l.ID, catalog.FormattedName(l.Item), strings.Join(l.Types, "/"),
			catalog.FormattedPrice(l.Item), l.Stock, l.InCart, l.Available)
	}
	_ = w.Flush()
	fmt.Fprint(out, itemCount(len(r.Items)))
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BrowseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List catalog items matching a filter",
		Long: `Load the catalog and list the items matching the filter, annotated with
what the persisted cart leaves available.

Selecting types ranks results by relevance; otherwise --sort applies.

Example:
  pokemart browse --search char
  pokemart browse --type water --type flying
  pokemart browse --min 20 --max 60 --sort price-desc`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "match name or id")
	cmd.Flags().StringArrayVarP(&opts.Types, "type", "t", nil, "type to select (repeatable, order sets ranking)")
	cmd.Flags().StringVar(&opts.Min, "min", "", "minimum price (default from config)")
	cmd.Flags().StringVar(&opts.Max, "max", "", "maximum price (default from config)")
	cmd.Flags().StringVar(&opts.Sort, "sort", string(filter.SortID), fmt.Sprintf("sort key %v", filter.SortKeys()))

	return cmd
}

func runBrowse(opts *BrowseOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	sess, err := openSession(ctx, opts.RootOptions, formatter, sessionOptions{loadCatalog: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	criteria := filter.Criteria{
		Search:        opts.Search,
		SelectedTypes: opts.Types,
		Price:         sess.cfg.PriceRange(),
		Sort:          filter.ParseSortKey(opts.Sort),
	}
	if opts.Min != "" {
		d, err := decimal.NewFromString(opts.Min)
		if err != nil {
			return failf(formatter, ErrCodeInvalidArg, "invalid --min %q", opts.Min)
		}
		criteria.Price.Min = decimal.NewNullDecimal(d)
	}
	if opts.Max != "" {
		d, err := decimal.NewFromString(opts.Max)
		if err != nil {
			return failf(formatter, ErrCodeInvalidArg, "invalid --max %q", opts.Max)
		}
		criteria.Price.Max = decimal.NewNullDecimal(d)
	}

	listings, err := sess.ctrl.Browse(ctx, criteria)
	if err != nil {
		return fail(formatter, err)
	}
	return formatter.Success(BrowseResult{Items: listings, Count: len(listings)})
}

// TypesResult lists the type taxonomy.
type TypesResult struct {
	Types    []string `json:"types"`
	Fallback bool     `json:"fallback"`
}

func (r TypesResult) renderText(out io.Writer) {
	fmt.Fprint(out, strings.Join(r.Types, "\n"))
	if r.Fallback {
		fmt.Fprint(out, "\n(provider unavailable, showing built-in list)")
	}
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "types",
		Short:         "List the type taxonomy",
		Long:          "List the types offered by the catalog provider, or a built-in list when it is unreachable.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			sess, err := openSession(commandContext(cmd), rootOpts, formatter, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			types, fallback := sess.ctrl.Types(commandContext(cmd))
			return formatter.Success(TypesResult{Types: types, Fallback: fallback})
		},
	}
}
