package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/pokemart/internal/catalog"
	"github.com/roach88/pokemart/internal/storefront"
)

// CartResult is the cart after a command.
type CartResult struct {
	storefront.CartView
	Action string `json:"action,omitempty"`
}

func (r CartResult) renderText(out io.Writer) {
	if r.Action != "" {
		fmt.Fprintf(out, "✓ %s\n\n", r.Action)
	}
	if len(r.Items) == 0 {
		fmt.Fprint(out, "Cart is empty.")
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tUNIT\tSUBTOTAL")
	for _, it := range r.Items {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			it.ID, catalog.FormattedName(it.Snapshot), it.Quantity,
			catalog.FormattedPrice(it.Snapshot), money(it.TotalPrice()))
	}
	_ = w.Flush()
	fmt.Fprintf(out, "%s, total %s", itemCount(r.Count), money(r.Total))
}

// NewCartCommand creates the cart command and its subcommands.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the persisted cart",
		Long: `Show or change the persisted cart.

Adding and updating check the requested quantity against current stock, so
the catalog is loaded first.

Example:
  pokemart cart add 25 2
  pokemart cart update 25 1
  pokemart cart remove 25
  pokemart cart show`,
	}

	cmd.AddCommand(
		newCartShowCommand(rootOpts),
		newCartAddCommand(rootOpts),
		newCartRemoveCommand(rootOpts),
		newCartUpdateCommand(rootOpts),
		newCartClearCommand(rootOpts),
	)
	return cmd
}

// cartAction runs fn against an open session and prints the resulting cart.
func cartAction(rootOpts *RootOptions, cmd *cobra.Command, loadCatalog bool, fn func(sess *session) (string, error)) error {
	formatter := newFormatter(rootOpts, cmd)
	ctx := commandContext(cmd)

	sess, err := openSession(ctx, rootOpts, formatter, sessionOptions{loadCatalog: loadCatalog})
	if err != nil {
		return err
	}
	defer sess.Close()

	action, err := fn(sess)
	if err != nil {
		return fail(formatter, err)
	}
	view, err := sess.ctrl.Cart(ctx)
	if err != nil {
		return fail(formatter, err)
	}
	return formatter.Success(CartResult{CartView: view, Action: action})
}

func parseID(formatter *OutputFormatter, raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, failf(formatter, ErrCodeInvalidArg, "invalid item id %q", raw)
	}
	return id, nil
}

func parseQuantity(formatter *OutputFormatter, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, failf(formatter, ErrCodeInvalidArg, "invalid quantity %q", raw)
	}
	return n, nil
}

func newCartShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cartAction(rootOpts, cmd, false, func(*session) (string, error) {
				return "", nil
			})
		},
	}
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <id> [quantity]",
		Short:         "Reserve units of an item",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			id, err := parseID(formatter, args[0])
			if err != nil {
				return err
			}
			quantity := 1
			if len(args) == 2 {
				if quantity, err = parseQuantity(formatter, args[1]); err != nil {
					return err
				}
			}
			return cartAction(rootOpts, cmd, true, func(sess *session) (string, error) {
				if err := sess.ctrl.AddItem(commandContext(cmd), id, quantity); err != nil {
					return "", err
				}
				return fmt.Sprintf("Added %d × #%d", quantity, id), nil
			})
		},
	}
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <id>",
		Short:         "Remove an item from the cart",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(newFormatter(rootOpts, cmd), args[0])
			if err != nil {
				return err
			}
			return cartAction(rootOpts, cmd, false, func(sess *session) (string, error) {
				if err := sess.ctrl.RemoveItem(commandContext(cmd), id); err != nil {
					return "", err
				}
				return fmt.Sprintf("Removed #%d", id), nil
			})
		},
	}
}

func newCartUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "update <id> <quantity>",
		Short:         "Set the quantity of an item",
		Long:          "Set the quantity of an item already in the cart. A quantity of zero removes it.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			id, err := parseID(formatter, args[0])
			if err != nil {
				return err
			}
			quantity, err := parseQuantity(formatter, args[1])
			if err != nil {
				return err
			}
			return cartAction(rootOpts, cmd, true, func(sess *session) (string, error) {
				if err := sess.ctrl.UpdateQuantity(commandContext(cmd), id, quantity); err != nil {
					return "", err
				}
				return fmt.Sprintf("Set #%d to %d", id, quantity), nil
			})
		},
	}
}

func newCartClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Empty the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cartAction(rootOpts, cmd, false, func(sess *session) (string, error) {
				if err := sess.ctrl.ClearCart(commandContext(cmd)); err != nil {
					return "", err
				}
				return "Cart cleared", nil
			})
		},
	}
}
