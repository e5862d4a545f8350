package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pokemart/internal/checkout"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	Payment checkout.Payment
}

// CheckoutResult wraps an approved receipt.
type CheckoutResult struct {
	checkout.Receipt
}

func (r CheckoutResult) renderText(out io.Writer) {
	fmt.Fprintf(out, "✓ Payment approved\n  Order: %s\n  Items: %d\n  Total: %s",
		r.OrderID, r.ItemCount, money(r.Total))
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Pay for the persisted cart",
		Long: `Pay for the persisted cart with a simulated processor.

The payment fields are validated first. The processor then waits the
configured delay and approves with the configured success rate. On approval
the paid items leave the cart; on decline it is kept.

Example:
  pokemart checkout --name Ash --email ash@pallet.town \
    --card "4111 1111 1111 1111" --expiry 08/27 --cvv 123`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Payment.Name, "name", "", "cardholder name")
	cmd.Flags().StringVar(&opts.Payment.Email, "email", "", "receipt email")
	cmd.Flags().StringVar(&opts.Payment.Card, "card", "", "card number")
	cmd.Flags().StringVar(&opts.Payment.Expiry, "expiry", "", "expiry as MM/YY")
	cmd.Flags().StringVar(&opts.Payment.CVV, "cvv", "", "3-digit security code")

	return cmd
}

func runCheckout(opts *CheckoutOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	// Validate before touching the store so a typo fails fast.
	if err := opts.Payment.Validate(); err != nil {
		return fail(formatter, err)
	}

	sess, err := openSession(ctx, opts.RootOptions, formatter, sessionOptions{})
	if err != nil {
		return err
	}
	defer sess.Close()

	formatter.VerboseLog("Processing payment (delay %s)", sess.cfg.Checkout.Delay)
	receipt, err := sess.ctrl.Checkout(ctx, opts.Payment)
	if err != nil {
		return fail(formatter, err)
	}
	return formatter.Success(CheckoutResult{Receipt: receipt})
}
