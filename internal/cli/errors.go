package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/pokemart/internal/cart"
	"github.com/roach88/pokemart/internal/catalog"
	"github.com/roach88/pokemart/internal/checkout"
	"github.com/roach88/pokemart/internal/storefront"
)

// Error codes reported in CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Config file unreadable or invalid
	ErrCodeStore       = "E003" // Cart store could not be opened
	ErrCodeCatalogLoad = "E004" // Catalog provider failed
	ErrCodeInvalidArg  = "E005" // Malformed command argument
	ErrCodeInterrupted = "E006" // Cancelled by signal or deadline

	// Cart errors (E1xx)
	ErrCodeInsufficientStock = "E101"
	ErrCodeUnknownItem       = "E102"
	ErrCodeInvalidQuantity   = "E103"

	// Checkout errors (E2xx)
	ErrCodePaymentInvalid  = "E201"
	ErrCodePaymentDeclined = "E202"
	ErrCodeEmptyCart       = "E203"
)

// stockDetails is attached to insufficient stock errors.
type stockDetails struct {
	ItemID    int `json:"itemId"`
	Requested int `json:"requested"`
	InCart    int `json:"inCart"`
	Stock     int `json:"stock"`
	Available int `json:"available"`
}

func (d stockDetails) hint() string {
	if d.Available == 0 {
		return fmt.Sprintf("%d in stock, %d in cart, none left to add.", d.Stock, d.InCart)
	}
	return fmt.Sprintf("%d in stock, %d in cart, %d more can be added.", d.Stock, d.InCart, d.Available)
}

// classify maps err to an output code, exit code and optional details.
func classify(err error) (code string, exit int, details any) {
	var exitErr *ExitError
	var stockErr *cart.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return ErrCodeInsufficientStock, ExitFailure, stockDetails{
			ItemID:    stockErr.ItemID,
			Requested: stockErr.Requested,
			InCart:    stockErr.InCart,
			Stock:     stockErr.Stock,
			Available: stockErr.Available(),
		}
	case errors.Is(err, storefront.ErrUnknownItem):
		return ErrCodeUnknownItem, ExitFailure, nil
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidItem):
		return ErrCodeInvalidQuantity, ExitCommandError, nil
	case errors.Is(err, checkout.ErrPaymentInvalid):
		return ErrCodePaymentInvalid, ExitCommandError, nil
	case errors.Is(err, checkout.ErrPaymentDeclined):
		return ErrCodePaymentDeclined, ExitFailure, nil
	case errors.Is(err, checkout.ErrEmptyCart):
		return ErrCodeEmptyCart, ExitFailure, nil
	case errors.Is(err, catalog.ErrCatalogLoadFailed):
		return ErrCodeCatalogLoad, ExitCommandError, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeInterrupted, ExitFailure, nil
	case errors.As(err, &exitErr):
		return ErrCodeGeneric, exitErr.Code, nil
	default:
		return ErrCodeGeneric, ExitFailure, nil
	}
}

// fail reports err through the formatter and returns it as an ExitError
// carrying the matching exit code.
func fail(formatter *OutputFormatter, err error) error {
	code, exit, details := classify(err)
	_ = formatter.Error(code, err.Error(), details)
	return WrapExitError(exit, code, err)
}

// failf reports a command-level error with an explicit code.
func failf(formatter *OutputFormatter, code, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	_ = formatter.Error(code, msg, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, msg))
}
