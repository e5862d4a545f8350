package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/pokemart/internal/cart"
	"github.com/roach88/pokemart/internal/catalog"
	"github.com/roach88/pokemart/internal/checkout"
	"github.com/roach88/pokemart/internal/storefront"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
	// Set for insufficient stock only.
	ItemID    int  `json:"itemId,omitempty"`
	Available *int `json:"available,omitempty"`
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cart.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, storefront.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidItem),
		errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrPaymentInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, catalog.ErrCatalogLoadFailed):
		return http.StatusBadGateway
	case errors.Is(err, storefront.ErrClosed),
		errors.Is(err, storefront.ErrNotLoaded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var stockErr *cart.InsufficientStockError
	if errors.As(err, &stockErr) {
		available := stockErr.Available()
		resp.ItemID = stockErr.ItemID
		resp.Available = &available
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
