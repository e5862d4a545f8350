// Package checkout simulates payment for a cart total.
//
// Nothing is charged. A payment that passes field validation is approved or
// declined at random after a fixed delay; the caller clears the cart on
// approval.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Defaults for the simulated processor.
const (
	DefaultDelay       = 2 * time.Second
	DefaultSuccessRate = 0.85
	minCardDigits      = 12
)

var (
	// ErrPaymentInvalid is returned when payment fields fail validation.
	ErrPaymentInvalid = errors.New("invalid payment details")
	// ErrPaymentDeclined is returned when the simulated processor declines.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrEmptyCart is returned when there is nothing to pay for.
	ErrEmptyCart = errors.New("cart is empty")
)

// Payment holds the form fields.
type Payment struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Card   string `json:"card" validate:"required,cardnumber"`
	Expiry string `json:"expiry" validate:"required,expiry"`
	CVV    string `json:"cvv" validate:"required,len=3,numeric"`
}

// Receipt confirms an approved payment.
type Receipt struct {
	OrderID   string          `json:"orderId"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
	Approved  time.Time       `json:"approved"`
}

// Rand is the random source for approval. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// IDGenerator generates order ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator produces time-ordered UUIDv7 order ids.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7. Panics only if the system random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

var (
	paymentValidate *validator.Validate
	expiryPattern   = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
)

func init() {
	paymentValidate = validator.New()
	_ = paymentValidate.RegisterValidation("cardnumber", validateCardNumber)
	_ = paymentValidate.RegisterValidation("expiry", validateExpiry)
}

// validateCardNumber accepts at least 12 digits, ignoring spaces and dashes.
func validateCardNumber(fl validator.FieldLevel) bool {
	digits := 0
	for _, r := range fl.Field().String() {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return digits >= minCardDigits
}

// validateExpiry accepts MM/YY.
func validateExpiry(fl validator.FieldLevel) bool {
	return expiryPattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

// Validate checks every payment field. Failures wrap ErrPaymentInvalid and
// name the offending fields.
func (p Payment) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.CVV = strings.TrimSpace(p.CVV)
	err := paymentValidate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return fmt.Errorf("%w: %s", ErrPaymentInvalid, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrPaymentInvalid, err)
}

// Processor is the simulated payment processor.
type Processor struct {
	Delay       time.Duration
	SuccessRate float64
	Rand        Rand
	IDs         IDGenerator
	Now         func() time.Time
}

// NewProcessor returns a processor with the default delay and approval rate.
func NewProcessor() *Processor {
	return &Processor{
		Delay:       DefaultDelay,
		SuccessRate: DefaultSuccessRate,
	}
}

// Process validates payment, waits Delay, then approves with probability
// SuccessRate. Cancelling ctx during the wait returns ctx.Err().
func (p *Processor) Process(ctx context.Context, total decimal.Decimal, itemCount int, payment Payment) (Receipt, error) {
	if itemCount <= 0 {
		return Receipt{}, ErrEmptyCart
	}
	if err := payment.Validate(); err != nil {
		return Receipt{}, err
	}

	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	if p.draw() >= p.SuccessRate {
		slog.Info("payment declined", "total", total.StringFixed(2), "items", itemCount)
		return Receipt{}, ErrPaymentDeclined
	}

	r := Receipt{
		OrderID:   p.ids().Generate(),
		Total:     total,
		ItemCount: itemCount,
		Approved:  p.now(),
	}
	slog.Info("payment approved", "order", r.OrderID, "total", total.StringFixed(2), "items", itemCount)
	return r, nil
}

func (p *Processor) draw() float64 {
	if p.Rand != nil {
		return p.Rand.Float64()
	}
	return rand.Float64()
}

func (p *Processor) ids() IDGenerator {
	if p.IDs != nil {
		return p.IDs
	}
	return UUIDv7Generator{}
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}
