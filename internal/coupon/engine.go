package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ferndesk/portal-checkout/domain"
)

// Lookup resolves a normalized coupon code to its discount percent.
// Implementations return ErrCouponNotFound for unknown codes so the engine
// can tell a bad code apart from a lookup outage.
type Lookup interface {
	Lookup(ctx context.Context, code string) (int, error)
}

var ErrCouponNotFound = errors.New("coupon not found")

var hundred = decimal.NewFromInt(100)

type Engine struct {
	lookup Lookup
}

func NewEngine(lookup Lookup) *Engine {
	return &Engine{lookup: lookup}
}

// Apply validates a code and computes its discount against the given
// due-today amount. The discount is rounded half-up to the nearest currency
// unit so it is reproducible for audit. Coupons discount the first invoice
// only; callers never apply them to the recurring total.
func (e *Engine) Apply(ctx context.Context, code string, dueToday decimal.Decimal) (*domain.CouponDiscount, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return nil, domain.ErrEmptyCoupon
	}

	percent, err := e.lookup.Lookup(ctx, normalized)
	if errors.Is(err, ErrCouponNotFound) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCoupon, normalized)
	}
	if err != nil {
		return nil, fmt.Errorf("coupon lookup failed: %w", err)
	}

	amount := dueToday.Mul(decimal.NewFromInt(int64(percent))).Div(hundred).Round(0)
	return &domain.CouponDiscount{
		Code:            normalized,
		DiscountPercent: percent,
		Amount:          amount,
	}, nil
}

// Normalize trims and uppercases a coupon code; codes are case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
