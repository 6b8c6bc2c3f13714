package coupon

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferndesk/portal-checkout/domain"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestEngine() *Engine {
	return NewEngine(NewStaticLookup(map[string]int{
		"WELCOME10": 10,
		"AGENCY50":  50,
		"COMP100":   100,
	}))
}

func TestApply_HalfUpRounding(t *testing.T) {
	engine := newTestEngine()

	// 10% of 1197 is 119.7, which rounds up to 120.
	discount, err := engine.Apply(context.Background(), "WELCOME10", dec("1197"))

	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", discount.Code)
	assert.Equal(t, 10, discount.DiscountPercent)
	assert.True(t, discount.Amount.Equal(dec("120")), "amount = %s", discount.Amount)
}

func TestApply_NormalizesCode(t *testing.T) {
	engine := newTestEngine()

	discount, err := engine.Apply(context.Background(), "  welcome10 ", dec("100"))

	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", discount.Code)
	assert.True(t, discount.Amount.Equal(dec("10")))
}

func TestApply_EmptyCode(t *testing.T) {
	engine := newTestEngine()

	discount, err := engine.Apply(context.Background(), "   ", dec("100"))

	assert.ErrorIs(t, err, domain.ErrEmptyCoupon)
	assert.Nil(t, discount)
}

func TestApply_UnknownCode(t *testing.T) {
	engine := newTestEngine()

	discount, err := engine.Apply(context.Background(), "NOPE", dec("100"))

	assert.ErrorIs(t, err, domain.ErrInvalidCoupon)
	assert.Nil(t, discount)
}

type failingLookup struct{}

func (failingLookup) Lookup(context.Context, string) (int, error) {
	return 0, errors.New("connection refused")
}

func TestApply_LookupOutageIsNotInvalidCoupon(t *testing.T) {
	engine := NewEngine(failingLookup{})

	discount, err := engine.Apply(context.Background(), "WELCOME10", dec("100"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidCoupon)
	assert.Nil(t, discount)
}

func TestApply_Idempotent(t *testing.T) {
	engine := newTestEngine()

	first, err := engine.Apply(context.Background(), "AGENCY50", dec("333"))
	require.NoError(t, err)
	second, err := engine.Apply(context.Background(), "AGENCY50", dec("333"))
	require.NoError(t, err)

	assert.True(t, first.Amount.Equal(second.Amount))
	assert.Equal(t, first.Code, second.Code)
}

func TestApply_FullDiscount(t *testing.T) {
	engine := newTestEngine()

	discount, err := engine.Apply(context.Background(), "COMP100", dec("450"))

	require.NoError(t, err)
	assert.True(t, discount.Amount.Equal(dec("450")))
}
