// Package money holds the decimal arithmetic behind amounts, rates and lot limits.
package money

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// UnitPlaces is the precision crypto amounts are truncated to when derived from fiat.
const UnitPlaces = 8

var (
	ErrNotNumber   = errors.New("money: not a number")
	ErrNotPositive = errors.New("money: value must be positive")
	ErrFractional  = errors.New("money: value must be a whole number")
	ErrPrecision   = errors.New("money: too many decimal places")
	ErrOutOfBand   = errors.New("money: rate is outside the allowed band")
	ErrBadLimits   = errors.New("money: limits must look like 1000-5000")
)

// Commission rates charged by the exchange on each side of a deal.
var (
	BuyerCommission  = decimal.RequireFromString("0.01")
	SellerCommission = decimal.RequireFromString("0.005")
)

var (
	hundred       = decimal.NewFromInt(100)
	one           = decimal.NewFromInt(1)
	bandTolerance = decimal.RequireFromString("0.001")
)

// Normalize strips spaces and turns a decimal comma into a point.
func Normalize(text string) string {
	text = strings.Join(strings.Fields(text), "")
	return strings.ReplaceAll(text, ",", ".")
}

// ParseAmount parses a positive amount, accepting either separator.
func ParseAmount(text string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(Normalize(text))
	if err != nil {
		return decimal.Zero, ErrNotNumber
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrNotPositive
	}
	return d, nil
}

// ParseWhole parses a positive amount that must not contain a separator.
func ParseWhole(text string) (decimal.Decimal, error) {
	if strings.ContainsAny(text, ".,") {
		return decimal.Zero, ErrFractional
	}
	return ParseAmount(text)
}

// FitsPrecision reports whether d has at most places digits after the point.
func FitsPrecision(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// PercentDiff returns how far value is from base, in percent, rounded to 2 places.
func PercentDiff(base, value decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return value.Sub(base).Div(base).Mul(hundred).Round(2)
}

// MaxLimitValue is the largest upper limit a lot may carry.
const MaxLimitValue = 1_000_000_000

// ParseRate reads a lot rate. "1.5%" means 1.5 percent above market and yields a coefficient;
// anything else is an absolute rate. The coefficient keeps 4 places and the absolute rate 2,
// and either form must stay within 1 ± (variation+0.001) of market.
func ParseRate(text string, market, variation decimal.Decimal) (decimal.Decimal, *decimal.Decimal, error) {
	text = Normalize(text)
	var (
		rate decimal.Decimal
		coef *decimal.Decimal
	)
	if pct, ok := strings.CutSuffix(text, "%"); ok {
		p, err := decimal.NewFromString(pct)
		if err != nil {
			return decimal.Zero, nil, ErrNotNumber
		}
		c := one.Add(p.Div(hundred)).Round(4)
		coef = &c
		rate = market.Mul(c).Round(2)
	} else {
		r, err := decimal.NewFromString(text)
		if err != nil {
			return decimal.Zero, nil, ErrNotNumber
		}
		rate = r.Round(2)
	}
	if !rate.IsPositive() || market.IsZero() {
		return decimal.Zero, nil, ErrNotPositive
	}

	band := variation.Add(bandTolerance)
	ratio := rate.Div(market)
	if ratio.LessThan(one.Sub(band)) || ratio.GreaterThan(one.Add(band)) {
		return decimal.Zero, nil, ErrOutOfBand
	}
	return rate, coef, nil
}

// ParseLimits reads "from-to" with 0 < from <= to <= MaxLimitValue.
func ParseLimits(text string) (int64, int64, error) {
	left, right, ok := strings.Cut(strings.Join(strings.Fields(text), ""), "-")
	if !ok {
		return 0, 0, ErrBadLimits
	}
	from, err := strconv.ParseInt(left, 10, 64)
	if err != nil {
		return 0, 0, ErrBadLimits
	}
	to, err := strconv.ParseInt(right, 10, 64)
	if err != nil {
		return 0, 0, ErrBadLimits
	}
	if from <= 0 || from > to || to > MaxLimitValue {
		return 0, 0, ErrBadLimits
	}
	return from, to, nil
}

// MaxLimit caps a lot's upper limit by what the seller's balance covers at rate,
// keeping the seller commission in reserve.
func MaxLimit(limitTo int64, sellerBalance, rate decimal.Decimal) int64 {
	total := sellerBalance.Mul(rate)
	reserve := total.Mul(one.Sub(SellerCommission)).Mul(SellerCommission)
	byBalance := total.Sub(reserve).Floor().IntPart()
	if byBalance < limitTo {
		return byBalance
	}
	return limitTo
}

// Units converts a fiat amount to crypto at rate, truncated to UnitPlaces.
func Units(amountCurrency, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return amountCurrency.DivRound(rate, UnitPlaces+4).Truncate(UnitPlaces)
}

// RateChanged reports whether amountCurrency/amount drifted more than 1% from lotRate.
func RateChanged(lotRate, amount, amountCurrency decimal.Decimal) bool {
	if amount.IsZero() {
		return true
	}
	actual := amountCurrency.Div(amount)
	return PercentDiff(actual, lotRate).Abs().GreaterThan(one)
}

// Format renders d with exactly places digits, the way notices print amounts.
func Format(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
