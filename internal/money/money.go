// Package money provides the fixed-point currency type used across sales,
// repairs and reconciliation. Amounts carry exactly two fraction digits and
// all comparisons are exact; rounding happens only when rendering.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/message"
)

// Scale is the number of fraction digits carried by every amount.
const Scale = 2

// ErrMalformed indicates an amount that could not be parsed.
var ErrMalformed = errors.New("money: malformed amount")

// Money is a fixed-point decimal amount at scale 2.
type Money struct {
	d decimal.Decimal
}

// Zero returns the zero amount.
func Zero() Money {
	return Money{}
}

// New builds an amount from whole units and cents, e.g. New(170, 50) = 170.50.
func New(units int64, cents int64) Money {
	return Money{d: decimal.New(units*100+cents, -Scale)}
}

// FromDecimal truncates the given decimal to scale 2 without rounding.
// Inputs are expected to already be scale-2; the truncation only guards
// against wider values leaking in from external sources.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Truncate(Scale)}
}

// Parse reads a decimal string such as "170.50".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	if d.Exponent() < -Scale {
		return Money{}, fmt.Errorf("%w: %q has more than %d fraction digits", ErrMalformed, s, Scale)
	}
	return Money{d: d}, nil
}

// MustParse is Parse for test fixtures and constants.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Sub returns m - o. The result may be negative; callers that need a
// floored balance use FloorZero.
func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// MulInt returns m multiplied by an integer quantity.
func (m Money) MulInt(n int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(n))}
}

// FloorZero returns max(0, m).
func (m Money) FloorZero() Money {
	if m.d.Sign() < 0 {
		return Money{}
	}
	return m
}

// WithTolerance returns m * (1 + frac), used for the overpayment cap.
// The product keeps its full precision so the comparison stays exact.
func (m Money) WithTolerance(frac string) Money {
	tol := decimal.RequireFromString(frac)
	return Money{d: m.d.Mul(decimal.NewFromInt(1).Add(tol))}
}

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// LessThan reports m < o.
func (m Money) LessThan(o Money) bool {
	return m.d.Cmp(o.d) < 0
}

// GreaterThan reports m > o.
func (m Money) GreaterThan(o Money) bool {
	return m.d.Cmp(o.d) > 0
}

// IsPositive reports m > 0.
func (m Money) IsPositive() bool {
	return m.d.Sign() > 0
}

// IsNegative reports m < 0.
func (m Money) IsNegative() bool {
	return m.d.Sign() < 0
}

// IsZero reports m == 0.
func (m Money) IsZero() bool {
	return m.d.Sign() == 0
}

// Decimal exposes the underlying decimal for repositories.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Display renders the amount with half-up rounding to two places. This is
// the only place rounding is applied.
func (m Money) Display() string {
	return m.d.Round(Scale).StringFixed(Scale)
}

// Format renders the amount with digit grouping for report bodies.
func (m Money) Format(p *message.Printer) string {
	rounded := m.d.Round(Scale)
	whole := rounded.IntPart()
	frac := rounded.Sub(decimal.NewFromInt(whole)).Abs().Mul(decimal.NewFromInt(100)).IntPart()
	if rounded.Sign() < 0 && whole == 0 {
		return p.Sprintf("-%d.%02d", whole, frac)
	}
	return p.Sprintf("%d.%02d", whole, frac)
}

// String implements fmt.Stringer without applying display rounding.
func (m Money) String() string {
	return m.d.String()
}

// MarshalJSON renders the amount as a fixed two-place string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.d.StringFixed(Scale) + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare decimal literals.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = Money{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer so Money binds as a SQL numeric.
func (m Money) Value() (driver.Value, error) {
	return m.d.StringFixed(Scale), nil
}

// Scan implements sql.Scanner for numeric columns.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Money{}
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrMalformed, v)
		}
		m.d = d
		return nil
	case []byte:
		return m.Scan(string(v))
	case int64:
		m.d = decimal.NewFromInt(v)
		return nil
	case float64:
		m.d = decimal.NewFromFloat(v).Truncate(Scale)
		return nil
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
}

// Sum adds a series of amounts.
func Sum(amounts ...Money) Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
