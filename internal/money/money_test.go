package money

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestParse(t *testing.T) {
	m, err := Parse("170.50")
	require.NoError(t, err)
	require.Equal(t, "170.50", m.Display())

	_, err = Parse("not-a-number")
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Parse("1.005")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestArithmeticIsExact(t *testing.T) {
	a := MustParse("0.10")
	b := MustParse("0.20")
	require.Equal(t, 0, a.Add(b).Cmp(MustParse("0.30")))

	total := MustParse("170.00")
	paid := MustParse("50.00")
	require.Equal(t, "120.00", total.Sub(paid).Display())
}

func TestFloorZero(t *testing.T) {
	require.True(t, MustParse("10.00").Sub(MustParse("25.00")).FloorZero().IsZero())
	m := MustParse("25.00").Sub(MustParse("10.00")).FloorZero()
	require.Equal(t, "15.00", m.Display())
}

func TestWithTolerance(t *testing.T) {
	total := MustParse("1000.00")
	cap := total.WithTolerance("0.05")
	require.Equal(t, 0, cap.Cmp(MustParse("1050.00")))

	// A payment sum of exactly the cap passes, one cent more does not.
	require.False(t, MustParse("1050.00").GreaterThan(cap))
	require.True(t, MustParse("1050.01").GreaterThan(cap))
}

func TestDisplayRoundsHalfUpOnlyAtRender(t *testing.T) {
	qty := New(3, 0)
	unit := MustParse("33.33")
	line := unit.MulInt(3)
	require.Equal(t, "99.99", line.Display())
	_ = qty
}

func TestSum(t *testing.T) {
	total := Sum(MustParse("50.00"), MustParse("100.00"), MustParse("20.00"))
	require.Equal(t, "170.00", total.Display())
}

func TestFormatGroupsDigits(t *testing.T) {
	p := message.NewPrinter(language.English)
	require.Equal(t, "1,234,567.89", MustParse("1234567.89").Format(p))
	require.Equal(t, "0.05", MustParse("0.05").Format(p))
}

func TestScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("170.50"))
	require.Equal(t, "170.50", m.Display())

	require.NoError(t, m.Scan([]byte("0.01")))
	require.True(t, m.IsPositive())

	require.NoError(t, m.Scan(nil))
	require.True(t, m.IsZero())
}
