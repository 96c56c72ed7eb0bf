package cart

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-gateway/internal/money"
)

func line(id string, price money.Amount) Line {
	return Line{ID: id, Name: "item " + id, UnitPrice: price}
}

func TestAddMergesById(t *testing.T) {
	c := Cart{}.Add(line("a", 45000), 2)
	c = c.Add(line("a", 45000), 1)
	require.Len(t, c.Lines, 1)
	require.Equal(t, 3, c.Lines[0].Qty)
}

func TestAddPreservesInsertionOrder(t *testing.T) {
	c := Cart{}.Add(line("b", 100), 1).Add(line("a", 200), 1).Add(line("c", 300), 1)
	require.Equal(t, []string{"b", "a", "c"}, []string{c.Lines[0].ID, c.Lines[1].ID, c.Lines[2].ID})
}

func TestTotalScenarioD(t *testing.T) {
	// items [{price:450.00,qty:2},{price:550.00,qty:1}] -> total 1450.00
	c := Cart{}.Add(line("a", 45000), 2).Add(line("b", 55000), 1)
	require.Equal(t, money.Amount(145000), c.Total())
	require.Equal(t, "1450.00", c.Total().String())
}

func TestTotalIndependentOfInsertionOrder(t *testing.T) {
	a := Cart{}.Add(line("x", 1999), 3).Add(line("y", 250), 7)
	b := Cart{}.Add(line("y", 250), 7).Add(line("x", 1999), 3)
	require.Equal(t, a.Total(), b.Total())
}

func TestEmptyCartTotal(t *testing.T) {
	require.Equal(t, money.Amount(0), Cart{}.Total())
	require.True(t, Cart{}.Empty())
}

func TestSetQtyZeroEqualsRemove(t *testing.T) {
	base := Cart{}.Add(line("a", 100), 2).Add(line("b", 200), 1)
	viaSet := base.SetQty("a", 0)
	viaRemove := base.Remove("a")
	require.Equal(t, viaRemove, viaSet)
	require.Len(t, viaSet.Lines, 1)
	require.Equal(t, "b", viaSet.Lines[0].ID)
}

func TestMutationsDoNotAliasOriginal(t *testing.T) {
	base := Cart{}.Add(line("a", 100), 2)
	_ = base.SetQty("a", 9)
	require.Equal(t, 2, base.Lines[0].Qty)

	_ = base.Add(line("a", 100), 5)
	require.Equal(t, 2, base.Lines[0].Qty)
}

func TestClear(t *testing.T) {
	c := Cart{}.Add(line("a", 100), 1).Clear()
	require.True(t, c.Empty())
}

func TestCoerceQty(t *testing.T) {
	q, warned, err := CoerceQty(3)
	require.NoError(t, err)
	require.Equal(t, 3, q)
	require.False(t, warned)

	q, warned, err = CoerceQty(2.7)
	require.NoError(t, err)
	require.Equal(t, 2, q)
	require.True(t, warned)

	q, warned, err = CoerceQty(-1.5)
	require.NoError(t, err)
	require.Equal(t, -1, q)
	require.True(t, warned)
}

func TestCoerceQtyRejectsNonFinite(t *testing.T) {
	for _, raw := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, _, err := CoerceQty(raw)
		require.ErrorIs(t, err, money.ErrInvalidAmount, "CoerceQty(%v)", raw)
	}
}
