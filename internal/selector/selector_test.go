package selector

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/pkg/sdk/apierrors"
)

func grid(id, lo, hi, odds, prob string) domain.Grid {
	return domain.Grid{GridID: id, LowerBound: lo, UpperBound: hi, Odds: odds, ImpliedProbability: prob}
}

func sample() []domain.Grid {
	return []domain.Grid{
		grid("BTC_1_-2", "94000", "94500", "8.5", "0.10"),
		grid("BTC_1_-1", "94500", "95000", "3.1", "0.30"),
		grid("BTC_1_0", "95000", "95500", "1.9", "0.48"),
		grid("BTC_1_1", "95500", "96000", "2.2", "0.41"),
		grid("BTC_1_2", "96000", "96500", "6.0", "0.12"),
	}
}

func TestBuiltins(t *testing.T) {
	cases := []struct {
		strategy string
		ref      float64
		want     string
	}{
		{Balanced, 0, "BTC_1_0"},      // |0.48-0.5| = 0.02
		{Underdog, 0, "BTC_1_-2"},     // odds 8.5
		{Favorite, 95900, "BTC_1_1"},  // mid 95750
		{Favorite, 94100, "BTC_1_-2"}, // mid 94250
		{Value, 0, "BTC_1_-1"},        // 3.1*0.30 = 0.93
	}
	for _, tc := range cases {
		t.Run(tc.strategy, func(t *testing.T) {
			got, err := Select(sample(), tc.ref, Named(tc.strategy))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.GridID)
		})
	}
}

func TestBalancedIsMinimal(t *testing.T) {
	grids := sample()
	got, err := Select(grids, 0, Named(Balanced))
	require.NoError(t, err)
	d := func(g domain.Grid) float64 {
		p, _ := strconv.ParseFloat(g.ImpliedProbability, 64)
		return math.Abs(p - 0.5)
	}
	for _, g := range grids {
		assert.LessOrEqual(t, d(got), d(g), "balanced picked %s but %s is closer to 0.5", got.GridID, g.GridID)
	}
}

func TestTiesKeepFirstEncountered(t *testing.T) {
	a := grid("A_1_0", "1", "3", "4.0", "0.25")
	b := grid("B_1_0", "1", "3", "4.0", "0.25")
	c := grid("C_1_0", "0", "1", "1.0", "0.50")

	for _, name := range []string{Underdog, Value} {
		got, err := Select([]domain.Grid{a, b, c}, 0, Named(name))
		require.NoError(t, err)
		assert.Equal(t, "A_1_0", got.GridID, name)

		got, err = Select([]domain.Grid{c, b, a}, 0, Named(name))
		require.NoError(t, err)
		assert.Equal(t, "B_1_0", got.GridID, name)
	}

	// favorite：两个中点到参考价距离相等
	lo := grid("LO", "90", "100", "2", "0.5")
	hi := grid("HI", "110", "120", "2", "0.5")
	got, err := Select([]domain.Grid{lo, hi}, 105, Named(Favorite))
	require.NoError(t, err)
	assert.Equal(t, "LO", got.GridID)
	got, err = Select([]domain.Grid{hi, lo}, 105, Named(Favorite))
	require.NoError(t, err)
	assert.Equal(t, "HI", got.GridID)

	// balanced：0.25 和 0.75 距离相同
	p4 := grid("P4", "0", "1", "2", "0.25")
	p6 := grid("P6", "0", "1", "2", "0.75")
	got, err = Select([]domain.Grid{p6, p4}, 0, Named(Balanced))
	require.NoError(t, err)
	assert.Equal(t, "P6", got.GridID)
}

func TestReorderInvariance(t *testing.T) {
	grids := sample()
	reversed := make([]domain.Grid, len(grids))
	for i, g := range grids {
		reversed[len(grids)-1-i] = g
	}
	for _, name := range []string{Underdog, Value} {
		a, err := Select(grids, 0, Named(name))
		require.NoError(t, err)
		b, err := Select(reversed, 0, Named(name))
		require.NoError(t, err)
		assert.Equal(t, a.GridID, b.GridID, name)
	}
}

func TestUnparsableNeverWins(t *testing.T) {
	grids := []domain.Grid{
		grid("OK", "0", "1", "2.0", "0.5"),
		grid("BAD", "0", "1", "n/a", "x"),
	}
	got, err := Select(grids, 0, Named(Underdog))
	require.NoError(t, err)
	assert.Equal(t, "OK", got.GridID)
}

func TestEmptyInput(t *testing.T) {
	_, err := Select(nil, 0, Named(Balanced))
	require.Error(t, err)
	assert.True(t, IsEmptyInput(err))
	assert.True(t, apierrors.IsValidation(err))

	// 空输入优先于未知策略
	_, err = Select(nil, 0, Named("nope"))
	assert.True(t, IsEmptyInput(err))
}

func TestUnknownStrategy(t *testing.T) {
	_, err := Select(sample(), 0, Named("moonshot"))
	require.Error(t, err)

	var us *UnknownStrategyError
	require.True(t, errors.As(err, &us))
	assert.Equal(t, "moonshot", us.Name)
	assert.Equal(t, []string{Balanced, Favorite, Underdog, Value}, us.Valid)
	assert.Contains(t, err.Error(), "balanced, favorite, underdog, value")
	assert.True(t, apierrors.IsValidation(err))
}

func TestStrategyNamesAreExact(t *testing.T) {
	for _, name := range []string{"BALANCED", "Balanced", " balanced", "value "} {
		_, err := Select(sample(), 0, Named(name))
		var us *UnknownStrategyError
		require.True(t, errors.As(err, &us), "name %q", name)
		assert.Equal(t, name, us.Name)
	}
}

func TestCustomStrategyResultUnchecked(t *testing.T) {
	calls := 0
	outsider := grid("NOT_IN_SET", "0", "0", "0", "0")
	s := Custom(func(grids []domain.Grid, ref float64) domain.Grid {
		calls++
		assert.Equal(t, 123.0, ref)
		return outsider
	})
	got, err := Select(sample(), 123, s)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "NOT_IN_SET", got.GridID)
	assert.True(t, s.IsCustom())
	assert.Equal(t, "custom", s.Name())
}

func TestNamedNormalizes(t *testing.T) {
	got, err := Select(sample(), 0, Named("  UnderDog "))
	require.NoError(t, err)
	assert.Equal(t, "BTC_1_-2", got.GridID)
}
