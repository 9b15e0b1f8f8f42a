package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/gridwager/internal/domain"
)

func attempt(nonce int64, outcome domain.AttemptOutcome, amount string, at time.Time) domain.BetAttempt {
	return domain.BetAttempt{
		Nonce:       nonce,
		Asset:       "BTC",
		GridID:      "BTC_1_0",
		Amount:      decimal.RequireFromString(amount),
		BalanceType: domain.BalanceTest,
		Strategy:    "balanced",
		Outcome:     outcome,
		Score:       64,
		Tier:        "Silver",
		Commentary:  "support holding near the mid band, volatility compressing",
		CreatedAt:   at,
	}
}

func TestRecordAndList(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "data", "journal.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	a1 := attempt(100, domain.OutcomeConflict, "10", base)
	a1.Error = "invalid nonce (server expects nonce 42)"
	require.NoError(t, s.Record(ctx, a1))

	a2 := attempt(43, domain.OutcomeAccepted, "10", base.Add(time.Second))
	a2.OrderID = "ord-43"
	require.NoError(t, s.Record(ctx, a2))

	got, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(43), got[0].Nonce, "newest first")
	assert.Equal(t, "ord-43", got[0].OrderID)
	assert.Empty(t, got[0].Error)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(time.Second)))

	assert.Equal(t, domain.OutcomeConflict, got[1].Outcome)
	assert.Contains(t, got[1].Error, "expects nonce 42")
	assert.Empty(t, got[1].OrderID)
	assert.True(t, got[1].Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, domain.BalanceTest, got[1].BalanceType)
}

func TestListOrdersSubSecondTimestamps(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Record(ctx, attempt(1, domain.OutcomeAccepted, "1", base)))
	require.NoError(t, s.Record(ctx, attempt(2, domain.OutcomeAccepted, "1", base.Add(100*time.Millisecond))))

	got, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Nonce)
}

func TestStats(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, attempt(1, domain.OutcomeAccepted, "2.5", day.Add(-time.Hour))))
	require.NoError(t, s.Record(ctx, attempt(2, domain.OutcomeAccepted, "2.5", day.Add(time.Hour))))
	require.NoError(t, s.Record(ctx, attempt(3, domain.OutcomeAccepted, "4", day.Add(2*time.Hour))))
	require.NoError(t, s.Record(ctx, attempt(4, domain.OutcomeRejected, "100", day.Add(3*time.Hour))))

	st, err := s.Stats(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, st.ByOutcome[domain.OutcomeAccepted])
	assert.Equal(t, 1, st.ByOutcome[domain.OutcomeRejected])
	assert.Equal(t, "6.5", st.AcceptedTotal.String())

	all, err := s.Stats(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.ByOutcome[domain.OutcomeAccepted])
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
