package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fopsim/internal/grid"
	"fopsim/internal/simulation"
)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	clock := clockwork.NewFakeClockAt(time.Date(2023, time.June, 10, 14, 0, 0, 0, time.UTC))
	st.SetClock(clock)
	return st, clock
}

func TestStore_RunLifecycle(t *testing.T) {
	st, clock := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, RunSpec{
		Variant:  simulation.Lightning,
		Seed:     42,
		Year:     2023,
		StartDay: 150,
		EndDay:   155,
		Params:   map[string]any{"replications": 1000, "lookback": "auto"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.NotEmpty(t, run.ID)

	clock.Advance(5 * time.Minute)
	sum := simulation.Summary{Seed: 42, Emitted: 5, Failed: []simulation.DayFailure{{Day: 152, Err: errors.New("gap")}}}
	require.NoError(t, st.FinishRun(ctx, run.ID, sum))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, 5, got.Emitted)
	assert.Equal(t, 1, got.Failed)
	assert.Contains(t, got.Error, "day 152")
	assert.Equal(t, "auto", got.Params["lookback"])
	assert.Equal(t, 1000.0, got.Params["replications"])
	assert.True(t, got.CreatedAt.Equal(run.CreatedAt), "created_at %v != %v", got.CreatedAt, run.CreatedAt)
	assert.Equal(t, 5*time.Minute, got.UpdatedAt.Sub(got.CreatedAt))
}

func TestStore_FailAndCancel(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, RunSpec{Variant: simulation.Human, Year: 2023, StartDay: 150, EndDay: 150})
	require.NoError(t, err)
	b, err := st.CreateRun(ctx, RunSpec{Variant: simulation.Human, Year: 2023, StartDay: 151, EndDay: 151})
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, a.ID, simulation.Summary{}, errors.New("input data error")))
	require.NoError(t, st.FailRun(ctx, b.ID, simulation.Summary{}, context.Canceled))

	got, err := st.GetRun(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "input data error", got.Error)

	got, err = st.GetRun(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, got.Status)

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStore_NotFound(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.FinishRun(ctx, "missing", simulation.Summary{}), ErrNotFound)
}

func TestStore_DayStates(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.MarkDay(ctx, grid.DateOf(2023, 160), simulation.Lightning))
	require.NoError(t, st.MarkDay(ctx, grid.DateOf(2023, 160), simulation.Human))
	require.NoError(t, st.WriteDay(ctx, &simulation.DayOutput{Variant: simulation.Human, Date: grid.DateOf(2023, 165)}))
	require.NoError(t, st.MarkDay(ctx, grid.DateOf(2022, 200), simulation.Lightning))

	states, err := st.DayStates(ctx, 2023)
	require.NoError(t, err)
	assert.Equal(t, []DayState{
		{Date: "2023-06-09", LightningCompleted: true, HumanCompleted: true, ForecastedOrObserved: Observed},
		{Date: "2023-06-14", HumanCompleted: true, ForecastedOrObserved: Forecasted},
	}, states)

	assert.Error(t, st.MarkDay(ctx, grid.DateOf(2023, 160), simulation.Variant("wind")))
}

func TestStore_Ping(t *testing.T) {
	st, _ := newTestStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}
