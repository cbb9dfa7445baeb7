package goals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dco-creatives/internal/model"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name                     string
		goal, today, month, left int64
		want                     Result
	}{
		{"monthly goal reached", 10, 0, 10, 5, Result{model.OutOfStock, model.GoalMonthly}},
		{"monthly goal exceeded", 10, 3, 12, 5, Result{model.OutOfStock, model.GoalMonthly}},
		{"daily share reached", 100, 4, 60, 10, Result{model.InStock, model.GoalDaily}},
		{"daily share pending", 100, 3, 60, 10, Result{model.InStock, model.GoalMonthly}},
		{"daily share rounds up", 100, 5, 59, 10, Result{model.InStock, model.GoalDaily}},
		{"no days left", 100, 0, 10, 0, Result{model.InStock, model.GoalDaily}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.goal, tc.today, tc.month, tc.left))
		})
	}
}

func TestDaysLeft(t *testing.T) {
	loc := time.UTC
	end := time.Date(2026, 10, 31, 23, 59, 59, 999e6, loc)
	assert.Equal(t, int64(14), DaysLeft(time.Date(2026, 10, 18, 10, 0, 0, 0, loc), end))
	assert.Equal(t, int64(1), DaysLeft(time.Date(2026, 10, 31, 12, 0, 0, 0, loc), end))
}

func TestParseGoal(t *testing.T) {
	n, err := ParseGoal(" 120 ")
	require.NoError(t, err)
	assert.Equal(t, int64(120), n)

	n, err = ParseGoal("35.7")
	require.NoError(t, err)
	assert.Equal(t, int64(35), n)

	_, err = ParseGoal("abc")
	assert.Error(t, err)
	_, err = ParseGoal("")
	assert.Error(t, err)
}

type window struct {
	from, to time.Time
}

type fakeCounter struct {
	today, month int64
	err          error
	windows      []window
}

func (f *fakeCounter) CountLeads(_ context.Context, _ string, from, to time.Time) (int64, error) {
	f.windows = append(f.windows, window{from, to})
	if f.err != nil {
		return 0, f.err
	}
	if to.Sub(from) < 25*time.Hour {
		return f.today, nil
	}
	return f.month, nil
}

func TestEvaluate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	counter := &fakeCounter{today: 0, month: 10}
	e := NewEvaluator(counter, loc)
	e.now = func() time.Time { return time.Date(2026, 10, 18, 15, 0, 0, 0, loc) }

	res, err := e.Evaluate(context.Background(), "123", 10)
	require.NoError(t, err)
	assert.Equal(t, model.OutOfStock, res.Availability)

	require.Len(t, counter.windows, 2)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, loc), counter.windows[0].from)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, loc), counter.windows[1].from)
	assert.Equal(t, time.Date(2026, 10, 31, 23, 59, 59, 999e6, loc), counter.windows[1].to)
}

func TestEvaluatePropagatesCountErrors(t *testing.T) {
	e := NewEvaluator(&fakeCounter{err: errors.New("db down")}, time.UTC)
	_, err := e.Evaluate(context.Background(), "1", 10)
	assert.Error(t, err)
}
