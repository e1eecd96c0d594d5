package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaga_AllStepsSucceed(t *testing.T) {
	var order []string
	s := &saga{log: discardLogger(), steps: []step{
		{name: "a", run: func(context.Context) error { order = append(order, "a"); return nil }},
		{name: "b", run: func(context.Context) error { order = append(order, "b"); return nil }},
	}}

	require.NoError(t, s.execute(context.Background()))
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestSaga_FailureCompensatesInReverse(t *testing.T) {
	boom := errors.New("boom")
	var trace []string
	s := &saga{log: discardLogger(), steps: []step{
		{
			name:       "reserve",
			run:        func(context.Context) error { trace = append(trace, "reserve"); return nil },
			compensate: func(context.Context) error { trace = append(trace, "release"); return nil },
		},
		{
			name:       "charge",
			run:        func(context.Context) error { trace = append(trace, "charge"); return nil },
			compensate: func(context.Context) error { trace = append(trace, "refund"); return nil },
		},
		{
			name: "confirm",
			run:  func(context.Context) error { return boom },
		},
	}}

	err := s.execute(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"reserve", "charge", "refund", "release"}, trace)
}

func TestSaga_FirstStepFailureCompensatesNothing(t *testing.T) {
	boom := errors.New("boom")
	compensated := false
	s := &saga{log: discardLogger(), steps: []step{
		{
			name:       "reserve",
			run:        func(context.Context) error { return boom },
			compensate: func(context.Context) error { compensated = true; return nil },
		},
	}}

	assert.ErrorIs(t, s.execute(context.Background()), boom)
	assert.False(t, compensated)
}

func TestSaga_CompensationErrorsAreNotSurfaced(t *testing.T) {
	boom := errors.New("boom")
	rollbackErr := errors.New("rollback failed")
	compensations := 0
	s := &saga{log: discardLogger(), steps: []step{
		{
			name:       "reserve",
			run:        func(context.Context) error { return nil },
			compensate: func(context.Context) error { compensations++; return rollbackErr },
		},
		{
			name:       "charge",
			run:        func(context.Context) error { return nil },
			compensate: func(context.Context) error { compensations++; return nil },
		},
		{name: "confirm", run: func(context.Context) error { return boom }},
	}}

	err := s.execute(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, rollbackErr)
	assert.NotContains(t, err.Error(), "rollback failed")
	// A failed compensation must not stop the remaining rollbacks.
	assert.Equal(t, 2, compensations)
}
