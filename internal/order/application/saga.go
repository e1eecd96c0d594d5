package application

import (
	"context"
	"fmt"
	"log/slog"
)

// step pairs a forward action with its compensation. Compensations must
// be idempotent: a saga interrupted mid-rollback may be retried.
type step struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// saga runs steps in order. On the first failure it compensates the
// steps that already completed, in reverse, and returns the original
// failure. Compensation failures are logged for reconciliation only;
// they never replace or decorate the caller's error.
type saga struct {
	log   *slog.Logger
	steps []step
}

func (s *saga) execute(ctx context.Context) error {
	done := make([]step, 0, len(s.steps))
	for _, st := range s.steps {
		if err := st.run(ctx); err != nil {
			s.log.Warn("saga step failed, compensating",
				slog.String("step", st.name),
				slog.String("error", err.Error()))
			s.rollback(ctx, done)
			return fmt.Errorf("step %s: %w", st.name, err)
		}
		done = append(done, st)
	}
	return nil
}

func (s *saga) rollback(ctx context.Context, done []step) {
	for i := len(done) - 1; i >= 0; i-- {
		st := done[i]
		if st.compensate == nil {
			continue
		}
		if err := st.compensate(ctx); err != nil {
			s.log.Error("saga compensation failed",
				slog.String("step", st.name),
				slog.String("error", err.Error()))
		}
	}
}
