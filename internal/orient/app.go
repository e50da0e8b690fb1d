// Package orient wires the orientation tasks onto the runtime and owns the
// fatal indicator.
package orient

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"orient/internal/compass"
	"orient/internal/device"
	"orient/internal/sched"
)

// BlinkInterval is the on and off time of the fatal indicator.
const BlinkInterval = 100 * time.Millisecond

// FatalSector is the light that blinks on a fatal error.
const FatalSector = compass.N

type App struct {
	clk    clock.Clock
	logger *zap.SugaredLogger
	state  *State
	rt     *sched.Runtime
}

// New builds the runtime over board. board must stay open until Run returns.
func New(clk clock.Clock, logger *zap.SugaredLogger, board *device.Board) (*App, error) {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if board == nil {
		return nil, errors.New("orient: board is nil")
	}
	st := NewState(board)
	rt, err := sched.New(clk, logger.Named("sched"), Tasks(st))
	if err != nil {
		return nil, err
	}
	return &App{clk: clk, logger: logger, state: st, rt: rt}, nil
}

func (a *App) State() *State { return a.state }

func (a *App) Stats() []sched.TaskStats { return a.rt.Stats() }

// Run drives the orientation loop until ctx is done. If the runtime halts, Run
// reports the fault, blinks the indicator until ctx is done and returns the
// halt error.
func (a *App) Run(ctx context.Context) error {
	err := a.rt.Run(ctx)
	if err == nil {
		return nil
	}
	a.Fatal(ctx, err)
	return err
}

// Fatal is the terminal state: log the cause, then blink FatalSector with
// every other light off until ctx is done.
func (a *App) Fatal(ctx context.Context, cause error) {
	a.rt.Halt(cause)
	a.logger.Errorw("fatal error, orientation halted", "error", cause, "tasks", statsFields(a.rt.Stats()))

	blink(ctx, a.clk, a.logger, a.state.Device)
}

func statsFields(stats []sched.TaskStats) map[string]any {
	out := make(map[string]any, len(stats))
	for _, s := range stats {
		out[s.Name] = map[string]any{"runs": s.Runs, "pending": s.Pending}
	}
	return out
}

func blink(ctx context.Context, clk clock.Clock, logger *zap.SugaredLogger, dev *sched.Resource[*device.Board]) {
	set := func(on bool) {
		err := dev.Exclusive(func(b **device.Board) error {
			if on {
				return (*b).ShowSector(FatalSector)
			}
			return (*b).ClearLights()
		})
		if err != nil {
			logger.Debugw("fatal indicator write failed", "error", err)
		}
	}

	on := true
	set(on)
	t := clk.Ticker(BlinkInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			on = !on
			set(on)
		}
	}
}
