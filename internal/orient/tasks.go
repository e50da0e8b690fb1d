package orient

import (
	"fmt"
	"time"

	"orient/internal/compass"
	"orient/internal/control"
	"orient/internal/device"
	"orient/internal/sched"
)

const (
	TaskUpdateBearing  = "update_bearing"
	TaskUpdateDisplay  = "update_display"
	TaskOrientate      = "orientate"
	TaskEnableStepper  = "enable_stepper"
	TaskDisableStepper = "disable_stepper"
)

const (
	PriorityHigh sched.Priority = 2
	PriorityLow  sched.Priority = 1

	// BearingPeriod and OrientPeriod are the periodic cadences; the offsets
	// delay the first release after start so readings settle before the
	// motor is commanded.
	BearingPeriod = 100 * time.Millisecond
	BearingOffset = 1 * time.Second
	OrientPeriod  = 250 * time.Millisecond
	OrientOffset  = 3 * time.Second
)

// Tasks returns the fixed task table over st.
func Tasks(st *State) []sched.Task {
	return []sched.Task{
		{
			Name:     TaskUpdateBearing,
			Priority: PriorityHigh,
			Period:   BearingPeriod,
			Offset:   BearingOffset,
			Shared:   []sched.Shared{st.Device, st.Bearing},
			Run:      st.updateBearing,
		},
		{
			Name:     TaskUpdateDisplay,
			Priority: PriorityHigh,
			Shared:   []sched.Shared{st.Device},
			Run:      st.updateDisplay,
		},
		{
			Name:     TaskOrientate,
			Priority: PriorityLow,
			Period:   OrientPeriod,
			Offset:   OrientOffset,
			Shared:   []sched.Shared{st.Bearing},
			Run:      st.orientate,
		},
		{
			Name:     TaskEnableStepper,
			Priority: PriorityLow,
			Shared:   []sched.Shared{st.Device, st.Enabled},
			Run:      st.enableStepper,
		},
		{
			Name:     TaskDisableStepper,
			Priority: PriorityLow,
			Shared:   []sched.Shared{st.Device, st.Enabled},
			Run:      st.disableStepper,
		},
	}
}

// updateBearing samples the compass, publishes the bearing and queues a
// display refresh.
func (st *State) updateBearing(cx *sched.Context, _ any) error {
	return st.Device.Lock(cx, func(b **device.Board) error {
		bearing, err := (*b).BearingNorth()
		if err != nil {
			return err
		}
		if err := st.Bearing.Lock(cx, func(v *float64) error {
			*v = bearing
			return nil
		}); err != nil {
			return err
		}
		return cx.Spawn(TaskUpdateDisplay, bearing)
	})
}

func (st *State) updateDisplay(cx *sched.Context, msg any) error {
	bearing, ok := msg.(float64)
	if !ok {
		return fmt.Errorf("orient: %s: unexpected argument %T", TaskUpdateDisplay, msg)
	}
	s, err := compass.SectorOf(bearing)
	if err != nil {
		return err
	}
	return st.Device.Lock(cx, func(b **device.Board) error {
		return (*b).ShowSector(s)
	})
}

func (st *State) orientate(cx *sched.Context, _ any) error {
	var bearing float64
	if err := st.Bearing.Lock(cx, func(v *float64) error {
		bearing = *v
		return nil
	}); err != nil {
		return err
	}

	cmd := control.Decide(bearing, control.AccuracyThreshold)
	if cmd.Enable {
		return cx.Spawn(TaskEnableStepper, cmd.Direction)
	}
	return cx.Spawn(TaskDisableStepper, nil)
}

func (st *State) enableStepper(cx *sched.Context, msg any) error {
	dir, ok := msg.(device.Direction)
	if !ok {
		return fmt.Errorf("orient: %s: unexpected argument %T", TaskEnableStepper, msg)
	}
	return st.Device.Lock(cx, func(b **device.Board) error {
		if err := (*b).StepperSetDirection(dir); err != nil {
			return err
		}
		if err := (*b).StepperEnable(); err != nil {
			return err
		}
		return st.Enabled.Lock(cx, func(e *bool) error {
			*e = true
			return nil
		})
	})
}

func (st *State) disableStepper(cx *sched.Context, _ any) error {
	return st.Device.Lock(cx, func(b **device.Board) error {
		if err := (*b).StepperDisable(); err != nil {
			return err
		}
		return st.Enabled.Lock(cx, func(e *bool) error {
			*e = false
			return nil
		})
	})
}
