package orient

import (
	"orient/internal/device"
	"orient/internal/sched"
)

// Resource ranks. Nested locks must be taken in increasing rank.
const (
	rankDevice = iota + 1
	rankBearing
	rankEnabled
)

// State is the shared orientation state. Every field is reachable only through
// its lock.
type State struct {
	Device  *sched.Resource[*device.Board]
	Bearing *sched.Resource[float64]
	Enabled *sched.Resource[bool]
}

// NewState wraps board with a zero bearing and the actuator recorded as
// disabled.
func NewState(board *device.Board) *State {
	return &State{
		Device:  sched.NewResource("device", rankDevice, board),
		Bearing: sched.NewResource("bearing", rankBearing, 0.0),
		Enabled: sched.NewResource("actuator_enabled", rankEnabled, false),
	}
}

// Snapshot reads the scalars outside the runtime. Only valid before Run or
// after it has returned.
func (s *State) Snapshot() (bearing float64, enabled bool) {
	_ = s.Bearing.Exclusive(func(v *float64) error { bearing = *v; return nil })
	_ = s.Enabled.Exclusive(func(v *bool) error { enabled = *v; return nil })
	return bearing, enabled
}
