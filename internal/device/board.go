package device

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"orient/internal/compass"
	"orient/internal/geo"
)

// Parts opens each capability. Compass and Stepper may be nil or fail; the
// board then runs without them. Lights are required.
type Parts struct {
	Lights  func() (LightBank, error)
	Compass func() (Magnetometer, error)
	Stepper func() (Actuator, error)
}

// Board is the single device handle shared by every task. It is not safe for
// concurrent use; callers serialize access through the runtime's lock.
type Board struct {
	logger *zap.SugaredLogger

	lights  LightBank
	compass Magnetometer
	stepper Actuator

	faults  []*InitError
	closers []io.Closer
}

// Configure brings up every part. Only a lights failure is returned; compass
// and stepper failures are recorded as faults and leave the capability absent.
func Configure(logger *zap.SugaredLogger, parts Parts) (*Board, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if parts.Lights == nil {
		return nil, fmt.Errorf("device: lights are required")
	}
	b := &Board{logger: logger}

	logger.Info("configuring lights")
	lights, err := parts.Lights()
	if err != nil {
		return nil, fmt.Errorf("device: lights init: %w", err)
	}
	b.lights = lights
	b.track(lights)

	logger.Info("configuring compass")
	if m, ok := open(b, "compass", parts.Compass); ok {
		b.compass = m
	}

	logger.Info("configuring stepper")
	if a, ok := open(b, "stepper", parts.Stepper); ok {
		b.stepper = a
	}
	return b, nil
}

func open[T any](b *Board, name string, fn func() (T, error)) (T, bool) {
	var zero T
	if fn == nil {
		b.fault(name, fmt.Errorf("not wired"))
		return zero, false
	}
	v, err := fn()
	if err != nil {
		b.fault(name, err)
		return zero, false
	}
	b.track(v)
	return v, true
}

func (b *Board) fault(name string, err error) {
	f := &InitError{Capability: name, Err: err}
	b.faults = append(b.faults, f)
	b.logger.Warnw("capability unavailable", "capability", name, "error", err)
}

func (b *Board) track(v any) {
	if c, ok := v.(io.Closer); ok {
		b.closers = append(b.closers, c)
	}
}

// Faults lists the capabilities that failed to initialize.
func (b *Board) Faults() []*InitError {
	out := make([]*InitError, len(b.faults))
	copy(out, b.faults)
	return out
}

func (b *Board) HasCompass() bool { return b.compass != nil }
func (b *Board) HasStepper() bool { return b.stepper != nil }

// MagneticVector reads the raw field vector.
func (b *Board) MagneticVector() (Sample, error) {
	if b.compass == nil {
		return Sample{}, &CapabilityError{Op: "mag_raw", Capability: "compass"}
	}
	return b.compass.ReadMagneticVector()
}

// BearingNorth samples the compass and returns the platform bearing.
func (b *Board) BearingNorth() (float64, error) {
	if b.compass == nil {
		return 0, &CapabilityError{Op: "bearing_north", Capability: "compass"}
	}
	s, err := b.compass.ReadMagneticVector()
	if err != nil {
		return 0, fmt.Errorf("bearing_north: %w", err)
	}
	return geo.BearingNorth(s.X, s.Y), nil
}

// ShowSector lights s and clears the rest of the ring.
func (b *Board) ShowSector(s compass.Sector) error {
	return b.lights.SetSector(s)
}

// ClearLights turns the whole ring off.
func (b *Board) ClearLights() error {
	return b.lights.ClearAll()
}

func (b *Board) StepperEnable() error {
	if b.stepper == nil {
		return &CapabilityError{Op: "stepper_enable", Capability: "stepper"}
	}
	return b.stepper.Enable()
}

func (b *Board) StepperDisable() error {
	if b.stepper == nil {
		return &CapabilityError{Op: "stepper_disable", Capability: "stepper"}
	}
	return b.stepper.Disable()
}

func (b *Board) StepperSetDirection(d Direction) error {
	if b.stepper == nil {
		return &CapabilityError{Op: "stepper_set_direction", Capability: "stepper"}
	}
	return b.stepper.SetDirection(d)
}

func (b *Board) StepperToggleDirection() error {
	if b.stepper == nil {
		return &CapabilityError{Op: "stepper_toggle_direction", Capability: "stepper"}
	}
	return b.stepper.ToggleDirection()
}

// Close releases every opened part in reverse order of opening.
func (b *Board) Close() error {
	var err error
	for i := len(b.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, b.closers[i].Close())
	}
	b.closers = nil
	return err
}
