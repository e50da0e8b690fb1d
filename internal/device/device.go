// Package device defines the narrow hardware capabilities the orientation
// loop depends on and the Board that owns them.
//
// Drivers live in their own packages (sensors/lsm303agr, leds, stepper, sim);
// this package only knows the interfaces.
package device

import (
	"fmt"

	"orient/internal/compass"
)

// Sample is a raw magnetic field vector in nanotesla. Z is carried but unused.
type Sample struct {
	X, Y, Z int32
}

// Direction is the rotation sense of the actuator shaft.
type Direction int

const (
	CW Direction = iota
	CCW
)

func (d Direction) String() string {
	switch d {
	case CW:
		return "CW"
	case CCW:
		return "CCW"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == CW {
		return CCW
	}
	return CW
}

// Magnetometer reads a 3-axis field vector.
type Magnetometer interface {
	ReadMagneticVector() (Sample, error)
}

// LightBank drives the ring of eight indicator lights.
type LightBank interface {
	// SetSector turns on the light owned by s and turns off the other seven.
	SetSector(s compass.Sector) error
	ClearAll() error
}

// Actuator is the rotational drive.
type Actuator interface {
	Enable() error
	Disable() error
	SetDirection(d Direction) error
	ToggleDirection() error
}
