// Package control decides whether the platform needs to turn, and which way.
package control

import (
	"math"

	"orient/internal/device"
)

// AccuracyThreshold is the drift, in degrees, tolerated before the drive is
// engaged. It keeps noisy readings from jerking the platform around.
const AccuracyThreshold = 30.0

// Command is the outcome of one control cycle.
type Command struct {
	Enable    bool
	Direction device.Direction
}

// Decide returns the drive command for bearing. Within threshold the drive is
// disabled. Otherwise it turns CCW for a positive bearing and CW for anything
// else; the mapping follows how the drive is mounted.
func Decide(bearing, threshold float64) Command {
	if math.Abs(bearing) <= threshold {
		return Command{Enable: false, Direction: device.CW}
	}
	if bearing > 0 {
		return Command{Enable: true, Direction: device.CCW}
	}
	return Command{Enable: true, Direction: device.CW}
}
