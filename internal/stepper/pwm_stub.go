//go:build !linux

package stepper

import "fmt"

func openPulse(chip string, channel int) (pulseDriver, error) {
	return nil, fmt.Errorf("stepper: pwm unsupported on this platform")
}
