//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// OpenLine requests offset on chip (e.g. "gpiochip0") as an output driven to
// initial.
func OpenLine(chip string, offset, initial int) (Line, error) {
	if offset < 0 {
		return nil, fmt.Errorf("gpio: invalid line offset %d", offset)
	}
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(initial), gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("gpio: request %s:%d: %w", chip, offset, err)
	}
	return l, nil
}

// OpenLines requests offsets on chip as outputs, all driven low.
func OpenLines(chip string, offsets []int) (Lines, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("gpio: no line offsets")
	}
	for _, o := range offsets {
		if o < 0 {
			return nil, fmt.Errorf("gpio: invalid line offset %d", o)
		}
	}
	ls, err := gpiocdev.RequestLines(chip, offsets, gpiocdev.AsOutput(make([]int, len(offsets))...), gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("gpio: request %s:%v: %w", chip, offsets, err)
	}
	return ls, nil
}
