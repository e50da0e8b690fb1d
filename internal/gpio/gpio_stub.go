//go:build !linux

package gpio

import "fmt"

func OpenLine(chip string, offset, initial int) (Line, error) {
	return nil, fmt.Errorf("gpio: unsupported on this platform")
}

func OpenLines(chip string, offsets []int) (Lines, error) {
	return nil, fmt.Errorf("gpio: unsupported on this platform")
}
