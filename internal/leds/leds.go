// Package leds drives the eight compass lights as one GPIO line group.
package leds

import (
	"fmt"
	"sync"

	"orient/internal/compass"
	"orient/internal/gpio"
)

// Names are the board labels of the lights, indexed by compass.Sector.
var Names = [compass.NumSectors]string{"LD3", "LD5", "LD7", "LD9", "LD10", "LD8", "LD6", "LD4"}

var openLinesFn = gpio.OpenLines

// Ring implements device.LightBank.
type Ring struct {
	mu    sync.Mutex
	lines gpio.Lines
	vals  []int
	on    compass.Sector
	lit   bool
}

// Open requests the lines at offsets on chip. offsets[i] drives the light for
// compass.Sector(i).
func Open(chip string, offsets []int) (*Ring, error) {
	if len(offsets) != compass.NumSectors {
		return nil, fmt.Errorf("leds: need %d line offsets, got %d", compass.NumSectors, len(offsets))
	}
	seen := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		if seen[o] {
			return nil, fmt.Errorf("leds: duplicate line offset %d", o)
		}
		seen[o] = true
	}
	lines, err := openLinesFn(chip, offsets)
	if err != nil {
		return nil, fmt.Errorf("leds: %w", err)
	}
	return &Ring{lines: lines, vals: make([]int, compass.NumSectors)}, nil
}

// SetSector lights exactly one light.
func (r *Ring) SetSector(s compass.Sector) error {
	if !s.Valid() {
		return fmt.Errorf("leds: invalid sector %d", int(s))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.vals {
		r.vals[i] = 0
	}
	r.vals[s] = 1
	if err := r.lines.SetValues(r.vals); err != nil {
		return fmt.Errorf("leds: set %s: %w", Names[s], err)
	}
	r.on, r.lit = s, true
	return nil
}

func (r *Ring) ClearAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.vals {
		r.vals[i] = 0
	}
	if err := r.lines.SetValues(r.vals); err != nil {
		return fmt.Errorf("leds: clear: %w", err)
	}
	r.lit = false
	return nil
}

// Lit returns the lit sector, if any.
func (r *Ring) Lit() (compass.Sector, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on, r.lit
}

// Close turns every light off and releases the lines.
func (r *Ring) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lines == nil {
		return nil
	}
	for i := range r.vals {
		r.vals[i] = 0
	}
	_ = r.lines.SetValues(r.vals)
	err := r.lines.Close()
	r.lines = nil
	r.lit = false
	return err
}
