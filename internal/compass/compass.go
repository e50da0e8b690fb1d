// Package compass maps a bearing onto the eight compass sectors shown by the
// indicator ring.
package compass

import (
	"errors"
	"fmt"
)

// Sector is one of the eight compass points. Values are in clockwise order
// starting at north and double as indices into per-sector tables.
type Sector int

const (
	N Sector = iota
	NE
	E
	SE
	S
	SW
	W
	NW
)

// NumSectors is the size of the ring.
const NumSectors = 8

var sectorNames = [NumSectors]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func (s Sector) String() string {
	if s < 0 || int(s) >= NumSectors {
		return fmt.Sprintf("Sector(%d)", int(s))
	}
	return sectorNames[s]
}

// Valid reports whether s names one of the eight sectors.
func (s Sector) Valid() bool {
	return s >= N && s <= NW
}

// Range is a half-open interval of degrees: Start <= b < End.
type Range struct {
	Start float64
	End   float64
}

// Contains reports whether b lies in the range.
func (r Range) Contains(b float64) bool {
	return b >= r.Start && b < r.End
}

// Span is one row of the sector table.
type Span struct {
	Sector Sector
	Range  Range
}

// Sectors partitions [-180, 180). South owns two spans because it straddles the
// seam. The table is static and must not be modified.
var Sectors = [...]Span{
	{N, Range{-22, 22}},
	{NE, Range{22, 67}},
	{E, Range{67, 112}},
	{SE, Range{112, 157}},
	{S, Range{157, 180}},
	{S, Range{-180, -157}},
	{SW, Range{-157, -112}},
	{W, Range{-112, -67}},
	{NW, Range{-67, -22}},
}

// ErrOutOfRange is returned for a bearing outside [-180, 180).
var ErrOutOfRange = errors.New("bearing out of range")

// RangeError carries the offending bearing.
type RangeError struct {
	Bearing float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("compass: reading %v is out of range", e.Bearing)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// SectorOf returns the sector whose span contains bearing. A bearing on a
// boundary belongs to the span it opens. NaN and values outside [-180, 180)
// yield a *RangeError.
func SectorOf(bearing float64) (Sector, error) {
	for _, sp := range Sectors {
		if sp.Range.Contains(bearing) {
			return sp.Sector, nil
		}
	}
	return 0, &RangeError{Bearing: bearing}
}
