package sim

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"orient/internal/compass"
	"orient/internal/device"
	"orient/internal/geo"
)

// Turntable is a platform on a motor with a magnetometer riding on it. It
// implements device.Magnetometer and device.Actuator.
//
// Offset is the bearing of magnetic north from the platform's forward axis, as
// the sensor reports it. Turning CCW lowers it and CW raises it.
type Turntable struct {
	clk     clock.Clock
	rate    float64 // deg/s
	fieldNT float64
	vertNT  int32

	mu      sync.Mutex
	offset  float64
	last    time.Time
	enabled bool
	dir     device.Direction
}

type TurntableConfig struct {
	InitialOffsetDeg float64
	TurnRateDegPerS  float64
	FieldNT          float64
}

// NewTurntable returns a stopped turntable. Zero fields get defaults of 45
// deg/s and a 30000 nT horizontal field.
func NewTurntable(clk clock.Clock, cfg TurntableConfig) *Turntable {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.TurnRateDegPerS <= 0 {
		cfg.TurnRateDegPerS = 45
	}
	if cfg.FieldNT <= 0 {
		cfg.FieldNT = 30000
	}
	return &Turntable{
		clk:     clk,
		rate:    cfg.TurnRateDegPerS,
		fieldNT: cfg.FieldNT,
		vertNT:  int32(math.Round(-cfg.FieldNT * 1.4)),
		offset:  geo.Normalize(cfg.InitialOffsetDeg),
		last:    clk.Now(),
		dir:     device.CW,
	}
}

func (t *Turntable) advanceLocked() {
	now := t.clk.Now()
	dt := now.Sub(t.last).Seconds()
	t.last = now
	if !t.enabled || dt <= 0 {
		return
	}
	delta := t.rate * dt
	if t.dir == device.CCW {
		delta = -delta
	}
	t.offset = geo.Normalize(t.offset + delta)
}

// Offset returns the current north offset in degrees.
func (t *Turntable) Offset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceLocked()
	return t.offset
}

func (t *Turntable) ReadMagneticVector() (device.Sample, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceLocked()
	r := t.offset * math.Pi / 180
	return device.Sample{
		X: int32(math.Round(-t.fieldNT * math.Sin(r))),
		Y: int32(math.Round(t.fieldNT * math.Cos(r))),
		Z: t.vertNT,
	}, nil
}

func (t *Turntable) Enable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceLocked()
	t.enabled = true
	return nil
}

func (t *Turntable) Disable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceLocked()
	t.enabled = false
	return nil
}

func (t *Turntable) SetDirection(d device.Direction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceLocked()
	t.dir = d
	return nil
}

func (t *Turntable) ToggleDirection() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceLocked()
	t.dir = t.dir.Opposite()
	return nil
}

// Moving reports whether the motor is enabled, and its direction.
func (t *Turntable) Moving() (bool, device.Direction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled, t.dir
}

// Lights records what the light ring shows. It implements device.LightBank.
type Lights struct {
	mu      sync.Mutex
	lit     compass.Sector
	on      bool
	changes int
	history []compass.Sector
}

const historyLen = 64

func (l *Lights) SetSector(s compass.Sector) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.on || l.lit != s {
		l.changes++
	}
	l.lit, l.on = s, true
	if len(l.history) == historyLen {
		copy(l.history, l.history[1:])
		l.history = l.history[:historyLen-1]
	}
	l.history = append(l.history, s)
	return nil
}

func (l *Lights) ClearAll() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on {
		l.changes++
	}
	l.on = false
	return nil
}

// Lit returns the lit sector, if any.
func (l *Lights) Lit() (compass.Sector, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lit, l.on
}

// Changes counts visible transitions.
func (l *Lights) Changes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.changes
}

// History returns the most recent SetSector calls, oldest first.
func (l *Lights) History() []compass.Sector {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]compass.Sector(nil), l.history...)
}
