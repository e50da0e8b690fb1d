package stepper

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"orient/internal/device"
	"orient/internal/gpio"
)

type fakePulse struct {
	period, duty uint64
	enabled      bool
	closed       bool
	enableErr    error
}

func (f *fakePulse) SetPeriod(ns uint64) error { f.period = ns; return nil }
func (f *fakePulse) SetDuty(ns uint64) error   { f.duty = ns; return nil }
func (f *fakePulse) SetEnabled(on bool) error {
	if on && f.enableErr != nil {
		return f.enableErr
	}
	f.enabled = on
	return nil
}
func (f *fakePulse) Close() error { f.closed = true; return nil }

type fakeLine struct {
	values []int
	closed bool
}

func (f *fakeLine) SetValue(v int) error { f.values = append(f.values, v); return nil }
func (f *fakeLine) Close() error         { f.closed = true; return nil }

func (f *fakeLine) last() int { return f.values[len(f.values)-1] }

type rig struct {
	pulse *fakePulse
	lines map[int]*fakeLine
}

func install(t *testing.T) *rig {
	t.Helper()
	r := &rig{pulse: &fakePulse{}, lines: map[int]*fakeLine{}}
	oldPulse, oldLine := openPulseFn, openLineFn
	t.Cleanup(func() { openPulseFn, openLineFn = oldPulse, oldLine })
	openPulseFn = func(string, int) (pulseDriver, error) { return r.pulse, nil }
	openLineFn = func(chip string, offset, initial int) (gpio.Line, error) {
		l := &fakeLine{values: []int{initial}}
		r.lines[offset] = l
		return l, nil
	}
	return r
}

func TestOpen_ConfiguresPulseTrain(t *testing.T) {
	r := install(t)
	s, err := Open(Config{DirectionChip: "gpiochip0", DirectionLine: 9, EnableLine: -1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.pulse.period != 76923 {
		t.Fatalf("period=%d want 76923 (13kHz)", r.pulse.period)
	}
	if r.pulse.duty != r.pulse.period/2 {
		t.Fatalf("duty=%d want half of %d", r.pulse.duty, r.pulse.period)
	}
	if r.pulse.enabled || s.Enabled() {
		t.Fatalf("stepper should start disabled")
	}
	if s.Direction() != device.CW || r.lines[9].last() != 1 {
		t.Fatalf("stepper should start CW with direction line high")
	}
	if len(r.lines) != 1 {
		t.Fatalf("lines=%d want 1 when enable line is unset", len(r.lines))
	}
}

func TestEnableDisable_DrivesEnableLine(t *testing.T) {
	r := install(t)
	s, err := Open(Config{DirectionChip: "gpiochip0", DirectionLine: 9, EnableLine: 6})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !r.pulse.enabled || r.lines[6].last() != 1 || !s.Enabled() {
		t.Fatalf("after Enable: pulse=%v en=%v", r.pulse.enabled, r.lines[6].values)
	}
	if err := s.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if r.pulse.enabled || r.lines[6].last() != 0 || s.Enabled() {
		t.Fatalf("after Disable: pulse=%v en=%v", r.pulse.enabled, r.lines[6].values)
	}
}

func TestDirection_SetAndToggle(t *testing.T) {
	r := install(t)
	s, err := Open(Config{DirectionChip: "gpiochip0", DirectionLine: 9, EnableLine: -1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	steps := []struct {
		op   func() error
		want device.Direction
		line int
	}{
		{func() error { return s.SetDirection(device.CCW) }, device.CCW, 0},
		{s.ToggleDirection, device.CW, 1},
		{s.ToggleDirection, device.CCW, 0},
		{func() error { return s.SetDirection(device.CW) }, device.CW, 1},
	}
	for i, st := range steps {
		if err := st.op(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if s.Direction() != st.want || r.lines[9].last() != st.line {
			t.Fatalf("step %d: dir=%v line=%d want %v/%d", i, s.Direction(), r.lines[9].last(), st.want, st.line)
		}
	}
}

func TestEnable_PropagatesError(t *testing.T) {
	r := install(t)
	r.pulse.enableErr = errors.New("EBUSY")
	s, err := Open(Config{DirectionChip: "gpiochip0", DirectionLine: 9, EnableLine: -1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Enable(); !errors.Is(err, r.pulse.enableErr) {
		t.Fatalf("err=%v want EBUSY", err)
	}
	if s.Enabled() {
		t.Fatalf("Enabled after failed enable")
	}
}

func TestOpen_ReleasesOnFailure(t *testing.T) {
	r := install(t)
	openLineFn = func(chip string, offset, initial int) (gpio.Line, error) {
		return nil, fmt.Errorf("line %d busy", offset)
	}
	_, err := Open(Config{DirectionChip: "gpiochip0", DirectionLine: 9, EnableLine: -1})
	if err == nil || !strings.Contains(err.Error(), "busy") {
		t.Fatalf("err=%v want busy", err)
	}
	if !r.pulse.closed {
		t.Fatalf("pwm not released after failed open")
	}
}

func TestOpen_RequiresDirectionChip(t *testing.T) {
	install(t)
	if _, err := Open(Config{EnableLine: -1}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestClose_StopsAndReleases(t *testing.T) {
	r := install(t)
	s, err := Open(Config{DirectionChip: "gpiochip0", DirectionLine: 9, EnableLine: 6})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = s.Enable()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if r.pulse.enabled || !r.pulse.closed || !r.lines[9].closed || !r.lines[6].closed {
		t.Fatalf("close left hardware claimed")
	}
	if err := s.Enable(); !errors.Is(err, errClosed) {
		t.Fatalf("Enable after close err=%v want errClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
