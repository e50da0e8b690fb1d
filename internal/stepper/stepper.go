// Package stepper drives a step/direction motor controller: a hardware PWM
// channel supplies the step pulses and a GPIO line selects the direction.
package stepper

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"orient/internal/device"
	"orient/internal/gpio"
)

const (
	// DefaultFrequencyHz is the step rate the controller expects.
	DefaultFrequencyHz = 13_000
	dutyPercent        = 50
)

var errClosed = errors.New("stepper: closed")

var (
	openPulseFn = openPulse
	openLineFn  = gpio.OpenLine
)

// pulseDriver is a PWM channel. Period and duty are in nanoseconds.
type pulseDriver interface {
	SetPeriod(ns uint64) error
	SetDuty(ns uint64) error
	SetEnabled(on bool) error
	Close() error
}

type Config struct {
	// PWMChip is a pwmchip name under /sys/class/pwm; empty picks the first.
	PWMChip    string
	PWMChannel int

	// DirectionChip/DirectionLine select the direction output: high is CW.
	DirectionChip string
	DirectionLine int

	// EnableLine is an optional driver enable output on DirectionChip; -1
	// leaves the driver always enabled.
	EnableLine int

	FrequencyHz int
}

// Stepper implements device.Actuator.
type Stepper struct {
	mu      sync.Mutex
	pulse   pulseDriver
	dir     gpio.Line
	en      gpio.Line
	cur     device.Direction
	enabled bool
}

// Open claims the PWM channel and GPIO lines. The motor starts disabled,
// turning clockwise.
func Open(cfg Config) (s *Stepper, err error) {
	if cfg.FrequencyHz <= 0 {
		cfg.FrequencyHz = DefaultFrequencyHz
	}
	if cfg.DirectionChip == "" {
		return nil, fmt.Errorf("stepper: direction chip is required")
	}

	s = &Stepper{cur: device.CW}
	defer func() {
		if err != nil {
			err = multierr.Append(err, s.Close())
			s = nil
		}
	}()

	if s.pulse, err = openPulseFn(cfg.PWMChip, cfg.PWMChannel); err != nil {
		return s, err
	}
	period := uint64(1_000_000_000 / cfg.FrequencyHz)
	if err = s.pulse.SetEnabled(false); err != nil {
		return s, err
	}
	if err = s.pulse.SetPeriod(period); err != nil {
		return s, err
	}
	if err = s.pulse.SetDuty(period * dutyPercent / 100); err != nil {
		return s, err
	}

	if s.dir, err = openLineFn(cfg.DirectionChip, cfg.DirectionLine, 1); err != nil {
		return s, err
	}
	if cfg.EnableLine >= 0 {
		if s.en, err = openLineFn(cfg.DirectionChip, cfg.EnableLine, 0); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Enable starts the step pulse train.
func (s *Stepper) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pulse == nil {
		return errClosed
	}
	if s.en != nil {
		if err := s.en.SetValue(1); err != nil {
			return fmt.Errorf("stepper: enable line: %w", err)
		}
	}
	if err := s.pulse.SetEnabled(true); err != nil {
		return fmt.Errorf("stepper: enable pwm: %w", err)
	}
	s.enabled = true
	return nil
}

// Disable stops the step pulse train.
func (s *Stepper) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pulse == nil {
		return errClosed
	}
	if err := s.pulse.SetEnabled(false); err != nil {
		return fmt.Errorf("stepper: disable pwm: %w", err)
	}
	if s.en != nil {
		if err := s.en.SetValue(0); err != nil {
			return fmt.Errorf("stepper: enable line: %w", err)
		}
	}
	s.enabled = false
	return nil
}

func (s *Stepper) SetDirection(d device.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setDirection(d)
}

func (s *Stepper) ToggleDirection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setDirection(s.cur.Opposite())
}

func (s *Stepper) setDirection(d device.Direction) error {
	if s.dir == nil {
		return errClosed
	}
	v := 0
	if d == device.CW {
		v = 1
	}
	if err := s.dir.SetValue(v); err != nil {
		return fmt.Errorf("stepper: direction line: %w", err)
	}
	s.cur = d
	return nil
}

// Direction returns the last direction driven.
func (s *Stepper) Direction() device.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *Stepper) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Close stops the motor and releases the hardware.
func (s *Stepper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.pulse != nil {
		err = multierr.Append(err, s.pulse.SetEnabled(false))
		err = multierr.Append(err, s.pulse.Close())
		s.pulse = nil
	}
	if s.en != nil {
		_ = s.en.SetValue(0)
		err = multierr.Append(err, s.en.Close())
		s.en = nil
	}
	if s.dir != nil {
		err = multierr.Append(err, s.dir.Close())
		s.dir = nil
	}
	s.enabled = false
	return err
}
