package main

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"orient/internal/config"
	"orient/internal/device"
	"orient/internal/i2c"
	"orient/internal/leds"
	"orient/internal/sensors/lsm303agr"
	"orient/internal/sim"
	"orient/internal/stepper"
)

// compassDevice closes the bus along with the sensor.
type compassDevice struct {
	*lsm303agr.Device
	bus i2c.Device
}

func (c compassDevice) Close() error { return c.bus.Close() }

// buildBoard returns the simulated or real board. The turntable is nil on
// real hardware.
func buildBoard(cfg config.Config, logger *zap.SugaredLogger, clk clock.Clock) (*device.Board, *sim.Turntable, error) {
	if cfg.Sim.Enable {
		return simBoard(cfg.Sim, logger, clk)
	}

	parts := device.Parts{
		Lights: func() (device.LightBank, error) {
			r, err := leds.Open(cfg.LEDs.Chip, cfg.LEDs.Lines)
			if err != nil {
				return nil, err
			}
			return r, nil
		},
	}
	if cfg.Compass.Enable {
		parts.Compass = func() (device.Magnetometer, error) {
			bus, err := i2c.Open(cfg.Compass.Backend, cfg.Compass.Bus, cfg.Compass.Addr, logger)
			if err != nil {
				return nil, err
			}
			d, err := lsm303agr.New(bus)
			if err != nil {
				_ = bus.Close()
				return nil, err
			}
			return compassDevice{Device: d, bus: bus}, nil
		}
	}
	if cfg.Stepper.Enable {
		parts.Stepper = func() (device.Actuator, error) {
			s, err := stepper.Open(stepper.Config{
				PWMChip:       cfg.Stepper.PWMChip,
				PWMChannel:    cfg.Stepper.PWMChannel,
				DirectionChip: cfg.Stepper.DirectionChip,
				DirectionLine: cfg.Stepper.DirectionLine,
				EnableLine:    cfg.Stepper.EnableLine,
			})
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}
	b, err := device.Configure(logger, parts)
	return b, nil, err
}

func simBoard(cfg config.SimConfig, logger *zap.SugaredLogger, clk clock.Clock) (*device.Board, *sim.Turntable, error) {
	table := sim.NewTurntable(clk, sim.TurntableConfig{
		InitialOffsetDeg: cfg.InitialOffsetDeg,
		TurnRateDegPerS:  cfg.TurnRateDegPerS,
		FieldNT:          cfg.FieldNT,
	})
	parts := device.Parts{
		Lights: func() (device.LightBank, error) { return &sim.Lights{}, nil },
	}
	if !cfg.Omits("compass") {
		parts.Compass = func() (device.Magnetometer, error) { return table, nil }
	}
	if !cfg.Omits("stepper") {
		parts.Stepper = func() (device.Actuator, error) { return table, nil }
	}
	b, err := device.Configure(logger, parts)
	if err != nil {
		return nil, nil, err
	}
	return b, table, nil
}

// reportTurntable logs the simulated platform and the raw field the board
// sees once a second.
func reportTurntable(ctx context.Context, clk clock.Clock, logger *zap.SugaredLogger, board *device.Board, table *sim.Turntable) {
	t := clk.Ticker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			on, dir := table.Moving()
			fields := []any{"offset_deg", table.Offset(), "moving", on, "direction", dir}
			if v, err := board.MagneticVector(); err == nil {
				fields = append(fields, "mag_x", v.X, "mag_y", v.Y, "mag_z", v.Z)
			}
			logger.Debugw("turntable", fields...)
		}
	}
}
