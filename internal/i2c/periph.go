package i2c

import (
	"fmt"

	"go.uber.org/zap"
	pi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// BusSpeed is the clock requested from periph buses.
const BusSpeed = 400 * physic.KiloHertz

type periphDev struct {
	bus pi2c.BusCloser
	dev pi2c.Dev
}

type speedSetter interface {
	SetSpeed(f physic.Frequency) error
}

// requestSpeed asks for BusSpeed. Drivers that cannot change the clock keep
// their default, which is logged and otherwise tolerated.
func requestSpeed(bus speedSetter, name string, logger *zap.SugaredLogger) {
	if err := bus.SetSpeed(BusSpeed); err != nil {
		logger.Warnw("i2c bus speed not applied", "bus", name, "speed", BusSpeed.String(), "error", err)
	}
}

func openPeriph(name string, addr uint16, logger *zap.SugaredLogger) (Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2c: periph host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c: open bus %s: %w", name, err)
	}
	requestSpeed(bus, name, logger)
	return &periphDev{bus: bus, dev: pi2c.Dev{Addr: addr, Bus: bus}}, nil
}

func (d *periphDev) ReadReg(reg byte, dst []byte) error {
	return d.dev.Tx([]byte{reg}, dst)
}

func (d *periphDev) WriteReg(reg, value byte) error {
	return d.dev.Tx([]byte{reg, value}, nil)
}

func (d *periphDev) Close() error {
	if d.bus == nil {
		return nil
	}
	err := d.bus.Close()
	d.bus = nil
	return err
}
