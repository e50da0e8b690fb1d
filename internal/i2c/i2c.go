// Package i2c opens register-addressed devices on an I2C bus.
//
// Two backends are available: "sysfs" drives /dev/i2c-* directly with the
// I2C_RDWR ioctl, and "periph" goes through periph.io's bus registry.
package i2c

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	BackendSysfs  = "sysfs"
	BackendPeriph = "periph"
)

// Device is a peripheral at one 7-bit address. Register reads use a repeated
// start, which most sensors require. Devices are not safe for concurrent use.
type Device interface {
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
	Close() error
}

var (
	openSysfsFn  = openSysfs
	openPeriphFn = openPeriph
)

// Open returns the device at addr on bus. For the sysfs backend bus is a
// device path such as /dev/i2c-1; for periph it is a registry name such as
// "1" or "I2C1". logger receives non-fatal setup warnings and may be nil.
func Open(backend, bus string, addr uint16, logger *zap.SugaredLogger) (Device, error) {
	if err := checkAddr(addr); err != nil {
		return nil, err
	}
	bus = strings.TrimSpace(bus)
	if bus == "" {
		return nil, fmt.Errorf("i2c: bus is required")
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendSysfs:
		return openSysfsFn(bus, addr)
	case BackendPeriph:
		if logger == nil {
			logger = zap.NewNop().Sugar()
		}
		return openPeriphFn(bus, addr, logger)
	default:
		return nil, fmt.Errorf("i2c: unknown backend %q", backend)
	}
}

// ReadRegU8 reads a single register.
func ReadRegU8(d Device, reg byte) (byte, error) {
	var b [1]byte
	if err := d.ReadReg(reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func checkAddr(addr uint16) error {
	if addr == 0 || addr > 0x7F {
		return fmt.Errorf("i2c: invalid addr 0x%X", addr)
	}
	return nil
}
