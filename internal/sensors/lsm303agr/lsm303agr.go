package lsm303agr

import (
	"fmt"
	"time"

	"orient/internal/device"
)

var sleep = time.Sleep

// Magnetometer half of the LSM303AGR.
//
// The accelerometer sits at a different address and is not used.

const (
	addrMag = 0x1E

	regWhoAmIM = 0x4F
	whoAmIMVal = 0x40

	regCfgA   = 0x60
	regCfgC   = 0x62
	regStatus = 0x67
	regOutXL  = 0x68 // X, Y, Z little-endian; address auto-increments

	cfgASoftReset = 0x20
	cfgATempComp  = 0x80
	cfgAODR20Hz   = 0x04 // ODR[1:0]=01, MD[1:0]=00 continuous
	cfgCBDU       = 0x10

	statusZYXDA = 0x08

	// NanoteslaPerLSB is the fixed magnetometer sensitivity.
	NanoteslaPerLSB = 150
)

type regIO interface {
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

// Device is a magnetometer in continuous 20 Hz mode.
type Device struct {
	dev regIO
	buf [6]byte
}

func DefaultAddress() uint16 { return addrMag }

// New probes and configures the magnetometer behind dev.
func New(dev regIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("lsm303agr: dev is nil")
	}
	d := &Device{dev: dev}

	var who [1]byte
	if err := d.dev.ReadReg(regWhoAmIM, who[:]); err != nil {
		return nil, fmt.Errorf("lsm303agr: whoami read failed: %w", err)
	}
	if who[0] != whoAmIMVal {
		return nil, fmt.Errorf("lsm303agr: whoami=0x%02X want 0x%02X", who[0], whoAmIMVal)
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	if err := d.dev.WriteReg(regCfgA, cfgASoftReset); err != nil {
		return fmt.Errorf("lsm303agr: reset failed: %w", err)
	}
	sleep(5 * time.Millisecond)

	// Block data update so X/Y/Z come from the same conversion.
	if err := d.dev.WriteReg(regCfgC, cfgCBDU); err != nil {
		return fmt.Errorf("lsm303agr: cfg_c failed: %w", err)
	}
	if err := d.dev.WriteReg(regCfgA, cfgATempComp|cfgAODR20Hz); err != nil {
		return fmt.Errorf("lsm303agr: cfg_a failed: %w", err)
	}
	sleep(50 * time.Millisecond)
	return nil
}

// Ready reports whether a new X/Y/Z set is available.
func (d *Device) Ready() (bool, error) {
	var st [1]byte
	if err := d.dev.ReadReg(regStatus, st[:]); err != nil {
		return false, fmt.Errorf("lsm303agr: status read failed: %w", err)
	}
	return st[0]&statusZYXDA != 0, nil
}

// ReadMagneticVector returns the latest field vector in nanotesla.
func (d *Device) ReadMagneticVector() (device.Sample, error) {
	if d == nil {
		return device.Sample{}, fmt.Errorf("lsm303agr: device is nil")
	}
	b := d.buf[:]
	if err := d.dev.ReadReg(regOutXL, b); err != nil {
		return device.Sample{}, fmt.Errorf("lsm303agr: read field failed: %w", err)
	}
	x := int16(uint16(b[0]) | uint16(b[1])<<8)
	y := int16(uint16(b[2]) | uint16(b[3])<<8)
	z := int16(uint16(b[4]) | uint16(b[5])<<8)
	return device.Sample{
		X: int32(x) * NanoteslaPerLSB,
		Y: int32(y) * NanoteslaPerLSB,
		Z: int32(z) * NanoteslaPerLSB,
	}, nil
}
