package lsm303agr

import (
	"errors"
	"testing"
	"time"
)

type fakeI2C struct {
	regs   map[byte][]byte
	writes []writeOp

	readErrFor map[byte]error
}

type writeOp struct {
	reg byte
	val byte
}

func (f *fakeI2C) ReadReg(reg byte, dst []byte) error {
	if err := f.readErrFor[reg]; err != nil {
		return err
	}
	b := f.regs[reg]
	if len(b) < len(dst) {
		return errors.New("short reg")
	}
	copy(dst, b[:len(dst)])
	return nil
}

func (f *fakeI2C) WriteReg(reg, value byte) error {
	f.writes = append(f.writes, writeOp{reg: reg, val: value})
	return nil
}

func noSleep(t *testing.T) {
	old := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = old })
}

func TestNew_WhoAmIMismatch(t *testing.T) {
	noSleep(t)

	f := &fakeI2C{regs: map[byte][]byte{regWhoAmIM: {0x33}}}
	if _, err := New(f); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNew_WhoAmIReadError(t *testing.T) {
	noSleep(t)

	boom := errors.New("nack")
	f := &fakeI2C{readErrFor: map[byte]error{regWhoAmIM: boom}}
	if _, err := New(f); !errors.Is(err, boom) {
		t.Fatalf("err=%v want %v", err, boom)
	}
}

func TestNew_WritesExpectedInitRegisters(t *testing.T) {
	noSleep(t)

	f := &fakeI2C{regs: map[byte][]byte{regWhoAmIM: {whoAmIMVal}}}
	if _, err := New(f); err != nil {
		t.Fatalf("New: %v", err)
	}

	want := []writeOp{
		{regCfgA, cfgASoftReset},
		{regCfgC, cfgCBDU},
		{regCfgA, 0x84},
	}
	if len(f.writes) != len(want) {
		t.Fatalf("writes=%v want %v", f.writes, want)
	}
	for i := range want {
		if f.writes[i] != want[i] {
			t.Fatalf("write %d=%+v want %+v", i, f.writes[i], want[i])
		}
	}
}

func TestReadMagneticVector_ScalesToNanotesla(t *testing.T) {
	noSleep(t)

	f := &fakeI2C{regs: map[byte][]byte{regWhoAmIM: {whoAmIMVal}}}
	d, err := New(f)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f.regs[regOutXL] = []byte{
		0x64, 0x00, // x = 100
		0x9C, 0xFF, // y = -100
		0x00, 0x80, // z = -32768
	}
	s, err := d.ReadMagneticVector()
	if err != nil {
		t.Fatalf("ReadMagneticVector: %v", err)
	}
	if s.X != 15000 || s.Y != -15000 || s.Z != -32768*150 {
		t.Fatalf("sample=%+v", s)
	}
}

func TestReadMagneticVector_Error(t *testing.T) {
	noSleep(t)

	boom := errors.New("bus")
	f := &fakeI2C{regs: map[byte][]byte{regWhoAmIM: {whoAmIMVal}}}
	d, err := New(f)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.readErrFor = map[byte]error{regOutXL: boom}
	if _, err := d.ReadMagneticVector(); !errors.Is(err, boom) {
		t.Fatalf("err=%v want %v", err, boom)
	}
}

func TestReady(t *testing.T) {
	noSleep(t)

	f := &fakeI2C{regs: map[byte][]byte{regWhoAmIM: {whoAmIMVal}, regStatus: {0x00}}}
	d, err := New(f)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ok, err := d.Ready(); err != nil || ok {
		t.Fatalf("Ready=%v,%v want false", ok, err)
	}
	f.regs[regStatus] = []byte{statusZYXDA}
	if ok, err := d.Ready(); err != nil || !ok {
		t.Fatalf("Ready=%v,%v want true", ok, err)
	}
}
