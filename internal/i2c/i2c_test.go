package i2c

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeDev struct {
	regs map[byte]byte
}

func (f *fakeDev) ReadReg(reg byte, dst []byte) error {
	for i := range dst {
		dst[i] = f.regs[reg+byte(i)]
	}
	return nil
}

func (f *fakeDev) WriteReg(reg, value byte) error {
	f.regs[reg] = value
	return nil
}

func (f *fakeDev) Close() error { return nil }

func TestOpen_RejectsInvalidAddr(t *testing.T) {
	for _, addr := range []uint16{0, 0x80, 0x3FF} {
		_, err := Open(BackendSysfs, "/dev/i2c-1", addr, nil)
		if err == nil || !strings.Contains(err.Error(), "invalid addr") {
			t.Fatalf("addr=0x%X err=%v want invalid addr", addr, err)
		}
	}
}

func TestOpen_SelectsBackend(t *testing.T) {
	var got []string
	oldSysfs, oldPeriph := openSysfsFn, openPeriphFn
	t.Cleanup(func() { openSysfsFn, openPeriphFn = oldSysfs, oldPeriph })
	openSysfsFn = func(bus string, addr uint16) (Device, error) {
		got = append(got, "sysfs:"+bus)
		return &fakeDev{}, nil
	}
	openPeriphFn = func(bus string, addr uint16, _ *zap.SugaredLogger) (Device, error) {
		got = append(got, "periph:"+bus)
		return &fakeDev{}, nil
	}

	for _, backend := range []string{"", "sysfs", " PERIPH "} {
		if _, err := Open(backend, "1", 0x1E, nil); err != nil {
			t.Fatalf("backend=%q: %v", backend, err)
		}
	}
	want := []string{"sysfs:1", "sysfs:1", "periph:1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got=%v want %v", got, want)
	}

	if _, err := Open("spi", "1", 0x1E, nil); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if _, err := Open("sysfs", "  ", 0x1E, nil); err == nil {
		t.Fatalf("expected bus required error")
	}
}

func TestOpen_PropagatesBackendError(t *testing.T) {
	old := openSysfsFn
	t.Cleanup(func() { openSysfsFn = old })
	boom := errors.New("no bus")
	openSysfsFn = func(string, uint16) (Device, error) { return nil, boom }

	if _, err := Open(BackendSysfs, "/dev/i2c-9", 0x1E, nil); !errors.Is(err, boom) {
		t.Fatalf("err=%v want %v", err, boom)
	}
}

func TestReadRegU8(t *testing.T) {
	d := &fakeDev{regs: map[byte]byte{0x4F: 0x40}}
	v, err := ReadRegU8(d, 0x4F)
	if err != nil {
		t.Fatalf("ReadRegU8: %v", err)
	}
	if v != 0x40 {
		t.Fatalf("v=0x%02X want 0x40", v)
	}
}
