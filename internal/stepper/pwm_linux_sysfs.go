//go:build linux

package stepper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// sysfsPWM drives a hardware PWM channel via /sys/class/pwm.
//
// On a Raspberry Pi the channel needs an overlay such as dtoverlay=pwm-2chan.
type sysfsPWM struct {
	chipPath string
	pwmPath  string
	channel  int

	periodNS uint64
}

var pwmSysfsBase = "/sys/class/pwm"

func openPulse(chip string, channel int) (pulseDriver, error) {
	if channel < 0 {
		return nil, fmt.Errorf("stepper: invalid pwm channel %d", channel)
	}
	chipPath, err := findPWMChip(chip, channel)
	if err != nil {
		return nil, err
	}
	d := &sysfsPWM{
		chipPath: chipPath,
		channel:  channel,
		pwmPath:  filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
	}
	if err := d.ensureExported(); err != nil {
		return nil, err
	}
	return d, nil
}

// findPWMChip returns the named chip, or the first chip with enough channels.
func findPWMChip(name string, channel int) (string, error) {
	base := pwmSysfsBase
	if name != "" {
		chip := filepath.Join(base, name)
		if _, err := readInt(filepath.Join(chip, "npwm")); err != nil {
			return "", fmt.Errorf("stepper: pwm chip %s: %w", name, err)
		}
		return chip, nil
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("stepper: read %s: %w", base, err)
	}
	// pwmchipN entries are usually symlinks, so match on name only.
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "pwmchip") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	for _, n := range names {
		chip := filepath.Join(base, n)
		npwm, err := readInt(filepath.Join(chip, "npwm"))
		if err != nil || npwm <= channel {
			continue
		}
		return chip, nil
	}
	return "", fmt.Errorf("stepper: no sysfs pwmchip with channel %d (is the pwm overlay enabled?)", channel)
}

func (d *sysfsPWM) ensureExported() error {
	if _, err := os.Stat(d.pwmPath); err == nil {
		return nil
	}
	if err := writeSysfs(filepath.Join(d.chipPath, "export"), strconv.Itoa(d.channel)); err != nil {
		if _, statErr := os.Stat(d.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("stepper: export pwm: %w", err)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(d.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(d.pwmPath); err != nil {
		return fmt.Errorf("stepper: pwm path not created after export: %w", err)
	}
	return nil
}

// SetPeriod must be called while the channel is disabled; the duty cycle is
// cleared first since the kernel rejects duty > period.
func (d *sysfsPWM) SetPeriod(ns uint64) error {
	if ns == 0 {
		return fmt.Errorf("stepper: invalid pwm period 0")
	}
	if d.periodNS != 0 {
		if err := d.writeUint("duty_cycle", 0); err != nil {
			return err
		}
	}
	if err := d.writeUint("period", ns); err != nil {
		return err
	}
	d.periodNS = ns
	return nil
}

func (d *sysfsPWM) SetDuty(ns uint64) error {
	if ns > d.periodNS {
		return fmt.Errorf("stepper: duty %dns exceeds period %dns", ns, d.periodNS)
	}
	return d.writeUint("duty_cycle", ns)
}

func (d *sysfsPWM) SetEnabled(on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return writeSysfs(filepath.Join(d.pwmPath, "enable"), v)
}

func (d *sysfsPWM) Close() error {
	return d.SetEnabled(false)
}

func (d *sysfsPWM) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(d.pwmPath, name), strconv.FormatUint(v, 10))
}

// writeSysfs retries briefly: right after export, udev may still be fixing
// permissions on the new attributes.
func writeSysfs(path string, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := writeOnce(path, value)
		if err == nil {
			return nil
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		return err
	}
}

func writeOnce(path, value string) error {
	// No O_TRUNC/O_CREATE: some sysfs attributes reject them.
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(value)
	return errors.Join(werr, f.Close())
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("%s: empty", path)
	}
	return strconv.Atoi(s)
}
