//go:build !linux

package i2c

import "errors"

func openSysfs(string, uint16) (Device, error) {
	return nil, errors.New("i2c: sysfs backend requires linux")
}
