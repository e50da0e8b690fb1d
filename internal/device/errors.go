package device

import (
	"errors"
	"fmt"
)

// ErrMissingCapability marks use of a capability that never initialized.
var ErrMissingCapability = errors.New("capability not configured")

// CapabilityError reports which operation hit an absent capability.
type CapabilityError struct {
	Op         string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %s not configured", e.Op, e.Capability)
}

func (e *CapabilityError) Unwrap() error { return ErrMissingCapability }

// InitError records a capability that failed to come up. The board keeps
// running without it.
type InitError struct {
	Capability string
	Err        error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s init: %v", e.Capability, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
