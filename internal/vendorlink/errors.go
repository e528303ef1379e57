package vendorlink

import "errors"

var (
	// ErrVendor wraps errors reported by the vendor SDK process.
	ErrVendor = errors.New("vendorlink: vendor error")

	// ErrDecode is reported to the coordinator when a snapshot cannot be decoded.
	ErrDecode = errors.New("vendorlink: invalid snapshot")

	// ErrTimeout is returned when the SDK does not report a command result in time.
	ErrTimeout = errors.New("vendorlink: command result timeout")

	// ErrNotStarted is returned when sending before Start.
	ErrNotStarted = errors.New("vendorlink: not started")
)
