package coordinator

import "errors"

var (
	// ErrClosed is returned by refresh requests after Close.
	ErrClosed = errors.New("coordinator: closed")

	// ErrNotReady is returned by WaitReady when the first update failed.
	ErrNotReady = errors.New("coordinator: first update failed")
)
