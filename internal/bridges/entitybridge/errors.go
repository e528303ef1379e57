package entitybridge

import "errors"

var (
	// ErrInvalidParameters is returned when command parameters cannot be
	// converted to light settings.
	ErrInvalidParameters = errors.New("invalid command parameters")

	// ErrUnknownCommand is returned for commands other than turn_on and turn_off.
	ErrUnknownCommand = errors.New("unknown command")
)
