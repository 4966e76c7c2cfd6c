package domain

import "errors"

// Remote errors reported by the telephony service.
var (
	// ErrNotFound is returned when the addressed channel, bridge, playback or recording does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when the resource is in a state that forbids the operation.
	ErrConflict = errors.New("conflict")
	// ErrInvalidParameter is returned when a command carries a malformed argument.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrUnprocessable is returned when the command is well formed but cannot be executed.
	ErrUnprocessable = errors.New("unprocessable entity")
)

// Engine errors.
var (
	// ErrNodeNotFound is returned when jumping to a node name that was never registered.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEmptyDigit signals an internal invariant violation: digit events always carry one digit.
	ErrEmptyDigit = errors.New("empty digit")

	// ErrRecordingFailed is returned when the telephony service reports a failed recording.
	ErrRecordingFailed = errors.New("recording failed")

	// ErrTooManyHops is returned when a controller follows more jumps than allowed in one dispatch.
	ErrTooManyHops = errors.New("too many node hops")

	// ErrInvalidEndpoint is returned when a dial endpoint cannot be parsed.
	ErrInvalidEndpoint = errors.New("invalid dial endpoint")
)

// IgnoreNotFound drops ErrNotFound, for teardown paths.
func IgnoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
