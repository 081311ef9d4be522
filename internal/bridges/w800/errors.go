package w800

import "errors"

// Domain-specific errors for frame decoding and transport.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrChecksum is returned when a frame's integrity complement fails.
	// Security frames carry the status complement in byte 3; command frames
	// carry complements in bytes 1 and 3. RF noise routinely produces such
	// frames, so callers log and drop rather than treat this as fatal.
	ErrChecksum = errors.New("w800: frame checksum mismatch")

	// ErrInvalidStatus is returned when a security status byte carries bits
	// outside the known flag set. The frame is structurally a security frame
	// but its payload cannot be trusted.
	ErrInvalidStatus = errors.New("w800: invalid security status bits")

	// ErrUnknownCommand is returned when a command frame's function bits do
	// not map to any known X10 function.
	ErrUnknownCommand = errors.New("w800: unknown command function")

	// ErrTransport is returned by the receiver when the serial session fails.
	// It always wraps the underlying port error.
	ErrTransport = errors.New("w800: serial transport failure")

	// ErrReceiverClosed is returned when starting or using a receiver that
	// has already been closed.
	ErrReceiverClosed = errors.New("w800: receiver closed")
)
