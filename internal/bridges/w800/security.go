package w800

import "fmt"

// Security status byte layout (byte 2 of a security frame):
//
//	bit 7 (0x80): set = closed, clear = open/alert
//	bit 4 (0x10): clear = sensor transmits with minimum delay
//	bit 2 (0x04): tamper (forwarded as part of the raw status, not decoded)
//	bit 0 (0x01): set = low battery
//
// Any other bit set marks the status byte as untrustworthy.
const (
	statusClosed     = 0x80
	statusDelay      = 0x10
	statusTamper     = 0x04
	statusLowBattery = 0x01

	// statusKnownMask covers every bit a genuine DS10A-family sensor emits.
	statusKnownMask = statusClosed | statusDelay | statusTamper | statusLowBattery
)

// SecurityEvent is one decoded DS10A-style security transmission.
type SecurityEvent struct {
	// Address is the sensor's 8-bit address as 2 lowercase hex digits.
	Address string

	// Closed reports the sensor's contact state: true for closed/restore,
	// false for open/alert.
	Closed bool

	// LowBattery is set while the sensor reports a depleted battery. Sensors
	// repeat the flag on every transmission until the battery is replaced.
	LowBattery bool

	// MinDelay reports whether the sensor is in minimum-delay mode
	// (retransmitting state changes without the anti-collision holdoff).
	MinDelay bool

	// Raw is the frame the event was decoded from, kept for diagnostics.
	Raw RawFrame
}

// DecodeSecurity decodes a security-classified frame into a SecurityEvent.
//
// Layout:
//
//	byte 0: high nibble = address high nibble, low nibble = address low nibble's pair
//	byte 1: high nibble = address high nibble (repeat), low nibble = address low nibble
//	byte 2: status flags
//	byte 3: complement of byte 2 (integrity check)
//
// The 8-bit address is (b0 & 0x0F)<<4 | (b1 & 0x0F).
//
// Returns ErrChecksum when byte 3 is not the complement of byte 2, and
// ErrInvalidStatus when the status byte carries unknown bits. Both wrap the
// sentinel with the offending frame's hex rendering.
func DecodeSecurity(f RawFrame) (SecurityEvent, error) {
	if f[2]+f[3] != 0xFF {
		return SecurityEvent{}, fmt.Errorf("%w: frame %s", ErrChecksum, f)
	}
	if f[2]&^byte(statusKnownMask) != 0 {
		return SecurityEvent{}, fmt.Errorf("%w: frame %s status 0x%02x", ErrInvalidStatus, f, f[2])
	}

	addr := (f[0]&0x0F)<<4 | f[1]&0x0F

	return SecurityEvent{
		Address:    fmt.Sprintf("%02x", addr),
		Closed:     f[2]&statusClosed != 0,
		LowBattery: f[2]&statusLowBattery != 0,
		MinDelay:   f[2]&statusDelay == 0,
		Raw:        f,
	}, nil
}
