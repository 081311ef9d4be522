package w800

import "fmt"

// FrameSize is the fixed length of every frame the W800RF32 emits.
// The device has no framing markers; the stream is a sequence of
// back-to-back 4-byte frames, and inter-frame gaps are the only
// resynchronisation signal.
const FrameSize = 4

// RawFrame is one complete 4-byte frame exactly as read from the wire.
type RawFrame [FrameSize]byte

// String renders the frame as 8 lowercase hex digits, the form used in
// debug logs and decode-failure diagnostics.
func (f RawFrame) String() string {
	return fmt.Sprintf("%02x%02x%02x%02x", f[0], f[1], f[2], f[3])
}

// Class is the packet family a raw frame belongs to.
type Class int

// Frame classes.
const (
	// ClassUnrecognized is a frame matching neither family's byte pattern.
	ClassUnrecognized Class = iota

	// ClassSecurity is a DS10A-style security frame.
	ClassSecurity

	// ClassCommand is a generic X10 command frame.
	ClassCommand
)

// String returns the class name used in logs and metrics labels.
func (c Class) String() string {
	switch c {
	case ClassSecurity:
		return "security"
	case ClassCommand:
		return "command"
	default:
		return "unrecognized"
	}
}

// Classify determines a frame's packet family from its byte pattern alone.
//
// Security frames repeat the address high nibble across bytes 0 and 1:
//
//	b0 = HHLL…, b1 = HH(other)… → upper(b0) == upper(b1)
//
// Command frames are two byte/complement pairs:
//
//	b1 == ^b0 && b3 == ^b2
//
// The security check runs first. The two patterns are mutually exclusive for
// well-formed frames (a nibble never equals its own complement), so ordering
// only matters for corrupt input, where security-first matches the vendor
// firmware's documented precedence.
//
// Classification is purely structural: a frame can classify as one family
// while its payload still fails the family's decoder.
func Classify(f RawFrame) Class {
	if f[0]>>4 == f[1]>>4 {
		return ClassSecurity
	}
	if f[0]+f[1] == 0xFF && f[2]+f[3] == 0xFF {
		return ClassCommand
	}
	return ClassUnrecognized
}
