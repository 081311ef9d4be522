// Package w800 implements the protocol bridge for the WGL W800RF32 RF receiver.
//
// The W800RF32 is a receive-only serial device (4800 8N1) that emits one
// fixed 4-byte frame per received RF transmission. Two incompatible packet
// families share the RF band and the receiver's output:
//
//   - Generic X10 command packets: house code + unit + on/off/dim/bright,
//     encoded as two byte/complement pairs (b1 = ^b0, b3 = ^b2).
//   - DS10A-style security packets: 8-bit sensor address plus a status byte
//     carrying open/closed, low-battery, and min-delay flags.
//
// The two families can produce overlapping address values, so a frame's
// family is decided exclusively from its byte pattern (Classify), and the
// mapping of an address to a logical device is decided exclusively by the
// operator's declared device kind. Neither signal is ever inferred from the
// other; a mismatch between them makes events silently unroutable, which is
// a documented property of the shared RF band rather than an error.
//
// Pipeline:
//
//	serial bytes → Receiver (4-byte framing) → Classify → DecodeSecurity /
//	DecodeCommand → device.Registry.Apply → MQTT state message
//
// The Receiver owns the serial port for the duration of one session and
// stops on the first transport error; the Bridge supervises sessions and
// reconnects with exponential backoff. Classification and decoding are pure
// functions and are applied strictly in receive order by a single dispatch
// goroutine.
package w800
