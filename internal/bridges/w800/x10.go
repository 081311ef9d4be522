package w800

import "fmt"

// Command is an X10 function carried by a command frame.
type Command string

// X10 commands.
const (
	CommandOn     Command = "on"
	CommandOff    Command = "off"
	CommandDim    Command = "dim"
	CommandBright Command = "bright"
)

// Command function bits (byte 2 of a command frame):
//
//	bit 5 (0x20): set = dim/bright, clear = on/off
//	bit 4 (0x10): with bit 5 set: set = bright, clear = dim
//	bit 3 (0x08): with bit 5 clear: set = on, clear = off
const (
	cmdDimBright = 0x20
	cmdBright    = 0x10
	cmdOn        = 0x08

	// cmdKnownMask covers every function bit a genuine X10 RF remote emits.
	cmdKnownMask = cmdDimBright | cmdBright | cmdOn
)

// CommandEvent is one decoded X10 command transmission.
type CommandEvent struct {
	// House is the X10 house code, 'a' through 'p'.
	House byte

	// Unit is the X10 unit number, 1 through 16. Dim and bright commands
	// address the whole house; their Unit is 0.
	Unit int

	// Command is the decoded X10 function.
	Command Command

	// Raw is the frame the event was decoded from, kept for diagnostics.
	Raw RawFrame
}

// Address returns the event's device address in the configuration form,
// e.g. "a5" or "p16". House-wide dim/bright events have no unit and return
// just the house code.
func (e CommandEvent) Address() string {
	if e.Unit == 0 {
		return string(e.House)
	}
	return fmt.Sprintf("%c%d", e.House, e.Unit)
}

// DecodeCommand decodes a command-classified frame into a CommandEvent.
//
// Layout:
//
//	byte 0: high nibble = house code index, low nibble = unit - 1
//	byte 1: complement of byte 0
//	byte 2: function bits
//	byte 3: complement of byte 2
//
// The complements are re-verified here so DecodeCommand stands alone as a
// safe entry point; Classify already guarantees them on the hot path.
//
// Returns ErrChecksum on a complement failure and ErrUnknownCommand when the
// function bits match no known X10 function.
func DecodeCommand(f RawFrame) (CommandEvent, error) {
	if f[0]+f[1] != 0xFF || f[2]+f[3] != 0xFF {
		return CommandEvent{}, fmt.Errorf("%w: frame %s", ErrChecksum, f)
	}
	if f[2]&^byte(cmdKnownMask) != 0 {
		return CommandEvent{}, fmt.Errorf("%w: frame %s function 0x%02x", ErrUnknownCommand, f, f[2])
	}

	ev := CommandEvent{
		House: 'a' + f[0]>>4,
		Raw:   f,
	}

	if f[2]&cmdDimBright != 0 {
		// Dim/bright is house-wide; the unit nibble is ignored by receivers.
		if f[2]&cmdBright != 0 {
			ev.Command = CommandBright
		} else {
			ev.Command = CommandDim
		}
		return ev, nil
	}

	ev.Unit = int(f[0]&0x0F) + 1
	if f[2]&cmdOn != 0 {
		ev.Command = CommandOn
	} else {
		ev.Command = CommandOff
	}
	return ev, nil
}
