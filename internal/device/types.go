package device

import (
	"time"

	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/config"
)

// Update is one decoded RF event, normalised across frame families.
type Update struct {
	// Kind is the frame family the event was decoded from. Routing requires
	// it to match the target device's declared kind.
	Kind config.DeviceKind

	// Address is the event's device address in configuration form
	// ("a5" for x10, "5a" for security).
	Address string

	// Value is the new device value: true for on/open-alert handling per
	// kind (x10 "on", security "open"), false for off/closed.
	Value bool

	// HasFlags marks whether LowBattery and MinDelay carry information.
	// Security frames always do; command frames never do.
	HasFlags   bool
	LowBattery bool
	MinDelay   bool

	// Timestamp is when the frame was received.
	Timestamp time.Time
}

// State is a device's current tracked state.
type State struct {
	// Known is false until the first event arrives; the bridge has no way
	// to query a device, so startup state is unknown, not off.
	Known bool

	// Value is the current on/open state.
	Value bool

	// LowBattery is sticky: once set it stays set until an event arrives
	// with the flag clear (a fresh battery), surviving automatic offs.
	LowBattery bool

	// MinDelay mirrors the sensor's most recently reported delay mode.
	MinDelay bool

	// LastUpdate is the timestamp of the event that produced this state.
	LastUpdate time.Time
}

// StateChange describes one applied update, delivered to the Notifier.
type StateChange struct {
	Device config.DeviceConfig
	State  State

	// AutoOff marks changes produced by an expired off-delay rather than a
	// received frame.
	AutoOff bool
}

// Notifier receives applied state changes. Calls for a single device are
// serialised in apply order; calls for different devices may interleave.
type Notifier interface {
	NotifyStateChange(change StateChange)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(change StateChange)

// NotifyStateChange calls f(change).
func (f NotifierFunc) NotifyStateChange(change StateChange) {
	f(change)
}
