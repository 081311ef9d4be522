package w800

import "time"

// StateMessage is the JSON payload published to graylogic/state/w800/{name}
// on every applied device state change. Messages are retained so consumers
// joining late see the current state.
type StateMessage struct {
	// EventID uniquely identifies this state change.
	EventID string `json:"event_id"`

	// Device is the configured device name (the topic's final segment).
	Device string `json:"device"`

	// Kind is the device's frame family, "x10" or "security".
	Kind string `json:"kind"`

	// Address is the device's RF address in configuration form.
	Address string `json:"address"`

	// DeviceClass is the operator-declared classification, forwarded
	// opaquely ("door", "window", "motion", ...). Omitted when unset.
	DeviceClass string `json:"device_class,omitempty"`

	// State is "on" or "off". Security sensors report "on" for open/alert.
	State string `json:"state"`

	// LowBattery and MinDelay are only meaningful for security devices.
	LowBattery bool `json:"low_battery"`
	MinDelay   bool `json:"min_delay"`

	// AutoOff marks states produced by an expired off-delay rather than a
	// received transmission.
	AutoOff bool `json:"auto_off"`

	// Timestamp is when the state took effect, RFC 3339 with sub-second
	// precision.
	Timestamp time.Time `json:"timestamp"`
}

// HealthMessage is the JSON payload published periodically to
// graylogic/health/w800.
type HealthMessage struct {
	BridgeID string    `json:"bridge_id"`
	Healthy  bool      `json:"healthy"`
	Serial   bool      `json:"serial_connected"`
	Devices  int       `json:"devices"`
	Uptime   string    `json:"uptime"`
	Stats    StatsInfo `json:"stats"`

	Timestamp time.Time `json:"timestamp"`
}

// StatsInfo carries cumulative receiver and dispatch counters.
type StatsInfo struct {
	FramesRead    uint64 `json:"frames_read"`
	FramesDropped uint64 `json:"frames_dropped"`
	Desyncs       uint64 `json:"desyncs"`
	Dispatched    uint64 `json:"events_dispatched"`
	Unmatched     uint64 `json:"events_unmatched"`
	Reconnects    uint64 `json:"serial_reconnects"`
}
