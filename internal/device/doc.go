// Package device maintains the registry of configured RF devices and routes
// decoded events to them.
//
// Routing is exact-match on the composite key (kind, address). The two frame
// families share an overlapping address space, so a security sensor at "a5"
// and an X10 module at "a5" are distinct devices; a decoded event only ever
// reaches a device whose declared kind matches the event's family. Events
// with no binding are counted and logged at debug, never treated as errors:
// the RF band is shared with neighbours' transmitters.
//
// Each device tracks a small amount of state: the current on/off value,
// sticky low-battery and min-delay flags, and the time of the last update.
// Devices configured with an off-delay are returned to off automatically
// after the delay unless a newer event arrives first; flags survive the
// automatic off because they describe the sensor, not the event.
//
// The registry's device set is immutable after construction; per-device
// state is guarded by a per-device mutex, so updates for different devices
// never contend.
package device
