// Package config loads and validates the W800RF32 bridge configuration.
//
// Configuration is read from a single YAML file, with defaults applied first
// and environment variable overrides (W800_*) applied last. Validation is
// strict at load time: unknown device kinds, malformed addresses, duplicate
// (kind, address) bindings, and names that would corrupt an MQTT topic are
// rejected before the bridge starts, never at dispatch time.
//
// Example config.yaml:
//
//	bridge:
//	  id: "w800-bridge"
//	serial:
//	  device: "/dev/ttyUSB0"
//	mqtt:
//	  broker:
//	    host: "localhost"
//	    port: 1883
//	    client_id: "w800-bridge"
//	devices:
//	  - address: "5a"
//	    type: "security"
//	    name: "front-door"
//	    device_class: "door"
//	  - address: "a3"
//	    type: "x10"
//	    name: "driveway-motion"
//	    device_class: "motion"
//	    off_delay: 90s
package config
