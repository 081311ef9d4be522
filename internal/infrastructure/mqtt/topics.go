package mqtt

import "fmt"

// Topic prefixes. All bridge topics use the flat scheme:
// graylogic/{category}/{protocol}/{address_or_id}
const (
	// TopicPrefixBridge is the base for all bridge topics.
	TopicPrefixBridge = "graylogic"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"

	// Protocol is the protocol segment used by this bridge.
	Protocol = "w800"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("front-door")
//	// Returns: "graylogic/state/w800/front-door"
type Topics struct{}

// State returns the topic for device state updates.
//
// Example: graylogic/state/w800/front-door
func (Topics) State(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, Protocol, deviceID)
}

// Health returns the topic for bridge health status.
//
// Example: graylogic/health/w800
func (Topics) Health() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, Protocol)
}

// SystemStatus returns the system status topic used for online/offline/LWT.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
