// Package mqtt provides MQTT client connectivity for the W800RF32 bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge publishes to the flat topic scheme shared by all protocol
// bridges: graylogic/{category}/w800/{id}. It is outbound-only; commands
// are not supported because the W800RF32 is a receive-only device.
//
//	W800RF32 receiver → bridge → MQTT Broker → consuming platform
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.State("front-door")
//	client.PublishRetained(topic, payload)
package mqtt
