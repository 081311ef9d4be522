package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the W800RF32 bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge  BridgeConfig   `yaml:"bridge"`
	Serial  SerialConfig   `yaml:"serial"`
	MQTT    MQTTConfig     `yaml:"mqtt"`
	API     APIConfig      `yaml:"api"`
	Logging LoggingConfig  `yaml:"logging"`
	Devices []DeviceConfig `yaml:"devices"`
}

// BridgeConfig contains bridge identity and reporting settings.
type BridgeConfig struct {
	// ID identifies this bridge instance in MQTT health messages.
	ID string `yaml:"id"`

	// HealthInterval is how often health status is published (seconds).
	HealthInterval int `yaml:"health_interval"`
}

// SerialConfig contains settings for the W800RF32 serial connection.
type SerialConfig struct {
	// Device is the serial device path (e.g., "/dev/ttyUSB0").
	Device string `yaml:"device"`

	// Baud is the line speed. The W800RF32 is fixed at 4800.
	Baud int `yaml:"baud"`

	// ReadTimeout is the per-read timeout in milliseconds. A timeout while
	// a frame is partially read triggers resynchronisation.
	ReadTimeout int `yaml:"read_timeout"`

	// Reconnect controls how the bridge recovers from transport failures.
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig contains reconnection backoff settings (seconds).
type ReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains settings for the HTTP monitoring endpoint.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DeviceKind is the declared frame family for a configured device.
//
// The W800RF32 receives two incompatible packet families on the same RF band,
// and their address spaces overlap: the same raw bytes can be a valid address
// under both encodings. The kind is therefore declared by the operator and
// never inferred from the address value.
type DeviceKind string

// Device kinds.
const (
	// KindX10 is a generic X10 command device (house code + unit).
	KindX10 DeviceKind = "x10"

	// KindSecurity is a DS10A-style security sensor (8-bit hex address).
	KindSecurity DeviceKind = "security"
)

// ParseDeviceKind converts a configuration string into a DeviceKind.
// Unknown kinds are rejected at load time, not at dispatch time.
func ParseDeviceKind(s string) (DeviceKind, error) {
	switch DeviceKind(strings.ToLower(s)) {
	case KindX10:
		return KindX10, nil
	case KindSecurity:
		return KindSecurity, nil
	default:
		return "", fmt.Errorf("unknown device kind %q (must be %q or %q)", s, KindX10, KindSecurity)
	}
}

// DeviceConfig is a user-declared binding of an RF address to a logical device.
// Entries are immutable after load.
type DeviceConfig struct {
	// Address is the device address. For x10 devices: house code + unit
	// (e.g., "a5", "p16"). For security devices: 2-digit hex (e.g., "5a").
	Address string `yaml:"address"`

	// Type declares the frame family ("x10" or "security"). If frames
	// observed at this address classify as the other family, their events
	// are silently unroutable; this is an operator contract, not an error.
	Type string `yaml:"type"`

	// Name is the friendly device name used as the MQTT device identifier.
	Name string `yaml:"name"`

	// DeviceClass is a free-form classification string (e.g., "door",
	// "window", "motion") forwarded opaquely in state messages.
	DeviceClass string `yaml:"device_class"`

	// OffDelay, when set, automatically returns the device to off/closed
	// after this duration unless a newer event arrives first.
	OffDelay time.Duration `yaml:"off_delay"`
}

// Kind returns the parsed device kind. Valid after Config.Validate().
func (d DeviceConfig) Kind() DeviceKind {
	k, _ := ParseDeviceKind(d.Type)
	return k
}

// x10AddressPattern matches a house code a-p followed by unit 1-16.
var x10AddressPattern = regexp.MustCompile(`^[a-p](1[0-6]|[1-9])$`)

// securityAddressPattern matches a 2-digit lowercase hex address.
var securityAddressPattern = regexp.MustCompile(`^[0-9a-f]{2}$`)

// deviceNamePattern restricts names to characters that are safe as an MQTT
// topic segment: no '/', '+', '#', or whitespace.
var deviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: W800_SECTION_KEY
// For example: W800_SERIAL_DEVICE, W800_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Addresses are matched lowercase throughout.
	for i := range cfg.Devices {
		cfg.Devices[i].Address = strings.ToLower(cfg.Devices[i].Address)
		cfg.Devices[i].Type = strings.ToLower(cfg.Devices[i].Type)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "w800-bridge",
			HealthInterval: 30,
		},
		Serial: SerialConfig{
			Baud:        4800,
			ReadTimeout: 1000,
			Reconnect: ReconnectConfig{
				InitialDelay: 5,
				MaxDelay:     120,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "w800-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8086,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: W800_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("W800_SERIAL_DEVICE"); v != "" {
		cfg.Serial.Device = v
	}
	if v := os.Getenv("W800_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("W800_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("W800_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("W800_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("W800_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("W800_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of all validation failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if c.Bridge.HealthInterval < 0 {
		errs = append(errs, "bridge.health_interval must not be negative")
	}

	if c.Serial.Device == "" {
		errs = append(errs, "serial.device is required")
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, "serial.baud must be positive")
	}
	if c.Serial.ReadTimeout <= 0 {
		errs = append(errs, "serial.read_timeout must be positive")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port <= 0 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be 1-65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be 1-65535")
		}
	}

	errs = append(errs, c.validateDevices()...)

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// validateDevices checks device bindings: kind is a closed enum, addresses
// are well-formed for the declared kind, names are present, and no two
// devices share a (kind, address) pair.
func (c *Config) validateDevices() []string {
	var errs []string

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		prefix := fmt.Sprintf("devices[%d]", i)

		kind, err := ParseDeviceKind(d.Type)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
			continue
		}

		addr := strings.ToLower(d.Address)
		switch kind {
		case KindX10:
			if !x10AddressPattern.MatchString(addr) {
				errs = append(errs, fmt.Sprintf("%s: x10 address %q must be house code a-p + unit 1-16", prefix, d.Address))
			}
		case KindSecurity:
			if !securityAddressPattern.MatchString(addr) {
				errs = append(errs, fmt.Sprintf("%s: security address %q must be 2-digit hex", prefix, d.Address))
			}
		}

		if d.Name == "" {
			errs = append(errs, fmt.Sprintf("%s: name is required", prefix))
		} else if !deviceNamePattern.MatchString(d.Name) {
			errs = append(errs, fmt.Sprintf("%s: name %q must use only letters, digits, '.', '_' or '-' (it becomes an MQTT topic segment)", prefix, d.Name))
		}
		if d.OffDelay < 0 {
			errs = append(errs, fmt.Sprintf("%s: off_delay must not be negative", prefix))
		}

		key := string(kind) + "/" + addr
		if seen[key] {
			errs = append(errs, fmt.Sprintf("%s: duplicate device %s address %q", prefix, kind, addr))
		}
		seen[key] = true
	}

	return errs
}
