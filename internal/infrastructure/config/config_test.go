package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
bridge:
  id: "test-bridge"
serial:
  device: "/dev/ttyUSB0"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
devices:
  - address: "5A"
    type: "security"
    name: "front-door"
    device_class: "door"
  - address: "a3"
    type: "x10"
    name: "driveway-motion"
    off_delay: 90s
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.ID != "test-bridge" {
		t.Errorf("Bridge.ID = %q, want %q", cfg.Bridge.ID, "test-bridge")
	}
	if cfg.Serial.Device != "/dev/ttyUSB0" {
		t.Errorf("Serial.Device = %q, want %q", cfg.Serial.Device, "/dev/ttyUSB0")
	}
	if cfg.Serial.Baud != 4800 {
		t.Errorf("Serial.Baud = %d, want default 4800", cfg.Serial.Baud)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}

	if len(cfg.Devices) != 2 {
		t.Fatalf("len(Devices) = %d, want 2", len(cfg.Devices))
	}
	// Addresses are normalised to lowercase after load.
	if cfg.Devices[0].Address != "5a" {
		t.Errorf("Devices[0].Address = %q, want %q", cfg.Devices[0].Address, "5a")
	}
	if cfg.Devices[0].Kind() != KindSecurity {
		t.Errorf("Devices[0].Kind() = %q, want %q", cfg.Devices[0].Kind(), KindSecurity)
	}
	if cfg.Devices[1].OffDelay != 90*time.Second {
		t.Errorf("Devices[1].OffDelay = %v, want 90s", cfg.Devices[1].OffDelay)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingSerialDevice(t *testing.T) {
	content := `
mqtt:
  broker:
    host: "localhost"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "serial.device is required") {
		t.Errorf("error %q does not mention serial.device", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	content := `
serial:
  device: "/dev/ttyUSB0"
`
	t.Setenv("W800_MQTT_HOST", "env-broker")
	t.Setenv("W800_SERIAL_DEVICE", "/dev/ttyUSB9")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want env override %q", cfg.MQTT.Broker.Host, "env-broker")
	}
	if cfg.Serial.Device != "/dev/ttyUSB9" {
		t.Errorf("Serial.Device = %q, want env override %q", cfg.Serial.Device, "/dev/ttyUSB9")
	}
}

func TestParseDeviceKind(t *testing.T) {
	tests := []struct {
		input   string
		want    DeviceKind
		wantErr bool
	}{
		{input: "x10", want: KindX10},
		{input: "security", want: KindSecurity},
		{input: "SECURITY", want: KindSecurity},
		{input: "ds10a", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDeviceKind(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDeviceKind(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDeviceKind(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDeviceKind(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidate_DeviceErrors(t *testing.T) {
	tests := []struct {
		name    string
		device  DeviceConfig
		wantMsg string
	}{
		{
			name:    "unknown kind",
			device:  DeviceConfig{Address: "5a", Type: "zigbee", Name: "d"},
			wantMsg: "unknown device kind",
		},
		{
			name:    "bad x10 address",
			device:  DeviceConfig{Address: "q5", Type: "x10", Name: "d"},
			wantMsg: "house code",
		},
		{
			name:    "x10 unit out of range",
			device:  DeviceConfig{Address: "a17", Type: "x10", Name: "d"},
			wantMsg: "house code",
		},
		{
			name:    "bad security address",
			device:  DeviceConfig{Address: "5az", Type: "security", Name: "d"},
			wantMsg: "2-digit hex",
		},
		{
			name:    "missing name",
			device:  DeviceConfig{Address: "5a", Type: "security"},
			wantMsg: "name is required",
		},
		{
			name:    "name with slash breaks topic",
			device:  DeviceConfig{Address: "5a", Type: "security", Name: "front/door"},
			wantMsg: "MQTT topic segment",
		},
		{
			name:    "name with wildcard breaks topic",
			device:  DeviceConfig{Address: "5a", Type: "security", Name: "door#"},
			wantMsg: "MQTT topic segment",
		},
		{
			name:    "name with plus breaks topic",
			device:  DeviceConfig{Address: "5a", Type: "security", Name: "door+1"},
			wantMsg: "MQTT topic segment",
		},
		{
			name:    "name with space breaks topic",
			device:  DeviceConfig{Address: "5a", Type: "security", Name: "front door"},
			wantMsg: "MQTT topic segment",
		},
		{
			name:    "negative off_delay",
			device:  DeviceConfig{Address: "5a", Type: "security", Name: "d", OffDelay: -time.Second},
			wantMsg: "off_delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Serial.Device = "/dev/ttyUSB0"
			cfg.Devices = []DeviceConfig{tt.device}

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_DuplicateDevice(t *testing.T) {
	cfg := defaultConfig()
	cfg.Serial.Device = "/dev/ttyUSB0"
	cfg.Devices = []DeviceConfig{
		{Address: "5a", Type: "security", Name: "front-door"},
		{Address: "5A", Type: "security", Name: "also-front-door"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected duplicate error, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error %q does not mention duplicate", err)
	}
}

func TestValidate_OverlappingAddressesAcrossKinds(t *testing.T) {
	// "a5" reads as a valid x10 address and would also be valid hex; the
	// composite (kind, address) key keeps both bindings routable.
	cfg := defaultConfig()
	cfg.Serial.Device = "/dev/ttyUSB0"
	cfg.Devices = []DeviceConfig{
		{Address: "a5", Type: "x10", Name: "hall-motion"},
		{Address: "a5", Type: "security", Name: "hall-window"},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}
