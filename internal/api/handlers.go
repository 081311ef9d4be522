package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-w800/internal/bridges/w800"
	"github.com/nerrad567/gray-logic-w800/internal/device"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/config"
)

// HealthResponse is the payload for /healthz and /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`

	Bridge w800.HealthMessage `json:"bridge"`
}

// DeviceView is the read-only representation of a configured device.
type DeviceView struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Address     string `json:"address"`
	DeviceClass string `json:"device_class,omitempty"`
	OffDelay    string `json:"off_delay,omitempty"`

	State DeviceStateView `json:"state"`
}

// DeviceStateView is a device's last known state.
type DeviceStateView struct {
	Known      bool       `json:"known"`
	Value      string     `json:"value"`
	LowBattery bool       `json:"low_battery"`
	MinDelay   bool       `json:"min_delay"`
	LastUpdate *time.Time `json:"last_update,omitempty"`
}

// handleHealth reports bridge health. Returns 503 when the bridge is
// unhealthy so load balancer and container probes work unmodified.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := s.health.Health()

	status := http.StatusOK
	text := "ok"
	if !h.Healthy {
		status = http.StatusServiceUnavailable
		text = "degraded"
	}

	writeJSON(w, status, HealthResponse{
		Status:  text,
		Version: s.version,
		Bridge:  h,
	})
}

// handleListDevices returns all configured devices with their states.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	all := s.devices.Devices()

	views := make([]DeviceView, 0, len(all))
	for _, d := range all {
		views = append(views, toDeviceView(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": views,
		"count":   len(views),
	})
}

// handleGetDevice returns one device by its (kind, address) binding.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	kind, err := config.ParseDeviceKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	address := strings.ToLower(chi.URLParam(r, "address"))

	for _, d := range s.devices.Devices() {
		if d.Device.Kind() == kind && d.Device.Address == address {
			writeJSON(w, http.StatusOK, toDeviceView(d))
			return
		}
	}

	writeNotFound(w, "no device bound to "+string(kind)+"/"+address)
}

// toDeviceView flattens a registry snapshot entry for JSON output.
func toDeviceView(d device.StateChange) DeviceView {
	v := DeviceView{
		Name:        d.Device.Name,
		Kind:        string(d.Device.Kind()),
		Address:     d.Device.Address,
		DeviceClass: d.Device.DeviceClass,
		State: DeviceStateView{
			Known:      d.State.Known,
			Value:      "off",
			LowBattery: d.State.LowBattery,
			MinDelay:   d.State.MinDelay,
		},
	}
	if d.Device.OffDelay > 0 {
		v.OffDelay = d.Device.OffDelay.String()
	}
	if d.State.Value {
		v.State.Value = "on"
	}
	if !d.State.LastUpdate.IsZero() {
		t := d.State.LastUpdate
		v.State.LastUpdate = &t
	}
	return v
}
