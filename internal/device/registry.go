package device

import (
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/logging"
)

// entry is one configured device with its mutable state.
type entry struct {
	cfg config.DeviceConfig

	mu    sync.Mutex
	state State

	// offTimer is the pending auto-off, nil when none is scheduled.
	offTimer *time.Timer

	// offGen increments on every applied update. A fired timer only takes
	// effect if no update landed after it was scheduled, which closes the
	// race between timer expiry and a frame arriving at the same instant.
	offGen uint64
}

// Registry routes decoded events to configured devices and tracks their state.
// The device set is fixed at construction.
type Registry struct {
	devices  map[string]*entry
	notifier Notifier
	logger   *logging.Logger

	closed  sync.Once
	closing chan struct{}
}

// key builds the composite routing key. Kind participates because the two
// frame families' address spaces overlap.
func key(kind config.DeviceKind, address string) string {
	return string(kind) + "/" + strings.ToLower(address)
}

// NewRegistry builds a registry from validated device configuration.
// The notifier receives every applied state change, including automatic offs.
func NewRegistry(devices []config.DeviceConfig, notifier Notifier, logger *logging.Logger) *Registry {
	r := &Registry{
		devices:  make(map[string]*entry, len(devices)),
		notifier: notifier,
		logger:   logger.With("component", "registry"),
		closing:  make(chan struct{}),
	}
	for _, d := range devices {
		r.devices[key(d.Kind(), d.Address)] = &entry{cfg: d}
	}
	return r
}

// Count returns the number of configured devices.
func (r *Registry) Count() int {
	return len(r.devices)
}

// GetState returns the current state of the device bound to (kind, address).
// The second return is false when no such device is configured.
func (r *Registry) GetState(kind config.DeviceKind, address string) (State, bool) {
	e, ok := r.devices[key(kind, address)]
	if !ok {
		return State{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, true
}

// Devices returns the configured devices with their current states, for the
// monitoring API. Order is unspecified.
func (r *Registry) Devices() []StateChange {
	out := make([]StateChange, 0, len(r.devices))
	for _, e := range r.devices {
		e.mu.Lock()
		out = append(out, StateChange{Device: e.cfg, State: e.state})
		e.mu.Unlock()
	}
	return out
}

// Apply routes an update to its device. It returns false when no device is
// bound to the update's (kind, address); unmatched updates change nothing.
//
// An applied update always refreshes LastUpdate and reschedules or cancels
// the auto-off, even when the value is unchanged: repeated "open" frames
// keep pushing the off-delay forward.
func (r *Registry) Apply(u Update) bool {
	e, ok := r.devices[key(u.Kind, u.Address)]
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.offGen++
	if e.offTimer != nil {
		e.offTimer.Stop()
		e.offTimer = nil
	}

	e.state.Known = true
	e.state.Value = u.Value
	e.state.LastUpdate = u.Timestamp
	if u.HasFlags {
		e.state.LowBattery = u.LowBattery
		e.state.MinDelay = u.MinDelay
	}

	if u.Value && e.cfg.OffDelay > 0 {
		r.scheduleOff(e, e.offGen)
	}

	r.notifier.NotifyStateChange(StateChange{Device: e.cfg, State: e.state})
	return true
}

// scheduleOff arms the auto-off timer. Caller holds e.mu.
func (r *Registry) scheduleOff(e *entry, gen uint64) {
	e.offTimer = time.AfterFunc(e.cfg.OffDelay, func() {
		r.fireOff(e, gen)
	})
}

// fireOff applies the automatic off if no update superseded the timer.
func (r *Registry) fireOff(e *entry, gen uint64) {
	select {
	case <-r.closing:
		return
	default:
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.offGen != gen {
		// A newer update rescheduled or cancelled this timer.
		return
	}
	e.offTimer = nil
	e.offGen++

	// Flags survive: the battery is still low after the contact resets.
	e.state.Value = false
	e.state.LastUpdate = time.Now()

	r.logger.Debug("auto-off fired",
		"device", e.cfg.Name,
		"address", e.cfg.Address,
		"delay", e.cfg.OffDelay,
	)
	r.notifier.NotifyStateChange(StateChange{Device: e.cfg, State: e.state, AutoOff: true})
}

// Close cancels all pending auto-off timers. Timers that already fired but
// have not yet run observe the closing signal and return without notifying.
func (r *Registry) Close() {
	r.closed.Do(func() {
		close(r.closing)
		for _, e := range r.devices {
			e.mu.Lock()
			if e.offTimer != nil {
				e.offTimer.Stop()
				e.offTimer = nil
			}
			e.mu.Unlock()
		}
	})
}
