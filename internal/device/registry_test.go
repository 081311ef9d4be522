package device

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/logging"
)

// recorder collects state changes for assertions.
type recorder struct {
	mu      sync.Mutex
	changes []StateChange
}

func (r *recorder) NotifyStateChange(change StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recorder) snapshot() []StateChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StateChange, len(r.changes))
	copy(out, r.changes)
	return out
}

func (r *recorder) waitFor(t *testing.T, n int, timeout time.Duration) []StateChange {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got := r.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d state changes, got %d", n, len(r.snapshot()))
	return nil
}

func testDevices() []config.DeviceConfig {
	return []config.DeviceConfig{
		{Address: "5a", Type: "security", Name: "front-door", DeviceClass: "door"},
		{Address: "a5", Type: "x10", Name: "hall-lamp"},
		{Address: "a5", Type: "security", Name: "hall-motion", DeviceClass: "motion"},
	}
}

func newTestRegistry(t *testing.T, devices []config.DeviceConfig) (*Registry, *recorder) {
	t.Helper()
	rec := &recorder{}
	reg := NewRegistry(devices, rec, logging.Default())
	t.Cleanup(reg.Close)
	return reg, rec
}

func TestApply_Routing(t *testing.T) {
	reg, _ := newTestRegistry(t, testDevices())

	tests := []struct {
		name    string
		update  Update
		matched bool
	}{
		{
			name:    "security address matches security device",
			update:  Update{Kind: config.KindSecurity, Address: "5a", Value: true},
			matched: true,
		},
		{
			name:    "x10 address matches x10 device",
			update:  Update{Kind: config.KindX10, Address: "a5", Value: true},
			matched: true,
		},
		{
			name:    "overlapping address routes by kind",
			update:  Update{Kind: config.KindSecurity, Address: "a5", Value: true},
			matched: true,
		},
		{
			name:    "unconfigured address is unmatched",
			update:  Update{Kind: config.KindX10, Address: "b3", Value: true},
			matched: false,
		},
		{
			name:    "kind mismatch is unmatched",
			update:  Update{Kind: config.KindX10, Address: "5a", Value: true},
			matched: false,
		},
		{
			name:    "uppercase address still routes",
			update:  Update{Kind: config.KindSecurity, Address: "5A", Value: true},
			matched: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.Apply(tt.update); got != tt.matched {
				t.Errorf("Apply() = %v, want %v", got, tt.matched)
			}
		})
	}
}

func TestApply_UnmatchedChangesNothing(t *testing.T) {
	reg, rec := newTestRegistry(t, testDevices())

	if reg.Apply(Update{Kind: config.KindX10, Address: "c7", Value: true}) {
		t.Fatal("Apply() matched an unconfigured device")
	}
	if len(rec.snapshot()) != 0 {
		t.Errorf("unmatched update produced %d notifications, want 0", len(rec.snapshot()))
	}
	if st, ok := reg.GetState(config.KindSecurity, "5a"); !ok || st.Known {
		t.Errorf("GetState = %+v, %v; want unknown state, true", st, ok)
	}
}

func TestApply_StateAndNotification(t *testing.T) {
	reg, rec := newTestRegistry(t, testDevices())

	now := time.Now()
	reg.Apply(Update{
		Kind:       config.KindSecurity,
		Address:    "5a",
		Value:      true,
		HasFlags:   true,
		LowBattery: true,
		MinDelay:   true,
		Timestamp:  now,
	})

	st, ok := reg.GetState(config.KindSecurity, "5a")
	if !ok {
		t.Fatal("GetState() did not find configured device")
	}
	if !st.Known || !st.Value || !st.LowBattery || !st.MinDelay {
		t.Errorf("state = %+v, want known open low-battery min-delay", st)
	}
	if !st.LastUpdate.Equal(now) {
		t.Errorf("LastUpdate = %v, want %v", st.LastUpdate, now)
	}

	changes := rec.snapshot()
	if len(changes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(changes))
	}
	if changes[0].Device.Name != "front-door" {
		t.Errorf("notified device = %q, want front-door", changes[0].Device.Name)
	}
	if changes[0].AutoOff {
		t.Error("frame-driven change marked AutoOff")
	}
}

func TestApply_FlagsStickWithoutFlagsUpdate(t *testing.T) {
	reg, _ := newTestRegistry(t, testDevices())

	reg.Apply(Update{
		Kind: config.KindSecurity, Address: "5a",
		Value: true, HasFlags: true, LowBattery: true,
	})
	// A flag-less update (as a command event would be) must not clear flags.
	reg.Apply(Update{Kind: config.KindSecurity, Address: "5a", Value: false})

	st, _ := reg.GetState(config.KindSecurity, "5a")
	if !st.LowBattery {
		t.Error("LowBattery cleared by update without flags")
	}

	// A flagged update with the flag clear does reset it.
	reg.Apply(Update{Kind: config.KindSecurity, Address: "5a", Value: false, HasFlags: true})
	st, _ = reg.GetState(config.KindSecurity, "5a")
	if st.LowBattery {
		t.Error("LowBattery not cleared by flagged update")
	}
}

func TestAutoOff_Fires(t *testing.T) {
	devices := []config.DeviceConfig{
		{Address: "5a", Type: "security", Name: "front-door", OffDelay: 30 * time.Millisecond},
	}
	reg, rec := newTestRegistry(t, devices)

	reg.Apply(Update{
		Kind: config.KindSecurity, Address: "5a",
		Value: true, HasFlags: true, LowBattery: true,
	})

	changes := rec.waitFor(t, 2, time.Second)
	off := changes[1]
	if !off.AutoOff {
		t.Error("second change not marked AutoOff")
	}
	if off.State.Value {
		t.Error("auto-off left device on")
	}
	if !off.State.LowBattery {
		t.Error("auto-off cleared sticky LowBattery flag")
	}

	// The timer is single-fire: no further changes arrive.
	time.Sleep(80 * time.Millisecond)
	if got := len(rec.snapshot()); got != 2 {
		t.Errorf("notifications = %d, want 2", got)
	}
}

func TestAutoOff_RescheduledByNewEvent(t *testing.T) {
	devices := []config.DeviceConfig{
		{Address: "5a", Type: "security", Name: "front-door", OffDelay: 60 * time.Millisecond},
	}
	reg, rec := newTestRegistry(t, devices)

	reg.Apply(Update{Kind: config.KindSecurity, Address: "5a", Value: true, HasFlags: true})
	time.Sleep(35 * time.Millisecond)
	// Second open event before expiry pushes the deadline forward.
	reg.Apply(Update{Kind: config.KindSecurity, Address: "5a", Value: true, HasFlags: true})
	time.Sleep(35 * time.Millisecond)

	// Original deadline has passed but the rescheduled one has not.
	for _, c := range rec.snapshot() {
		if c.AutoOff {
			t.Fatal("auto-off fired before rescheduled deadline")
		}
	}

	changes := rec.waitFor(t, 3, time.Second)
	if !changes[2].AutoOff {
		t.Error("final change not marked AutoOff")
	}
}

func TestAutoOff_CancelledByOffEvent(t *testing.T) {
	devices := []config.DeviceConfig{
		{Address: "5a", Type: "security", Name: "front-door", OffDelay: 30 * time.Millisecond},
	}
	reg, rec := newTestRegistry(t, devices)

	reg.Apply(Update{Kind: config.KindSecurity, Address: "5a", Value: true, HasFlags: true})
	reg.Apply(Update{Kind: config.KindSecurity, Address: "5a", Value: false, HasFlags: true})

	time.Sleep(80 * time.Millisecond)
	for _, c := range rec.snapshot() {
		if c.AutoOff {
			t.Fatal("auto-off fired after an explicit off cancelled it")
		}
	}
}

func TestAutoOff_NotScheduledWithoutDelay(t *testing.T) {
	reg, rec := newTestRegistry(t, testDevices())

	reg.Apply(Update{Kind: config.KindSecurity, Address: "5a", Value: true, HasFlags: true})
	time.Sleep(50 * time.Millisecond)

	if got := len(rec.snapshot()); got != 1 {
		t.Errorf("notifications = %d, want 1 (no auto-off configured)", got)
	}
}

func TestClose_CancelsPendingTimers(t *testing.T) {
	devices := []config.DeviceConfig{
		{Address: "5a", Type: "security", Name: "front-door", OffDelay: 20 * time.Millisecond},
	}
	rec := &recorder{}
	reg := NewRegistry(devices, rec, logging.Default())

	reg.Apply(Update{Kind: config.KindSecurity, Address: "5a", Value: true, HasFlags: true})
	reg.Close()

	time.Sleep(60 * time.Millisecond)
	for _, c := range rec.snapshot() {
		if c.AutoOff {
			t.Fatal("auto-off fired after Close")
		}
	}
}

func TestDevices_Snapshot(t *testing.T) {
	reg, _ := newTestRegistry(t, testDevices())

	reg.Apply(Update{Kind: config.KindX10, Address: "a5", Value: true})

	all := reg.Devices()
	if len(all) != 3 {
		t.Fatalf("Devices() = %d entries, want 3", len(all))
	}
	var lamp *StateChange
	for i := range all {
		if all[i].Device.Name == "hall-lamp" {
			lamp = &all[i]
		}
	}
	if lamp == nil {
		t.Fatal("hall-lamp missing from snapshot")
	}
	if !lamp.State.Known || !lamp.State.Value {
		t.Errorf("hall-lamp state = %+v, want known on", lamp.State)
	}
}

func TestCount(t *testing.T) {
	reg, _ := newTestRegistry(t, testDevices())
	if got := reg.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
}
