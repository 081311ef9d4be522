package w800

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-w800/internal/device"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/mqtt"
)

// Publisher is the outbound MQTT surface the bridge needs. *mqtt.Client
// satisfies it; tests substitute in-memory fakes.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
	IsConnected() bool
}

// PortOpener opens a serial session. The bridge calls it once per session,
// including reconnects.
type PortOpener func() (Port, error)

// Bridge wires the receiver, decoders, device registry, and MQTT publisher
// into the running service.
//
// Run supervises serial sessions: it opens the port, drains the receiver's
// frame channel through the decode/dispatch path, and on transport failure
// reopens the port with exponential backoff. Frames are dispatched by a
// single goroutine, so per-device event order matches receive order.
type Bridge struct {
	cfg       config.Config
	logger    *logging.Logger
	publisher Publisher
	registry  *device.Registry
	metrics   *Metrics
	topics    mqtt.Topics
	openPort  PortOpener

	serialUp  atomic.Bool
	startTime time.Time

	dispatched atomic.Uint64
	unmatched  atomic.Uint64
	reconnects atomic.Uint64

	// statsMu guards the cumulative receiver stats and current receiver.
	statsMu   sync.Mutex
	pastStats ReceiverStats
	receiver  *Receiver
}

// NewBridge creates a bridge. The registry must have been built with the
// bridge as its notifier target (see NotifyStateChange); main wires this up
// with a device.NotifierFunc.
func NewBridge(cfg config.Config, publisher Publisher, registry *device.Registry, metrics *Metrics, logger *logging.Logger) *Bridge {
	return &Bridge{
		cfg:       cfg,
		logger:    logger.With("component", "bridge"),
		publisher: publisher,
		registry:  registry,
		metrics:   metrics,
		openPort:  func() (Port, error) { return OpenPort(cfg.Serial) },
		startTime: time.Now(),
	}
}

// Run supervises serial sessions until ctx is cancelled. It only returns a
// non-nil error when the context ends for a reason other than cancellation.
func (b *Bridge) Run(ctx context.Context) error {
	initial := time.Duration(b.cfg.Serial.Reconnect.InitialDelay) * time.Second
	max := time.Duration(b.cfg.Serial.Reconnect.MaxDelay) * time.Second
	delay := initial

	for {
		port, err := b.openPort()
		if err != nil {
			b.logger.Error("serial open failed",
				"device", b.cfg.Serial.Device,
				"retry_in", delay,
				"error", err,
			)
			if !sleepCtx(ctx, delay) {
				return nil
			}
			delay = nextDelay(delay, max)
			continue
		}

		recv := NewReceiver(port, b.logger, b.metrics, 0, func(err error) {
			b.logger.Error("serial session ended", "error", err)
		})
		b.setReceiver(recv)
		recv.Start()
		b.serialUp.Store(true)
		b.logger.Info("serial session opened", "device", b.cfg.Serial.Device)
		delay = initial

		b.dispatch(ctx, recv)

		b.serialUp.Store(false)
		recv.Close()
		b.setReceiver(nil)
		b.accumulate(recv.Stats())

		if ctx.Err() != nil {
			b.logger.Info("bridge stopped")
			return nil
		}

		b.reconnects.Add(1)
		b.metrics.Reconnects.Inc()
		if !sleepCtx(ctx, delay) {
			return nil
		}
		delay = nextDelay(delay, max)
	}
}

// dispatch drains one session's frames in receive order.
func (b *Bridge) dispatch(ctx context.Context, recv *Receiver) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-recv.Frames():
			if !ok {
				return
			}
			b.handleFrame(f)
		}
	}
}

// handleFrame classifies and decodes one frame, then routes the resulting
// event. Decode failures and unmatched events are counted, logged, and
// dropped; RF noise makes both routine.
func (b *Bridge) handleFrame(f RawFrame) {
	b.metrics.FramesTotal.Inc()
	b.logger.Debug("frame received", "frame", f.String())

	class := Classify(f)
	b.metrics.FramesByClass.WithLabelValues(class.String()).Inc()

	now := time.Now()

	switch class {
	case ClassSecurity:
		ev, err := DecodeSecurity(f)
		if err != nil {
			b.metrics.DecodeFailures.WithLabelValues(decodeFailReason(err)).Inc()
			b.logger.Warn("security frame rejected", "frame", f.String(), "error", err)
			return
		}
		b.apply(device.Update{
			Kind:       config.KindSecurity,
			Address:    ev.Address,
			Value:      !ev.Closed,
			HasFlags:   true,
			LowBattery: ev.LowBattery,
			MinDelay:   ev.MinDelay,
			Timestamp:  now,
		}, f)

	case ClassCommand:
		ev, err := DecodeCommand(f)
		if err != nil {
			b.metrics.DecodeFailures.WithLabelValues(decodeFailReason(err)).Inc()
			b.logger.Warn("command frame rejected", "frame", f.String(), "error", err)
			return
		}
		if ev.Command == CommandDim || ev.Command == CommandBright {
			// House-wide dim/bright carries no per-device boolean state.
			b.logger.Debug("house-wide command ignored",
				"house", string(ev.House),
				"command", string(ev.Command),
			)
			return
		}
		b.apply(device.Update{
			Kind:      config.KindX10,
			Address:   ev.Address(),
			Value:     ev.Command == CommandOn,
			Timestamp: now,
		}, f)

	default:
		b.logger.Debug("unrecognized frame", "frame", f.String())
	}
}

// apply routes a decoded update to the registry and records the outcome.
func (b *Bridge) apply(u device.Update, f RawFrame) {
	if b.registry.Apply(u) {
		b.dispatched.Add(1)
		b.metrics.Dispatched.Inc()
		return
	}
	b.unmatched.Add(1)
	b.metrics.Unmatched.Inc()
	b.logger.Info("event has no configured device",
		"kind", string(u.Kind),
		"address", u.Address,
		"frame", f.String(),
	)
}

// NotifyStateChange publishes an applied state change as a retained MQTT
// message. It implements device.Notifier.
func (b *Bridge) NotifyStateChange(change device.StateChange) {
	state := "off"
	if change.State.Value {
		state = "on"
	}

	msg := StateMessage{
		EventID:     uuid.NewString(),
		Device:      change.Device.Name,
		Kind:        string(change.Device.Kind()),
		Address:     change.Device.Address,
		DeviceClass: change.Device.DeviceClass,
		State:       state,
		LowBattery:  change.State.LowBattery,
		MinDelay:    change.State.MinDelay,
		AutoOff:     change.AutoOff,
		Timestamp:   change.State.LastUpdate,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("state message marshal failed", "device", msg.Device, "error", err)
		return
	}

	topic := b.topics.State(msg.Device)
	if err := b.publisher.PublishRetained(topic, payload); err != nil {
		b.logger.Error("state publish failed", "topic", topic, "error", err)
		return
	}

	b.logger.Info("state published",
		"device", msg.Device,
		"state", msg.State,
		"auto_off", msg.AutoOff,
	)
}

// SerialConnected reports whether a serial session is currently open.
func (b *Bridge) SerialConnected() bool {
	return b.serialUp.Load()
}

// Uptime returns how long the bridge has been running.
func (b *Bridge) Uptime() time.Duration {
	return time.Since(b.startTime)
}

// Stats returns cumulative counters across all serial sessions.
func (b *Bridge) Stats() StatsInfo {
	b.statsMu.Lock()
	rs := b.pastStats
	if b.receiver != nil {
		cur := b.receiver.Stats()
		rs.FramesRead += cur.FramesRead
		rs.FramesDropped += cur.FramesDropped
		rs.Desyncs += cur.Desyncs
	}
	b.statsMu.Unlock()

	return StatsInfo{
		FramesRead:    rs.FramesRead,
		FramesDropped: rs.FramesDropped,
		Desyncs:       rs.Desyncs,
		Dispatched:    b.dispatched.Load(),
		Unmatched:     b.unmatched.Load(),
		Reconnects:    b.reconnects.Load(),
	}
}

// Health builds the periodic health payload.
func (b *Bridge) Health() HealthMessage {
	serial := b.SerialConnected()
	return HealthMessage{
		BridgeID:  b.cfg.Bridge.ID,
		Healthy:   serial && b.publisher.IsConnected(),
		Serial:    serial,
		Devices:   b.registry.Count(),
		Uptime:    b.Uptime().Round(time.Second).String(),
		Stats:     b.Stats(),
		Timestamp: time.Now(),
	}
}

func (b *Bridge) setReceiver(r *Receiver) {
	b.statsMu.Lock()
	b.receiver = r
	b.statsMu.Unlock()
}

func (b *Bridge) accumulate(s ReceiverStats) {
	b.statsMu.Lock()
	b.pastStats.FramesRead += s.FramesRead
	b.pastStats.FramesDropped += s.FramesDropped
	b.pastStats.Desyncs += s.Desyncs
	b.statsMu.Unlock()
}

// decodeFailReason maps decode errors to stable metric labels.
func decodeFailReason(err error) string {
	switch {
	case errors.Is(err, ErrChecksum):
		return "checksum"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	default:
		return "other"
	}
}

// sleepCtx waits for d or until ctx is cancelled. It reports whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// nextDelay doubles the backoff up to max.
func nextDelay(d, max time.Duration) time.Duration {
	d *= 2
	if max > 0 && d > max {
		d = max
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}
