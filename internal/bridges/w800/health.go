package w800

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/mqtt"
)

// HealthReporter periodically publishes the bridge's health to
// graylogic/health/w800. Messages are retained so monitoring picks up the
// last known state after a restart.
type HealthReporter struct {
	bridge    *Bridge
	publisher Publisher
	logger    *logging.Logger
	interval  time.Duration
	topics    mqtt.Topics

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewHealthReporter creates a reporter. An interval of zero or less disables
// periodic reporting; Start then becomes a no-op.
func NewHealthReporter(bridge *Bridge, publisher Publisher, interval time.Duration, logger *logging.Logger) *HealthReporter {
	return &HealthReporter{
		bridge:    bridge,
		publisher: publisher,
		logger:    logger.With("component", "health"),
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the reporting loop. The first report is published
// immediately so a restart never leaves a stale retained message for a full
// interval.
func (h *HealthReporter) Start() {
	if h.interval <= 0 {
		return
	}
	if !h.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer close(h.done)

		h.publish()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				h.publish()
			}
		}
	}()
}

// Stop ends the reporting loop and waits for it to exit. Safe to call more
// than once, and safe before Start.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	if h.started.Load() {
		<-h.done
	}
}

// publish sends one health message. Failures are logged and skipped; the
// next tick retries.
func (h *HealthReporter) publish() {
	msg := h.bridge.Health()

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("health message marshal failed", "error", err)
		return
	}

	if err := h.publisher.PublishRetained(h.topics.Health(), payload); err != nil {
		h.logger.Warn("health publish failed", "error", err)
		return
	}

	h.logger.Debug("health published", "healthy", msg.Healthy, "serial", msg.Serial)
}
