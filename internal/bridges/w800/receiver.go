package w800

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/logging"
)

// Port is the minimal serial interface the receiver reads from.
// go.bug.st/serial's Port satisfies it; tests substitute in-memory scripts.
type Port interface {
	Read(p []byte) (int, error)
	Close() error
}

// OpenPort opens the W800RF32's serial device with the configured line
// settings. The device is fixed at 8N1; only the path and baud rate (4800
// in practice) come from configuration. The read timeout bounds each Read
// call so the receiver can detect inter-frame gaps and resynchronise.
func OpenPort(cfg config.SerialConfig) (Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Device, err)
	}

	timeout := time.Duration(cfg.ReadTimeout) * time.Millisecond
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", cfg.Device, err)
	}

	return port, nil
}

// ReceiverStats is a point-in-time snapshot of receiver counters.
type ReceiverStats struct {
	// FramesRead is the number of complete 4-byte frames delivered.
	FramesRead uint64

	// FramesDropped is the number of complete frames discarded because the
	// consumer fell behind and the frame channel was full.
	FramesDropped uint64

	// Desyncs is the number of partial frames discarded after a read
	// timeout split a frame, forcing resynchronisation on the next byte.
	Desyncs uint64
}

// Receiver reads the serial byte stream and reassembles it into frames.
//
// A Receiver runs exactly one session: Start launches the read loop, and the
// loop ends on the first transport error or on Close. The Frames channel is
// closed when the loop exits; the owner decides whether to open a new port
// and build a new Receiver.
//
// The wire protocol has no framing markers, so the receiver accumulates
// bytes into a 4-byte buffer and relies on the read timeout to detect
// desynchronisation: a timeout with a partially filled buffer means the
// buffered bytes straddle a gap and cannot belong to one frame, so they are
// dropped and counted.
type Receiver struct {
	port    Port
	logger  *logging.Logger
	metrics *Metrics

	frames chan RawFrame

	// onError receives the transport error that ended the session.
	// Never called on clean Close.
	onError func(error)

	framesRead    atomic.Uint64
	framesDropped atomic.Uint64
	desyncs       atomic.Uint64

	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewReceiver creates a receiver for an open port. metrics may be nil.
//
// frameBuffer sizes the frame channel. Frames arriving while the channel is
// full are dropped and counted rather than blocking the read loop; at 4800
// baud a frame takes ~8ms on the wire, so a small buffer absorbs any
// realistic dispatch stall.
func NewReceiver(port Port, logger *logging.Logger, metrics *Metrics, frameBuffer int, onError func(error)) *Receiver {
	if frameBuffer <= 0 {
		frameBuffer = 32
	}
	return &Receiver{
		port:    port,
		logger:  logger.With("component", "receiver"),
		metrics: metrics,
		frames:  make(chan RawFrame, frameBuffer),
		onError: onError,
		done:    make(chan struct{}),
	}
}

// Frames returns the channel of reassembled frames. The channel is closed
// when the session ends, whether by transport error or by Close.
func (r *Receiver) Frames() <-chan RawFrame {
	return r.frames
}

// Start launches the read loop. It returns ErrReceiverClosed if the
// receiver was already closed.
func (r *Receiver) Start() error {
	if r.closed.Load() {
		return ErrReceiverClosed
	}
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}
	go r.readLoop()
	return nil
}

// Close ends the session and releases the port. Safe to call concurrently
// and more than once. Close waits for the read loop to exit so callers can
// reopen the device immediately afterwards.
func (r *Receiver) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		// Closing the port unblocks any in-flight Read.
		err = r.port.Close()
		if r.started.Load() {
			<-r.done
		}
	})
	return err
}

// Stats returns a snapshot of the receiver's counters.
func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		FramesRead:    r.framesRead.Load(),
		FramesDropped: r.framesDropped.Load(),
		Desyncs:       r.desyncs.Load(),
	}
}

// readLoop reads bytes until the session ends. It runs in its own goroutine.
func (r *Receiver) readLoop() {
	defer close(r.done)
	defer close(r.frames)

	var frame RawFrame
	fill := 0
	buf := make([]byte, FrameSize)

	for {
		n, err := r.port.Read(buf[:FrameSize-fill])
		if err != nil {
			if r.closed.Load() {
				return
			}
			r.logger.Error("serial read failed", "error", err)
			if r.onError != nil {
				r.onError(fmt.Errorf("%w: %v", ErrTransport, err))
			}
			return
		}

		// n == 0 is a read timeout. Mid-frame it means the buffered bytes
		// straddle an inter-frame gap; drop them and resynchronise.
		if n == 0 {
			if fill > 0 {
				r.desyncs.Add(1)
				if r.metrics != nil {
					r.metrics.Desyncs.Inc()
				}
				r.logger.Warn("partial frame discarded on read timeout",
					"buffered", fill,
					"bytes", fmt.Sprintf("%x", frame[:fill]),
				)
				fill = 0
			}
			continue
		}

		copy(frame[fill:], buf[:n])
		fill += n
		if fill < FrameSize {
			continue
		}
		fill = 0

		select {
		case r.frames <- frame:
			r.framesRead.Add(1)
		default:
			r.framesDropped.Add(1)
			if r.metrics != nil {
				r.metrics.FramesDropped.Inc()
			}
			r.logger.Warn("frame dropped, consumer behind", "frame", frame.String())
		}
	}
}
