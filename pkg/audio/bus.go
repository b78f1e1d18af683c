package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBusClosed is returned by [FrameBus.Pop] once the bus is closed and all
// remaining frames have been drained.
var ErrBusClosed = errors.New("audio: frame bus is closed")

// DefaultBusCapacity bounds the number of frames buffered between the capture
// device and the pipeline when no explicit capacity is configured. At 20 ms
// per frame this is one second of audio.
const DefaultBusCapacity = 50

// FrameBus is a bounded, ordered queue of AudioFrames between the capture
// device and the pipeline. Push never blocks: when the bus is full the oldest
// frame is dropped and the overrun counter incremented, so a slow consumer can
// never stall the capture thread. Pop blocks until a frame is available, the
// bus is closed, or the context is cancelled.
//
// All methods are safe for concurrent use.
type FrameBus struct {
	mu     sync.Mutex
	frames []AudioFrame
	head   int
	count  int
	closed bool

	// avail is signalled (capacity 1) whenever a frame is pushed or the bus
	// is closed, waking a blocked Pop.
	avail chan struct{}

	overruns atomic.Uint64
}

// NewFrameBus creates a bus holding at most capacity frames. A capacity of
// zero or less uses [DefaultBusCapacity].
func NewFrameBus(capacity int) *FrameBus {
	if capacity <= 0 {
		capacity = DefaultBusCapacity
	}
	return &FrameBus{
		frames: make([]AudioFrame, capacity),
		avail:  make(chan struct{}, 1),
	}
}

// Push enqueues a frame. If the bus is full the oldest frame is dropped first
// and the overrun counter incremented. Push never blocks; this is the
// invariant that keeps the capture callback real-time safe. Pushing to a
// closed bus is a no-op.
func (b *FrameBus) Push(frame AudioFrame) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if b.count == len(b.frames) {
		// Drop the oldest frame to make room.
		b.head = (b.head + 1) % len(b.frames)
		b.count--
		b.overruns.Add(1)
	}
	b.frames[(b.head+b.count)%len(b.frames)] = frame
	b.count++
	b.mu.Unlock()

	select {
	case b.avail <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest frame. It blocks until a frame is
// available, returning [ErrBusClosed] once the bus is closed and empty, or
// ctx.Err() if the context is cancelled first.
func (b *FrameBus) Pop(ctx context.Context) (AudioFrame, error) {
	for {
		b.mu.Lock()
		if b.count > 0 {
			frame := b.frames[b.head]
			b.frames[b.head] = AudioFrame{} // release the backing data
			b.head = (b.head + 1) % len(b.frames)
			b.count--
			b.mu.Unlock()
			return frame, nil
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return AudioFrame{}, ErrBusClosed
		}

		select {
		case <-ctx.Done():
			return AudioFrame{}, ctx.Err()
		case <-b.avail:
		}
	}
}

// Close marks the bus closed. Frames already queued remain available to Pop;
// subsequent Push calls are discarded. Close is idempotent.
func (b *FrameBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	select {
	case b.avail <- struct{}{}:
	default:
	}
}

// Overruns returns the total number of frames dropped because the bus was
// full when Push was called.
func (b *FrameBus) Overruns() uint64 {
	return b.overruns.Load()
}

// Len returns the number of frames currently queued.
func (b *FrameBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
