// Package malgo provides microphone capture and speaker playback devices
// backed by the miniaudio library via the gen2brain/malgo bindings. It is the
// default audio backend on desktop systems (ALSA/PulseAudio on Linux,
// CoreAudio on macOS, WASAPI on Windows).
package malgo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

// DefaultFrameDuration is the duration of each captured AudioFrame. 20 ms is
// small enough for responsive endpointing and large enough to keep the bus
// push rate modest.
const DefaultFrameDuration = 20 * time.Millisecond

// Option configures a Device during construction.
type Option func(*Device)

// WithFrameDuration sets the duration of each captured frame. Values below
// 10 ms are clamped to 10 ms.
func WithFrameDuration(d time.Duration) Option {
	return func(dev *Device) {
		if d < 10*time.Millisecond {
			d = 10 * time.Millisecond
		}
		dev.frameDur = d
	}
}

// WithDeviceName selects a capture device by name substring. An empty name
// uses the system default device.
func WithDeviceName(name string) Option {
	return func(dev *Device) { dev.deviceName = name }
}

// Device is a miniaudio-backed capture device implementing
// [audio.CaptureDevice]. One Device owns one malgo context and at most one
// open capture stream.
type Device struct {
	format     audio.Format
	frameDur   time.Duration
	deviceName string

	mu      sync.Mutex
	mctx    *malgo.AllocatedContext
	capture *malgo.Device
	errCh   chan error
	stopped bool
}

// Compile-time interface assertions.
var (
	_ audio.CaptureDevice  = (*Device)(nil)
	_ audio.PlaybackDevice = (*Player)(nil)
)

// NewDevice creates a capture device producing 16-bit PCM frames in the given
// format. The underlying miniaudio context is initialised lazily in Start.
func NewDevice(format audio.Format, opts ...Option) (*Device, error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("malgo: invalid capture format %s", format)
	}
	d := &Device{
		format:   format,
		frameDur: DefaultFrameDuration,
		errCh:    make(chan error, 1),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Start opens the capture stream and begins pushing frames to bus. The malgo
// data callback runs on miniaudio's audio thread; it must never block, so
// frames go straight into the non-blocking bus push.
func (d *Device) Start(ctx context.Context, bus *audio.FrameBus) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture != nil {
		return errors.New("malgo: capture already started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		slog.Debug("miniaudio", "msg", msg)
	})
	if err != nil {
		return &audio.DeviceError{Device: "capture", Err: fmt.Errorf("init context: %w", err)}
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(d.format.Channels)
	cfg.SampleRate = uint32(d.format.SampleRate)
	cfg.Alsa.NoMMap = 1

	if d.deviceName != "" {
		if id, err := d.findDevice(mctx, d.deviceName); err == nil {
			cfg.Capture.DeviceID = id.Pointer()
		} else {
			slog.Warn("capture device not found, using default", "name", d.deviceName, "err", err)
		}
	}

	frameBytes := int(d.frameDur.Seconds() * float64(d.format.SampleRate * d.format.Channels * 2))
	if frameBytes <= 0 {
		frameBytes = 640
	}

	start := time.Now()
	var pending []byte

	onRecv := func(_, samples []byte, frameCount uint32) {
		if frameCount == 0 {
			return
		}
		pending = append(pending, samples...)
		for len(pending) >= frameBytes {
			data := make([]byte, frameBytes)
			copy(data, pending[:frameBytes])
			pending = pending[frameBytes:]
			bus.Push(audio.AudioFrame{
				Data:       data,
				SampleRate: d.format.SampleRate,
				Channels:   d.format.Channels,
				Timestamp:  time.Since(start),
			})
		}
	}

	onStop := func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			// The backend stopped the stream without a Stop call: the device
			// disappeared or the audio server died. Fatal by policy.
			select {
			case d.errCh <- &audio.DeviceError{Device: "capture", Err: errors.New("stream stopped unexpectedly")}:
			default:
			}
		}
	}

	capture, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: onRecv,
		Stop: onStop,
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return &audio.DeviceError{Device: "capture", Err: fmt.Errorf("init device: %w", err)}
	}

	if err := capture.Start(); err != nil {
		capture.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return &audio.DeviceError{Device: "capture", Err: fmt.Errorf("start: %w", err)}
	}

	d.mctx = mctx
	d.capture = capture
	slog.Info("capture started", "format", d.format.String(), "frame", d.frameDur)
	return nil
}

// Errors returns the channel on which fatal device errors are delivered.
func (d *Device) Errors() <-chan error { return d.errCh }

// Stop halts capture and releases the device and context. Idempotent.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return nil
	}
	d.stopped = true

	if d.capture != nil {
		d.capture.Uninit()
		d.capture = nil
	}
	if d.mctx != nil {
		_ = d.mctx.Uninit()
		d.mctx.Free()
		d.mctx = nil
	}
	close(d.errCh)
	return nil
}

// findDevice returns the ID of the first capture device whose name contains
// name (case-sensitive substring match).
func (d *Device) findDevice(mctx *malgo.AllocatedContext, name string) (malgo.DeviceID, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, err
	}
	for _, info := range infos {
		if strings.Contains(info.Name(), name) {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("no capture device matching %q", name)
}
