// Package device wires the local microphone and speakers into the session
// pipeline.
package device

import (
	"context"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/repositories"
	"github.com/leviathanch/Google-Companion/internal/audio"
)

// MicSource captures mono S16 microphone audio and hands it out in
// fixed-size frames.
type MicSource struct {
	logger *zap.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []int16
	closed bool

	audioCtx *malgo.AllocatedContext
	device   *malgo.Device
}

var _ repositories.AudioSource = (*MicSource)(nil)

func NewMicSource(logger *zap.Logger) *MicSource {
	m := &MicSource{logger: logger}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Start opens the default capture device at the session capture rate.
func (m *MicSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return nil
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime
	audioCtx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = audio.CaptureRate
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			samples, err := audio.UnmarshalPCM16(input)
			if err != nil {
				return
			}
			m.mu.Lock()
			m.buf = append(m.buf, samples...)
			m.mu.Unlock()
			m.cond.Signal()
		},
	}

	device, err := malgo.InitDevice(audioCtx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = audioCtx.Uninit()
		return err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = audioCtx.Uninit()
		return err
	}

	m.audioCtx = audioCtx
	m.device = device
	m.closed = false
	m.buf = m.buf[:0]
	m.logger.Info("Microphone capture started", zap.Int("sampleRate", audio.CaptureRate))
	return nil
}

// ReadFrame blocks until a full frame of samples is buffered or the
// context is cancelled.
func (m *MicSource) ReadFrame(ctx context.Context) ([]int16, error) {
	// Wake the waiter when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		m.cond.Broadcast()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.buf) < audio.FrameSamples && !m.closed {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.cond.Wait()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if m.closed {
		return nil, context.Canceled
	}

	frame := make([]int16, audio.FrameSamples)
	copy(frame, m.buf[:audio.FrameSamples])
	m.buf = m.buf[audio.FrameSamples:]
	return frame, nil
}

// Stop releases the capture device. Safe to call repeatedly.
func (m *MicSource) Stop() error {
	m.mu.Lock()
	device := m.device
	audioCtx := m.audioCtx
	m.device = nil
	m.audioCtx = nil
	m.closed = true
	m.mu.Unlock()
	m.cond.Broadcast()

	if device != nil {
		_ = device.Stop()
		device.Uninit()
	}
	if audioCtx != nil {
		_ = audioCtx.Uninit()
	}
	return nil
}
