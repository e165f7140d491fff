package capture

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MicDevice captures s16le mono PCM at SampleRate from the default
// microphone via miniaudio.
type MicDevice struct {
	ctx *malgo.AllocatedContext
	dev *malgo.Device

	mu  sync.Mutex
	buf []byte
}

func NewMicDevice() *MicDevice { return &MicDevice{} }

func (m *MicDevice) Start() error {
	// Drop leftovers from an earlier capture before the device can
	// deliver its first frames.
	m.mu.Lock()
	m.buf = m.buf[:0]
	m.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = SampleRate
	cfg.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, in []byte, _ uint32) {
			m.mu.Lock()
			m.buf = append(m.buf, in...)
			m.mu.Unlock()
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init microphone: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start microphone: %w", err)
	}

	m.ctx = ctx
	m.dev = dev
	return nil
}

func (m *MicDevice) Stop() ([]byte, error) {
	if m.dev != nil {
		_ = m.dev.Stop()
		m.dev.Uninit()
		m.dev = nil
	}
	if m.ctx != nil {
		_ = m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
	m.mu.Lock()
	out := m.buf
	m.buf = nil
	m.mu.Unlock()
	return out, nil
}
