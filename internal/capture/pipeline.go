// Package capture implements the voice input pipeline: a fixed-duration
// microphone recording followed by one transcription request. At most one
// recording may be outstanding per pipeline.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Window is the capture duration. It is a hard deadline measured from
// start: capture stops when it elapses regardless of audio content, and
// there is no early-stop trigger.
const Window = 4 * time.Second

// SampleRate of captured PCM (s16le mono).
const SampleRate = 16000

// ErrBusy is returned when a recording is started while another capture or
// transcription is still outstanding.
var ErrBusy = errors.New("capture: recording already in progress")

// DeviceError reports a microphone that could not be acquired or read.
// The pipeline aborts straight back to Idle; there is no retry loop.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string { return fmt.Sprintf("capture: device: %v", e.Err) }
func (e *DeviceError) Unwrap() error { return e.Err }

// State of the pipeline.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateTranscribing:
		return "transcribing"
	}
	return "unknown"
}

// Device records PCM from the local microphone. Start begins accumulating;
// Stop ends the capture and returns everything accumulated since Start.
type Device interface {
	Start() error
	Stop() ([]byte, error)
}

// Transcriber converts one packaged audio clip to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Pipeline drives Idle -> Capturing -> Transcribing -> Idle.
type Pipeline struct {
	device      Device
	transcriber Transcriber
	window      time.Duration

	mu    sync.Mutex
	state State
}

func NewPipeline(device Device, transcriber Transcriber) *Pipeline {
	return &Pipeline{device: device, transcriber: transcriber, window: Window}
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Record captures one fixed-length clip and returns its transcript. The
// transcript is intended to populate the pending input field; it is never
// auto-submitted as a turn.
func (p *Pipeline) Record(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return "", ErrBusy
	}
	p.state = StateCapturing
	p.mu.Unlock()
	defer p.setState(StateIdle)

	if err := p.device.Start(); err != nil {
		return "", &DeviceError{Err: err}
	}

	timer := time.NewTimer(p.window)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		_, _ = p.device.Stop()
		return "", ctx.Err()
	}

	pcm, err := p.device.Stop()
	if err != nil {
		return "", &DeviceError{Err: err}
	}

	p.setState(StateTranscribing)
	text, err := p.transcriber.Transcribe(ctx, EncodeWAV(pcm, SampleRate, 1))
	if err != nil {
		return "", fmt.Errorf("capture: transcription: %w", err)
	}
	return text, nil
}
