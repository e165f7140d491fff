package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeDevice struct {
	startErr error
	stopErr  error
	pcm      []byte
	started  int32
	stopped  int32
}

func (f *fakeDevice) Start() error {
	atomic.AddInt32(&f.started, 1)
	return f.startErr
}

func (f *fakeDevice) Stop() ([]byte, error) {
	atomic.AddInt32(&f.stopped, 1)
	return f.pcm, f.stopErr
}

type fakeTranscriber struct {
	text    string
	err     error
	calls   int32
	lastWAV []byte
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.lastWAV = wav
	return f.text, f.err
}

func shortPipeline(dev Device, tr Transcriber) *Pipeline {
	p := NewPipeline(dev, tr)
	p.window = 30 * time.Millisecond
	return p
}

func TestWindow_IsFourSeconds(t *testing.T) {
	if Window != 4*time.Second {
		t.Fatalf("capture window must be exactly 4 seconds, got %v", Window)
	}
	p := NewPipeline(&fakeDevice{}, &fakeTranscriber{})
	if p.window != Window {
		t.Fatalf("pipeline must default to the fixed window")
	}
}

func TestRecord_HappyPathTransitions(t *testing.T) {
	dev := &fakeDevice{pcm: []byte{1, 0, 2, 0}}
	tr := &fakeTranscriber{text: "hello there"}
	p := shortPipeline(dev, tr)

	if p.State() != StateIdle {
		t.Fatalf("expected Idle before recording")
	}
	text, err := p.Record(context.Background())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("unexpected transcript %q", text)
	}
	if p.State() != StateIdle {
		t.Fatalf("expected Idle after recording, got %v", p.State())
	}
	if dev.started != 1 || dev.stopped != 1 {
		t.Fatalf("device start/stop mismatch: %d/%d", dev.started, dev.stopped)
	}
	// The clip must have been packaged as WAV before transcription.
	if len(tr.lastWAV) != 44+len(dev.pcm) || string(tr.lastWAV[:4]) != "RIFF" {
		t.Fatalf("expected WAV-packaged clip, got %d bytes", len(tr.lastWAV))
	}
}

func TestRecord_CaptureLastsTheFullWindow(t *testing.T) {
	dev := &fakeDevice{}
	p := shortPipeline(dev, &fakeTranscriber{text: "x"})
	start := time.Now()
	if _, err := p.Record(context.Background()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if elapsed := time.Since(start); elapsed < p.window {
		t.Fatalf("capture stopped before the window elapsed: %v < %v", elapsed, p.window)
	}
}

func TestRecord_DeviceFailureAbortsToIdle(t *testing.T) {
	dev := &fakeDevice{startErr: errors.New("permission denied")}
	tr := &fakeTranscriber{}
	p := shortPipeline(dev, tr)

	_, err := p.Record(context.Background())
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeviceError, got %v", err)
	}
	if p.State() != StateIdle {
		t.Fatalf("device failure must abort straight back to Idle")
	}
	if atomic.LoadInt32(&tr.calls) != 0 {
		t.Fatalf("no transcription request may be issued after a device failure")
	}
}

func TestRecord_MutualExclusion(t *testing.T) {
	dev := &fakeDevice{}
	p := shortPipeline(dev, &fakeTranscriber{text: "x"})

	done := make(chan struct{})
	go func() {
		_, _ = p.Record(context.Background())
		close(done)
	}()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && p.State() == StateIdle {
		time.Sleep(time.Millisecond)
	}

	if _, err := p.Record(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while capturing, got %v", err)
	}
	<-done
	if atomic.LoadInt32(&dev.started) != 1 {
		t.Fatalf("rejected recording must not touch the device")
	}
}

func TestRecord_TranscriptionErrorReturnsToIdle(t *testing.T) {
	p := shortPipeline(&fakeDevice{}, &fakeTranscriber{err: errors.New("503")})
	if _, err := p.Record(context.Background()); err == nil {
		t.Fatalf("expected transcription error")
	}
	if p.State() != StateIdle {
		t.Fatalf("pipeline must settle back to Idle after failure")
	}
}

func TestRecord_ContextCancelStopsDevice(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPipeline(dev, &fakeTranscriber{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if _, err := p.Record(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if atomic.LoadInt32(&dev.stopped) != 1 {
		t.Fatalf("device must be stopped on cancellation")
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0}
	wav := EncodeWAV(pcm, SampleRate, 1)
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("malformed RIFF header")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != SampleRate {
		t.Fatalf("sample rate = %d, want %d", got, SampleRate)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data length = %d, want %d", got, len(pcm))
	}
	if len(wav) != 44+len(pcm) {
		t.Fatalf("total length = %d, want %d", len(wav), 44+len(pcm))
	}
}
