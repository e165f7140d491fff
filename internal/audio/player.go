package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	playerRate     = 48000
	playerChannels = 2
)

// Player plays handles through the default output device. The oto context
// is created lazily on first playback; there is one per process.
type Player struct {
	mu  sync.Mutex
	ctx *oto.Context
}

func NewPlayer() *Player { return &Player{} }

func (p *Player) context() (*oto.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil {
		return p.ctx, nil
	}
	opts := &oto.NewContextOptions{
		SampleRate:   playerRate,
		ChannelCount: playerChannels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("audio: open output device: %w", err)
	}
	<-ready
	p.ctx = ctx
	return ctx, nil
}

// Play decodes the handle and blocks until playback completes.
func (p *Player) Play(h *Handle) error {
	pcm, err := decodeToStereo48k(h)
	if err != nil {
		return err
	}
	ctx, err := p.context()
	if err != nil {
		return err
	}
	pl := ctx.NewPlayer(bytes.NewReader(pcm))
	pl.Play()
	for pl.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return pl.Close()
}
