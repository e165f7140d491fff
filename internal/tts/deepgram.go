// Package tts provides a direct speech-synthesis provider used as an
// alternative to the backend's synthesis endpoint. It yields raw PCM
// handles rather than encoded clips.
package tts

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"

	"github.com/RAHULGIT99/customer-service/internal/audio"
)

const (
	pcmSampleRate = 48000
	// idleWindow of no incoming audio after which the stream is treated
	// as complete.
	idleWindow = 400 * time.Millisecond
	// streamDeadline bounds one synthesis end to end.
	streamDeadline = 12 * time.Second
)

// DeepgramClient synthesizes speech over Deepgram's speak WebSocket.
type DeepgramClient struct {
	apiKey string
	model  string
}

func NewDeepgramClient(apiKey, model string) *DeepgramClient {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	return &DeepgramClient{apiKey: apiKey, model: model}
}

// Synthesize collects the streamed linear16 audio for text into a single
// PCM handle. Errors degrade the message to text-only at the session
// layer; they never fail the turn.
func (d *DeepgramClient) Synthesize(ctx context.Context, text string) (*audio.Handle, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("tts: deepgram api key missing")
	}
	if text == "" {
		return nil, fmt.Errorf("tts: empty text")
	}

	options := &clientinterfaces.WSSpeakOptions{
		Model:      d.model,
		Encoding:   "linear16",
		SampleRate: pcmSampleRate,
	}

	var lastRecvUnix int64
	var seenAudio int32
	chunks := make(chan []byte, 4096)

	cb := &speakCallback{onBinary: func(data []byte) error {
		if len(data) == 0 {
			return nil
		}
		atomic.StoreInt64(&lastRecvUnix, time.Now().UnixNano())
		atomic.StoreInt32(&seenAudio, 1)
		b := make([]byte, len(data))
		copy(b, data)
		select {
		case chunks <- b:
		default:
		}
		return nil
	}}

	dg, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
	if err != nil {
		return nil, fmt.Errorf("tts: create ws client: %w", err)
	}
	defer dg.Stop()

	if ok := dg.Connect(); !ok {
		return nil, fmt.Errorf("tts: deepgram connect failed")
	}
	if err := dg.SpeakWithText(text); err != nil {
		return nil, fmt.Errorf("tts: speak text: %w", err)
	}
	if err := dg.Flush(); err != nil {
		log.Printf("tts: flush error: %v", err)
	}

	var pcm []byte
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.Now().Add(streamDeadline)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case b := <-chunks:
			pcm = append(pcm, b...)
		case <-ticker.C:
			if atomic.LoadInt32(&seenAudio) == 1 {
				last := time.Unix(0, atomic.LoadInt64(&lastRecvUnix))
				if time.Since(last) > idleWindow {
					return drainInto(pcm, chunks), nil
				}
			}
			if time.Now().After(deadline) {
				if len(pcm) == 0 && len(chunks) == 0 {
					return nil, fmt.Errorf("tts: no audio before deadline")
				}
				return drainInto(pcm, chunks), nil
			}
		}
	}
}

func drainInto(pcm []byte, chunks chan []byte) *audio.Handle {
	for {
		select {
		case b := <-chunks:
			pcm = append(pcm, b...)
		default:
			return audio.NewPCMHandle(pcm, pcmSampleRate, 1)
		}
	}
}

type speakCallback struct{ onBinary func([]byte) error }

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *speakCallback) UnhandledEvent([]byte) error                    { return nil }
func (s *speakCallback) Binary(byMsg []byte) error {
	if s.onBinary != nil {
		return s.onBinary(byMsg)
	}
	return nil
}
