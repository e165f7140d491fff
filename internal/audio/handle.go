// Package audio holds transient synthesized-audio handles and a local
// playback player. Handles have no persistence; the session releases them
// when the message log is cleared.
package audio

// Handle is a transient local reference to a synthesized audio clip.
type Handle struct {
	mime       string
	sampleRate int
	channels   int
	data       []byte
}

// NewHandle wraps an encoded clip (e.g. audio/mpeg) returned by the
// synthesis endpoint.
func NewHandle(mime string, data []byte) *Handle {
	return &Handle{mime: mime, data: data}
}

// NewPCMHandle wraps raw s16le PCM produced by a direct synthesis provider.
func NewPCMHandle(data []byte, sampleRate, channels int) *Handle {
	return &Handle{mime: "audio/pcm", sampleRate: sampleRate, channels: channels, data: data}
}

func (h *Handle) MIME() string  { return h.mime }
func (h *Handle) Bytes() []byte { return h.data }

// Release drops the underlying buffer. The handle is unusable afterwards.
func (h *Handle) Release() {
	h.data = nil
}

// Released reports whether the clip has been released or never held data.
func (h *Handle) Released() bool { return len(h.data) == 0 }
