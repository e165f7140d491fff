package audio

import (
	"bytes"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// decodeToStereo48k converts a handle's clip to s16le stereo PCM at the
// player rate. Supported inputs: audio/mpeg and raw PCM handles.
func decodeToStereo48k(h *Handle) ([]byte, error) {
	if h == nil || h.Released() {
		return nil, fmt.Errorf("audio: empty handle")
	}
	switch h.mime {
	case "audio/mpeg":
		dec, err := mp3.NewDecoder(bytes.NewReader(h.data))
		if err != nil {
			return nil, fmt.Errorf("audio: mpeg decode: %w", err)
		}
		pcm, err := io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("audio: mpeg read: %w", err)
		}
		// go-mp3 always yields s16le stereo at the source rate.
		return resampleStereoS16LE(pcm, dec.SampleRate(), playerRate), nil
	case "audio/pcm":
		pcm := h.data
		if h.channels == 1 {
			pcm = monoToStereoS16LE(pcm)
		}
		return resampleStereoS16LE(pcm, h.sampleRate, playerRate), nil
	default:
		return nil, fmt.Errorf("audio: unsupported media type %q", h.mime)
	}
}

// monoToStereoS16LE duplicates each mono sample into both channels.
func monoToStereoS16LE(pcm []byte) []byte {
	n := len(pcm) / 2
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		out[i*4] = pcm[i*2]
		out[i*4+1] = pcm[i*2+1]
		out[i*4+2] = pcm[i*2]
		out[i*4+3] = pcm[i*2+1]
	}
	return out
}

// resampleStereoS16LE maps stereo frames from one rate to another by
// nearest-frame selection. Good enough for speech playback.
func resampleStereoS16LE(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 {
		return pcm
	}
	frames := len(pcm) / 4
	outFrames := frames * to / from
	out := make([]byte, outFrames*4)
	for i := 0; i < outFrames; i++ {
		src := i * from / to
		if src >= frames {
			src = frames - 1
		}
		copy(out[i*4:i*4+4], pcm[src*4:src*4+4])
	}
	return out
}
