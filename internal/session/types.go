package session

import (
	"context"
	"io"

	"github.com/RAHULGIT99/customer-service/internal/audio"
)

// Sender tags who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry of the ordered conversation log. Entries are
// append-only; the only in-place change is the late binding of Audio once
// synthesis completes for an assistant message.
type Message struct {
	Text   string
	Sender Sender
	Audio  *audio.Handle
}

// Mode is the lifecycle state of the session.
type Mode int

const (
	ModeAwaitingUpload Mode = iota
	ModeUploading
	ModeIndexed
)

func (m Mode) String() string {
	switch m {
	case ModeAwaitingUpload:
		return "awaiting-upload"
	case ModeUploading:
		return "uploading"
	case ModeIndexed:
		return "indexed"
	}
	return "unknown"
}

// Uploader indexes a document and returns its context identifier.
type Uploader interface {
	UploadDocument(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Responder answers a single question against a document context.
type Responder interface {
	Ask(ctx context.Context, question, contextID string) (string, error)
}

// Synthesizer converts answer text into a playable clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*audio.Handle, error)
}
