// Package session owns the conversation state machine: upload handshake,
// turn exchange, synthesis enrichment and reset. It composes the backend
// client and enforces the exclusion rules the UI layer used to rely on
// button disabling for.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// FallbackReply is appended in place of an assistant answer when the turn
// exchange fails, so a submitted question is never left unanswered.
const FallbackReply = "Something went wrong with the server."

var (
	ErrEmptyQuestion    = errors.New("session: question is empty")
	ErrNotIndexed       = errors.New("session: no document indexed yet")
	ErrTurnInFlight     = errors.New("session: a turn is already in flight")
	ErrUploadInProgress = errors.New("session: an upload is already in progress")
	ErrAlreadyIndexed   = errors.New("session: a document is already indexed")
)

// Session holds the mode, the ordered message log and the in-flight turn
// flag. All async completions are guarded by a generation counter so work
// belonging to a discarded session can never mutate the live one.
type Session struct {
	uploader  Uploader
	responder Responder
	synth     Synthesizer

	mu          sync.Mutex
	mode        Mode
	contextID   string
	messages    []Message
	pendingTurn bool
	synthOps    int
	gen         uint64
}

// New constructs a session in AwaitingUpload. synth may be nil, in which
// case assistant messages stay text-only.
func New(uploader Uploader, responder Responder, synth Synthesizer) *Session {
	return &Session{uploader: uploader, responder: responder, synth: synth}
}

// Upload indexes a document and, on success, transitions the session to
// Indexed and seeds the log with a welcome message. Failure leaves the
// session in AwaitingUpload so the caller may retry with the same or a
// different file.
func (s *Session) Upload(ctx context.Context, filename string, r io.Reader) error {
	s.mu.Lock()
	switch s.mode {
	case ModeUploading:
		s.mu.Unlock()
		return ErrUploadInProgress
	case ModeIndexed:
		s.mu.Unlock()
		return ErrAlreadyIndexed
	}
	s.mode = ModeUploading
	gen := s.gen
	s.mu.Unlock()

	contextID, err := s.uploader.UploadDocument(ctx, filename, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// Session was reset while the upload was in flight.
		return nil
	}
	if err != nil {
		s.mode = ModeAwaitingUpload
		return err
	}
	s.mode = ModeIndexed
	s.contextID = contextID
	s.messages = append(s.messages, Message{
		Text:   fmt.Sprintf("Success! I've analyzed %q.\n\nAsk me anything about the document.", filename),
		Sender: SenderAssistant,
	})
	return nil
}

// Submit exchanges one turn. The user message is appended before the
// round trip resolves; the context identifier is read from the session at
// call time, never captured earlier. Transport failures are recovered
// locally with FallbackReply. The returned string is whatever text ended
// up paired with the question. Synthesis of the answer runs in the
// background and binds audio onto the message once it completes.
func (s *Session) Submit(ctx context.Context, text string) (string, error) {
	question := strings.TrimSpace(text)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.mode != ModeIndexed {
		s.mu.Unlock()
		return "", ErrNotIndexed
	}
	if s.pendingTurn {
		s.mu.Unlock()
		return "", ErrTurnInFlight
	}
	s.pendingTurn = true
	s.messages = append(s.messages, Message{Text: question, Sender: SenderUser})
	contextID := s.contextID
	gen := s.gen
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.gen == gen {
			s.pendingTurn = false
		}
		s.mu.Unlock()
	}()

	answer, askErr := s.responder.Ask(ctx, question, contextID)
	if askErr != nil {
		log.Printf("session: turn exchange failed: %v", askErr)
		answer = FallbackReply
	}

	idx, live := s.appendAssistant(gen, answer)
	if !live {
		return answer, nil
	}
	if askErr == nil && s.synth != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.synthOps++
			go func() {
				defer s.synthDone()
				s.synthesizeInto(context.WithoutCancel(ctx), gen, idx, answer)
			}()
		}
		s.mu.Unlock()
	}
	return answer, nil
}

// ResynthesizeMessage retries synthesis for an already-appended assistant
// message, enriching it in place on success.
func (s *Session) ResynthesizeMessage(ctx context.Context, index int) error {
	if s.synth == nil {
		return fmt.Errorf("session: no synthesizer configured")
	}
	s.mu.Lock()
	if index < 0 || index >= len(s.messages) || s.messages[index].Sender != SenderAssistant {
		s.mu.Unlock()
		return fmt.Errorf("session: message %d is not an assistant message", index)
	}
	text := s.messages[index].Text
	gen := s.gen
	s.synthOps++
	s.mu.Unlock()

	defer s.synthDone()
	s.synthesizeInto(ctx, gen, index, text)
	return nil
}

func (s *Session) synthDone() {
	s.mu.Lock()
	s.synthOps--
	s.mu.Unlock()
}

// synthesizeInto runs synthesis and attaches the handle to the message at
// idx. Failure degrades to a text-only message; it never fails the turn.
func (s *Session) synthesizeInto(ctx context.Context, gen uint64, idx int, text string) {
	h, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		log.Printf("session: synthesis degraded to text-only: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || idx >= len(s.messages) {
		h.Release()
		return
	}
	if prev := s.messages[idx].Audio; prev != nil {
		prev.Release()
	}
	s.messages[idx].Audio = h
}

// appendAssistant appends an assistant message if the session generation
// still matches. It reports the message index and whether the append took.
func (s *Session) appendAssistant(gen uint64, text string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return 0, false
	}
	s.messages = append(s.messages, Message{Text: text, Sender: SenderAssistant})
	return len(s.messages) - 1, true
}

// Reset discards the context, the message log and any audio handles, and
// returns to AwaitingUpload. In-flight completions for the old generation
// are discarded when they arrive. Resetting an already-empty session is a
// no-op.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeAwaitingUpload && len(s.messages) == 0 {
		return
	}
	s.gen++
	for i := range s.messages {
		if s.messages[i].Audio != nil {
			s.messages[i].Audio.Release()
		}
	}
	s.messages = nil
	s.mode = ModeAwaitingUpload
	s.contextID = ""
	s.pendingTurn = false
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) ContextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextID
}

func (s *Session) PendingTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingTurn
}

// Synthesizing reports whether any synthesis work is still in flight.
func (s *Session) Synthesizing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synthOps > 0
}

// Messages returns a snapshot of the conversation log in append order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
