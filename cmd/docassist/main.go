package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/RAHULGIT99/customer-service/internal/api"
	"github.com/RAHULGIT99/customer-service/internal/audio"
	"github.com/RAHULGIT99/customer-service/internal/capture"
	"github.com/RAHULGIT99/customer-service/internal/config"
	"github.com/RAHULGIT99/customer-service/internal/dialer"
	"github.com/RAHULGIT99/customer-service/internal/kvstore"
	"github.com/RAHULGIT99/customer-service/internal/session"
	"github.com/RAHULGIT99/customer-service/internal/tts"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	client := api.NewClient(cfg.ChatBaseURL, cfg.LanguageCode, cfg.Speaker)

	var synth session.Synthesizer = client
	if cfg.TTSProvider == "deepgram" {
		synth = tts.NewDeepgramClient(cfg.DeepgramKey, cfg.DeepgramModel)
	}
	sess := session.New(client, client, synth)

	pipeline := capture.NewPipeline(capture.NewMicDevice(), client)
	player := audio.NewPlayer()

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		log.Fatalf("state dir: %v", err)
	}
	store, err := kvstore.NewFileStore(filepath.Join(cfg.StateDir, "state.json"))
	if err != nil {
		log.Fatalf("state store: %v", err)
	}

	var dispatcher dialer.Dispatcher = dialer.NewHTTPDispatcher(cfg.CallBaseURL)
	if cfg.CallProvider == "twilio" {
		dispatcher = dialer.NewTwilioDispatcher(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.TwilioAnswerURL)
	}
	limiter, err := dialer.NewLimiter(dispatcher, store, cfg.CountryCode)
	if err != nil {
		log.Fatalf("call limiter: %v", err)
	}
	defer limiter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("shutdown signal received: %v", sig)
		cancel()
		os.Exit(0)
	}()

	fmt.Println("Document assistant. Commands: upload <path>, rec, send, call <number>, reset, status, quit.")
	fmt.Println("Anything else is sent as a question once a document is uploaded.")

	scanner := bufio.NewScanner(os.Stdin)
	var pendingInput string
	for {
		if pendingInput != "" {
			fmt.Printf("[pending: %s]\n", pendingInput)
		}
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg := line, ""
		if i := strings.IndexByte(line, ' '); i >= 0 {
			cmd, arg = line[:i], strings.TrimSpace(line[i+1:])
		}

		switch cmd {
		case "quit", "exit":
			return
		case "upload":
			runUpload(ctx, sess, arg)
		case "rec":
			pendingInput = runRecord(ctx, pipeline)
		case "send":
			if pendingInput == "" {
				fmt.Println("Nothing pending; record with rec first.")
				continue
			}
			ask(ctx, sess, player, pendingInput)
			pendingInput = ""
		case "call":
			runCall(ctx, limiter, arg)
		case "reset":
			sess.Reset()
			pendingInput = ""
			fmt.Println("Session cleared.")
		case "status":
			printStatus(sess, limiter)
		default:
			// Typing a question replaces any pending transcript.
			pendingInput = ""
			ask(ctx, sess, player, line)
		}
	}
}

func runUpload(ctx context.Context, sess *session.Session, path string) {
	if path == "" {
		fmt.Println("usage: upload <path>")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("open: %v\n", err)
		return
	}
	defer f.Close()

	if err := sess.Upload(ctx, filepath.Base(path), f); err != nil {
		fmt.Printf("upload failed: %v\n", err)
		return
	}
	printLastMessage(sess)
}

func ask(ctx context.Context, sess *session.Session, player *audio.Player, text string) {
	answer, err := sess.Submit(ctx, text)
	switch {
	case errors.Is(err, session.ErrNotIndexed):
		fmt.Println("Upload a document first.")
		return
	case errors.Is(err, session.ErrTurnInFlight):
		fmt.Println("Still answering the previous question.")
		return
	case err != nil:
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(answer)

	if h := waitForAudio(sess); h != nil {
		if err := player.Play(h); err != nil {
			log.Printf("playback: %v", err)
		}
	}
}

// waitForAudio waits for the background synthesis of the newest assistant
// message and returns its handle, or nil if synthesis degraded to text.
func waitForAudio(sess *session.Session) *audio.Handle {
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		msgs := sess.Messages()
		if len(msgs) == 0 {
			return nil
		}
		last := msgs[len(msgs)-1]
		if last.Sender != session.SenderAssistant {
			return nil
		}
		if last.Audio != nil {
			return last.Audio
		}
		if !sess.Synthesizing() {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}

// runRecord captures one clip and returns the transcript as pending input.
// The transcript is never submitted automatically; the user sends it with
// the send command or types something else instead.
func runRecord(ctx context.Context, pipeline *capture.Pipeline) string {
	fmt.Printf("Recording for %s...\n", capture.Window)
	transcript, err := pipeline.Record(ctx)
	if err != nil {
		var devErr *capture.DeviceError
		if errors.As(err, &devErr) {
			fmt.Printf("microphone unavailable: %v\n", devErr.Err)
		} else {
			fmt.Printf("recording failed: %v\n", err)
		}
		return ""
	}
	if transcript == "" {
		fmt.Println("Heard nothing.")
		return ""
	}
	fmt.Printf("You said: %s\n", transcript)
	fmt.Println(`Type "send" to submit it, or type a question of your own.`)
	return transcript
}

func runCall(ctx context.Context, limiter *dialer.Limiter, number string) {
	if number == "" {
		fmt.Println("usage: call <10-digit number>")
		return
	}
	err := limiter.RequestCall(ctx, number)
	var valErr *dialer.ValidationError
	switch {
	case errors.As(err, &valErr):
		fmt.Println(valErr.Reason)
		return
	case errors.Is(err, dialer.ErrCooldownActive):
		fmt.Printf("Please wait %s before calling again.\n", dialer.FormatRemaining(limiter.Remaining()))
		return
	case errors.Is(err, dialer.ErrCallInFlight):
		fmt.Println("A call is already being placed.")
		return
	case err != nil:
		fmt.Printf("call failed: %v\n", err)
		return
	}
	fmt.Println("Call initiated successfully!")
}

func printStatus(sess *session.Session, limiter *dialer.Limiter) {
	fmt.Printf("session: %s", sess.Mode())
	if id := sess.ContextID(); id != "" {
		fmt.Printf(" (context %s)", id)
	}
	if sess.PendingTurn() {
		fmt.Print(", answering")
	}
	fmt.Printf(", %d messages\n", len(sess.Messages()))

	status, msg := limiter.Status()
	fmt.Printf("dialer: %s", status)
	if msg != "" {
		fmt.Printf(" (%s)", msg)
	}
	if rem := limiter.Remaining(); rem > 0 {
		fmt.Printf(", cooldown %s", dialer.FormatRemaining(rem))
	}
	fmt.Println()
}

func printLastMessage(sess *session.Session) {
	msgs := sess.Messages()
	if len(msgs) > 0 {
		fmt.Println(msgs[len(msgs)-1].Text)
	}
}
