package dialer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RAHULGIT99/customer-service/internal/kvstore"
)

type fakeDispatcher struct {
	err     error
	calls   int32
	lastTo  string
	release chan struct{}
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, toNumber string) error {
	atomic.AddInt32(&f.calls, 1)
	f.lastTo = toNumber
	if f.release != nil {
		<-f.release
	}
	return f.err
}

func newTestLimiter(t *testing.T, d Dispatcher, store kvstore.Store) *Limiter {
	t.Helper()
	l, err := NewLimiter(d, store, "+91")
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

func TestRequestCall_ValidationRejectsBeforeNetwork(t *testing.T) {
	d := &fakeDispatcher{}
	l := newTestLimiter(t, d, kvstore.NewMemStore())

	for _, number := range []string{"", "12345", "12345678901", "98765abc10"} {
		err := l.RequestCall(context.Background(), number)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("number %q: expected ValidationError, got %v", number, err)
		}
	}
	if atomic.LoadInt32(&d.calls) != 0 {
		t.Fatalf("validation failures must issue zero network calls, got %d", d.calls)
	}
}

func TestRequestCall_PrependsCountryCode(t *testing.T) {
	d := &fakeDispatcher{}
	l := newTestLimiter(t, d, kvstore.NewMemStore())
	if err := l.RequestCall(context.Background(), "9876543210"); err != nil {
		t.Fatalf("request call: %v", err)
	}
	if d.lastTo != "+919876543210" {
		t.Fatalf("expected prefixed number, got %q", d.lastTo)
	}
}

func TestRequestCall_SecondCallRejectedDuringCooldown(t *testing.T) {
	d := &fakeDispatcher{}
	l := newTestLimiter(t, d, kvstore.NewMemStore())

	if err := l.RequestCall(context.Background(), "9876543210"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := l.RequestCall(context.Background(), "9876543210"); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
	if atomic.LoadInt32(&d.calls) != 1 {
		t.Fatalf("rejected call must not reach the network, got %d dispatches", d.calls)
	}
	if r := l.Remaining(); r <= 0 || r > int(CooldownDuration/time.Second) {
		t.Fatalf("unexpected remaining %d", r)
	}
}

func TestRequestCall_FailureStartsNoCooldown(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("twilio 500")}
	store := kvstore.NewMemStore()
	l := newTestLimiter(t, d, store)

	if err := l.RequestCall(context.Background(), "9876543210"); err == nil {
		t.Fatalf("expected dispatch error")
	}
	if l.Remaining() != 0 {
		t.Fatalf("failed dispatch must start no cooldown")
	}
	if _, ok, _ := store.Get("call_cooldown_end"); ok {
		t.Fatalf("failed dispatch must not persist a cooldown")
	}
	// Immediate retry is allowed.
	d.err = nil
	if err := l.RequestCall(context.Background(), "9876543210"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestRequestCall_InFlightExclusion(t *testing.T) {
	release := make(chan struct{})
	d := &fakeDispatcher{release: release}
	l := newTestLimiter(t, d, kvstore.NewMemStore())

	done := make(chan struct{})
	go func() {
		_ = l.RequestCall(context.Background(), "9876543210")
		close(done)
	}()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s, _ := l.Status(); s == StatusCalling {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := l.RequestCall(context.Background(), "9876543210"); !errors.Is(err, ErrCallInFlight) {
		t.Fatalf("expected ErrCallInFlight, got %v", err)
	}
	close(release)
	<-done
	if atomic.LoadInt32(&d.calls) != 1 {
		t.Fatalf("expected a single dispatch, got %d", d.calls)
	}
}

func TestCooldown_PersistsAcrossRestart(t *testing.T) {
	store := kvstore.NewMemStore()
	l := newTestLimiter(t, &fakeDispatcher{}, store)
	if err := l.RequestCall(context.Background(), "9876543210"); err != nil {
		t.Fatalf("request call: %v", err)
	}
	want := l.Remaining()

	// Same persisted timestamp, fresh limiter: the restart case.
	l2 := newTestLimiter(t, &fakeDispatcher{}, store)
	got := l2.Remaining()
	if got < want-1 || got > want+1 {
		t.Fatalf("restart drifted beyond one second: got %d want ~%d", got, want)
	}
	if err := l2.RequestCall(context.Background(), "9876543210"); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("resumed cooldown must still gate calls, got %v", err)
	}
}

func TestCooldown_ExpiredRecordDeletedOnLoad(t *testing.T) {
	store := kvstore.NewMemStore()
	past := time.Now().Add(-time.Minute).Unix()
	if err := store.Set("call_cooldown_end", strconv.FormatInt(past, 10)); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	d := &fakeDispatcher{}
	l := newTestLimiter(t, d, store)
	if l.Remaining() != 0 {
		t.Fatalf("expired cooldown must not resume")
	}
	if _, ok, _ := store.Get("call_cooldown_end"); ok {
		t.Fatalf("expired record must be deleted on load")
	}
	if err := l.RequestCall(context.Background(), "9876543210"); err != nil {
		t.Fatalf("call must be permitted after expiry: %v", err)
	}
}

func TestCooldown_GarbageRecordTolerated(t *testing.T) {
	store := kvstore.NewMemStore()
	_ = store.Set("call_cooldown_end", "not-a-number")
	l := newTestLimiter(t, &fakeDispatcher{}, store)
	if l.Remaining() != 0 {
		t.Fatalf("garbage record must not start a cooldown")
	}
	if _, ok, _ := store.Get("call_cooldown_end"); ok {
		t.Fatalf("garbage record must be deleted")
	}
}

func TestCooldown_CountdownDecrements(t *testing.T) {
	store := kvstore.NewMemStore()
	l := newTestLimiter(t, &fakeDispatcher{}, store)
	l.tick = 5 * time.Millisecond
	if err := l.RequestCall(context.Background(), "9876543210"); err != nil {
		t.Fatalf("request call: %v", err)
	}
	start := l.Remaining()
	time.Sleep(60 * time.Millisecond)
	if got := l.Remaining(); got >= start {
		t.Fatalf("countdown did not decrement: %d -> %d", start, got)
	}
}

// gateStore blocks Delete until released so a test can hold the countdown
// inside its zero-path cleanup.
type gateStore struct {
	kvstore.Store
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (s *gateStore) Delete(key string) error {
	s.once.Do(func() { close(s.entered) })
	<-s.gate
	return s.Store.Delete(key)
}

func TestCooldown_ExpiryCleanupCannotClobberFreshCooldown(t *testing.T) {
	mem := kvstore.NewMemStore()
	store := &gateStore{
		Store:   mem,
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	l := newTestLimiter(t, &fakeDispatcher{}, store)
	l.tick = time.Millisecond

	if err := l.RequestCall(context.Background(), "9876543210"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	// Run the countdown to zero and catch it inside its record cleanup.
	<-store.entered

	done := make(chan error, 1)
	go func() { done <- l.RequestCall(context.Background(), "9876543210") }()
	time.Sleep(20 * time.Millisecond)
	close(store.gate)

	if err := <-done; err != nil {
		t.Fatalf("call after expiry: %v", err)
	}
	// The second dispatch persisted a fresh cooldown; the expired
	// countdown's cleanup must not have removed it.
	if _, ok, _ := mem.Get("call_cooldown_end"); !ok {
		t.Fatalf("fresh cooldown record was lost to the previous countdown's cleanup")
	}
	if l.Remaining() == 0 {
		t.Fatalf("fresh cooldown must be counting")
	}
}

func TestCooldown_ReplacedCountdownExitsWithoutDecrement(t *testing.T) {
	l := newTestLimiter(t, &fakeDispatcher{}, kvstore.NewMemStore())
	l.mu.Lock()
	l.remaining = 5
	l.stopCountdown = make(chan struct{}) // owned by nobody running
	l.mu.Unlock()

	stale := make(chan struct{})
	done := make(chan struct{})
	l.tick = time.Millisecond
	go func() {
		l.countdown(stale)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("stale countdown goroutine must exit on its first tick")
	}
	if got := l.Remaining(); got != 5 {
		t.Fatalf("stale countdown must not decrement the live count: got %d", got)
	}
}

func TestStatus_ResetsToNeutralAfterSuccess(t *testing.T) {
	l := newTestLimiter(t, &fakeDispatcher{}, kvstore.NewMemStore())
	l.resetDelay = 10 * time.Millisecond
	if err := l.RequestCall(context.Background(), "9876543210"); err != nil {
		t.Fatalf("request call: %v", err)
	}
	if s, msg := l.Status(); s != StatusSuccess || msg == "" {
		t.Fatalf("expected success status right after dispatch, got %v %q", s, msg)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s, _ := l.Status(); s == StatusIdle {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if s, _ := l.Status(); s != StatusIdle {
		t.Fatalf("status must reset to neutral, got %v", s)
	}
	if l.Remaining() == 0 {
		t.Fatalf("status reset must not touch the cooldown")
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := map[int]string{0: "0:00", 9: "0:09", 60: "1:00", 299: "4:59", 300: "5:00"}
	for in, want := range cases {
		if got := FormatRemaining(in); got != want {
			t.Fatalf("FormatRemaining(%d) = %q, want %q", in, got, want)
		}
	}
}
