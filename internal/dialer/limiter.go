package dialer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/RAHULGIT99/customer-service/internal/kvstore"
)

const (
	// CooldownDuration is the mandatory wait between successive
	// dispatched calls.
	CooldownDuration = 300 * time.Second

	// cooldownKey holds the cooldown end as unix seconds in the store.
	cooldownKey = "call_cooldown_end"

	statusResetDelay = 3 * time.Second
)

var (
	ErrCooldownActive = errors.New("dialer: cooldown active")
	ErrCallInFlight   = errors.New("dialer: a call is already in flight")
)

// ValidationError rejects a malformed phone number before any I/O.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "dialer: " + e.Reason }

// Status is the display state of the dispatch surface. It is independent
// of the cooldown, which keeps counting on its own.
type Status int

const (
	StatusIdle Status = iota
	StatusCalling
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusCalling:
		return "calling"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

type callRequest struct {
	Number string `validate:"required,len=10,numeric"`
}

// Limiter gates call dispatch behind a persisted cooldown window that
// survives restarts. The countdown goroutine is the sole writer of the
// remaining count; starting a new countdown first stops any previous one.
type Limiter struct {
	dispatcher  Dispatcher
	store       kvstore.Store
	countryCode string
	validate    *validator.Validate
	now         func() time.Time

	// test hooks, fixed in production
	tick       time.Duration
	resetDelay time.Duration

	mu            sync.Mutex
	remaining     int
	inFlight      bool
	status        Status
	statusMessage string
	stopCountdown chan struct{}
	statusTimer   *time.Timer
}

// NewLimiter builds a limiter, resuming any cooldown persisted by an
// earlier run. An already-expired record is deleted.
func NewLimiter(dispatcher Dispatcher, store kvstore.Store, countryCode string) (*Limiter, error) {
	if countryCode == "" {
		countryCode = "+91"
	}
	l := &Limiter{
		dispatcher:  dispatcher,
		store:       store,
		countryCode: countryCode,
		validate:    validator.New(),
		now:         time.Now,
		tick:        time.Second,
		resetDelay:  statusResetDelay,
	}

	raw, ok, err := store.Get(cooldownKey)
	if err != nil {
		return nil, fmt.Errorf("dialer: load cooldown: %w", err)
	}
	if ok {
		end, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			_ = store.Delete(cooldownKey)
			return l, nil
		}
		secs := int(math.Ceil(time.Unix(end, 0).Sub(l.now()).Seconds()))
		if secs > 0 {
			l.mu.Lock()
			l.startCountdownLocked(secs)
			l.mu.Unlock()
		} else {
			_ = store.Delete(cooldownKey)
		}
	}
	return l, nil
}

// RequestCall validates the number, enforces the cooldown and the single
// in-flight call, and dispatches. A successful dispatch persists a fresh
// cooldown immediately; a failed one starts no cooldown so the user may
// retry at once.
func (l *Limiter) RequestCall(ctx context.Context, number string) error {
	if err := l.validate.Struct(callRequest{Number: number}); err != nil {
		return &ValidationError{Reason: "please enter a valid 10-digit number"}
	}

	l.mu.Lock()
	if l.remaining > 0 {
		l.mu.Unlock()
		return ErrCooldownActive
	}
	if l.inFlight {
		l.mu.Unlock()
		return ErrCallInFlight
	}
	l.inFlight = true
	l.status = StatusCalling
	l.statusMessage = "Dialing..."
	l.mu.Unlock()

	err := l.dispatcher.Dispatch(ctx, l.countryCode+number)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight = false
	if err != nil {
		l.status = StatusError
		l.statusMessage = "Failed to connect call. Please try again."
		return err
	}

	l.status = StatusSuccess
	l.statusMessage = "Call Initiated Successfully!"
	l.beginCooldownLocked()
	l.scheduleStatusResetLocked()
	return nil
}

// beginCooldownLocked persists the cooldown end and starts the countdown.
func (l *Limiter) beginCooldownLocked() {
	end := l.now().Add(CooldownDuration)
	if err := l.store.Set(cooldownKey, strconv.FormatInt(end.Unix(), 10)); err != nil {
		log.Printf("dialer: persist cooldown: %v", err)
	}
	l.startCountdownLocked(int(CooldownDuration / time.Second))
}

// startCountdownLocked replaces any running countdown with a fresh one.
func (l *Limiter) startCountdownLocked(seconds int) {
	if l.stopCountdown != nil {
		close(l.stopCountdown)
	}
	l.remaining = seconds
	stop := make(chan struct{})
	l.stopCountdown = stop
	go l.countdown(stop)
}

// countdown decrements remaining once per tick and, while it still owns
// the countdown, deletes the persisted record when it reaches zero. It is
// the sole writer of remaining. A goroutine that has been replaced exits
// without touching the count or the store.
func (l *Limiter) countdown(stop chan struct{}) {
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			if l.stopCountdown != stop {
				l.mu.Unlock()
				return
			}
			l.remaining--
			if l.remaining <= 0 {
				l.remaining = 0
				l.stopCountdown = nil
				// Still under the lock: a concurrent dispatch cannot
				// persist a fresh cooldown until this delete lands.
				if err := l.store.Delete(cooldownKey); err != nil {
					log.Printf("dialer: clear cooldown: %v", err)
				}
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
		}
	}
}

// scheduleStatusResetLocked flips a success status back to neutral after
// the display delay. The cooldown is unaffected.
func (l *Limiter) scheduleStatusResetLocked() {
	if l.statusTimer != nil {
		l.statusTimer.Stop()
	}
	l.statusTimer = time.AfterFunc(l.resetDelay, func() {
		l.mu.Lock()
		if l.status == StatusSuccess {
			l.status = StatusIdle
			l.statusMessage = ""
		}
		l.mu.Unlock()
	})
}

// Remaining reports the cooldown seconds left; zero means calls are
// permitted.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining
}

func (l *Limiter) Status() (Status, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status, l.statusMessage
}

// FormatRemaining renders a second count as M:SS for display.
func FormatRemaining(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Close stops the countdown and any pending status reset.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopCountdown != nil {
		close(l.stopCountdown)
		l.stopCountdown = nil
	}
	if l.statusTimer != nil {
		l.statusTimer.Stop()
		l.statusTimer = nil
	}
}
