package courselock

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLockTimeout = errors.New("courselock: timed out waiting for course lock")
	ErrNotHeld     = errors.New("courselock: lease not held")
	ErrLeaseLost   = errors.New("courselock: lease lost before release")
)

// Namespace prefixes every course lock key so it cannot collide with other advisory locks.
const Namespace = "thread_course"

const (
	DefaultWait = 30 * time.Second
	DefaultTTL  = 2 * time.Minute
	pollEvery   = 50 * time.Millisecond
)

// Locker serializes thread matching per course. Different courses never block each other.
type Locker interface {
	Acquire(ctx context.Context, courseID uuid.UUID) (Lease, error)
}

// Lease is a held course lock. Release is safe to call once; later calls return ErrNotHeld.
type Lease interface {
	Release(ctx context.Context) error
}

// Expiring is implemented by leases that can lapse while held. Lost is closed once the
// lease no longer guarantees exclusive access.
type Expiring interface {
	Lost() <-chan struct{}
}

// Guard derives a context that is cancelled with cause ErrLeaseLost when lease lapses.
// Leases that cannot lapse only get the parent's cancellation.
func Guard(ctx context.Context, lease Lease) (context.Context, context.CancelFunc) {
	gctx, cancel := context.WithCancelCause(ctx)
	exp, ok := lease.(Expiring)
	if !ok {
		return gctx, func() { cancel(nil) }
	}
	select {
	case <-exp.Lost():
		cancel(ErrLeaseLost)
		return gctx, func() {}
	default:
	}
	stop := make(chan struct{})
	go func() {
		select {
		case <-exp.Lost():
			cancel(ErrLeaseLost)
		case <-stop:
		case <-gctx.Done():
		}
	}()
	var once sync.Once
	return gctx, func() {
		once.Do(func() {
			close(stop)
			cancel(nil)
		})
	}
}

// AdvisoryKey64 hashes namespace:id into a signed 64-bit lock key.
func AdvisoryKey64(namespace string, id uuid.UUID) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(namespace))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(id.String()))
	return int64(h.Sum64())
}

// Key is the string form used by file and redis backends.
func Key(courseID uuid.UUID) string {
	return Namespace + ":" + courseID.String()
}

// WithWait bounds ctx by wait. A non-positive wait means DefaultWait.
func WithWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		wait = DefaultWait
	}
	return context.WithTimeout(ctx, wait)
}

// WaitError turns a wait failure into ctx's own error when the caller cancelled, and
// ErrLockTimeout when only the wait bound expired.
func WaitError(parent context.Context, courseID uuid.UUID, err error) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: course %s", ErrLockTimeout, courseID)
	}
	return err
}
