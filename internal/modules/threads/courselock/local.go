package courselock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

// LocalLocker serializes courses inside one process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
	wait  time.Duration
	log   *logger.Logger
}

func NewLocalLocker(wait time.Duration, baseLog *logger.Logger) *LocalLocker {
	return &LocalLocker{
		slots: map[uuid.UUID]chan struct{}{},
		wait:  wait,
		log:   baseLog.With("lock", "local"),
	}
}

func (l *LocalLocker) slot(courseID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[courseID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[courseID] = ch
	}
	return ch
}

func (l *LocalLocker) Acquire(ctx context.Context, courseID uuid.UUID) (Lease, error) {
	ch := l.slot(courseID)
	waitCtx, cancel := WithWait(ctx, l.wait)
	defer cancel()
	select {
	case ch <- struct{}{}:
		l.log.Debug("course lock acquired", "course_id", courseID)
		return &localLease{ch: ch}, nil
	case <-waitCtx.Done():
		return nil, WaitError(ctx, courseID, waitCtx.Err())
	}
}

type localLease struct {
	ch       chan struct{}
	released atomic.Bool
}

func (l *localLease) Release(ctx context.Context) error {
	if !l.released.CompareAndSwap(false, true) {
		return ErrNotHeld
	}
	<-l.ch
	return nil
}
