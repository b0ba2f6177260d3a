package courselock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

// FileLocker holds one lock file per course under dir. It serializes processes that share
// a filesystem, such as several threadctl runs against one SQLite store.
type FileLocker struct {
	dir  string
	wait time.Duration
	log  *logger.Logger
}

func NewFileLocker(dir string, wait time.Duration, baseLog *logger.Logger) (*FileLocker, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "threads-locks")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	return &FileLocker{dir: dir, wait: wait, log: baseLog.With("lock", "flock")}, nil
}

func (l *FileLocker) Path(courseID uuid.UUID) string {
	return filepath.Join(l.dir, "course-"+courseID.String()+".lock")
}

func (l *FileLocker) Acquire(ctx context.Context, courseID uuid.UUID) (Lease, error) {
	path := l.Path(courseID)
	fl := flock.New(path)
	waitCtx, cancel := WithWait(ctx, l.wait)
	defer cancel()

	ok, err := fl.TryLockContext(waitCtx, pollEvery)
	if err != nil || !ok {
		return nil, WaitError(ctx, courseID, err)
	}
	l.log.Debug("course lock acquired", "course_id", courseID, "path", path)
	return &fileLease{fl: fl}, nil
}

type fileLease struct {
	fl       *flock.Flock
	released atomic.Bool
}

func (l *fileLease) Release(ctx context.Context) error {
	if !l.released.CompareAndSwap(false, true) {
		return ErrNotHeld
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release lock file: %w", err)
	}
	return nil
}
