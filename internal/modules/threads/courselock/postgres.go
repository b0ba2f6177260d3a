package courselock

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

// PostgresLocker takes a session advisory lock on a pinned connection. The lock survives
// the per-candidate transactions and is freed automatically if the process dies.
type PostgresLocker struct {
	db   *gorm.DB
	wait time.Duration
	log  *logger.Logger
}

func NewPostgresLocker(db *gorm.DB, wait time.Duration, baseLog *logger.Logger) *PostgresLocker {
	return &PostgresLocker{db: db, wait: wait, log: baseLog.With("lock", "postgres")}
}

func (l *PostgresLocker) Acquire(ctx context.Context, courseID uuid.UUID) (Lease, error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, err
	}
	waitCtx, cancel := WithWait(ctx, l.wait)
	defer cancel()

	conn, err := sqlDB.Conn(waitCtx)
	if err != nil {
		return nil, WaitError(ctx, courseID, err)
	}
	key := AdvisoryKey64(Namespace, courseID)
	for {
		var ok bool
		if err := conn.QueryRowContext(waitCtx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
			_ = conn.Close()
			return nil, WaitError(ctx, courseID, err)
		}
		if ok {
			l.log.Debug("course lock acquired", "course_id", courseID, "key", key)
			return &pgLease{conn: conn, key: key}, nil
		}
		select {
		case <-waitCtx.Done():
			_ = conn.Close()
			return nil, WaitError(ctx, courseID, waitCtx.Err())
		case <-time.After(pollEvery):
		}
	}
}

type pgLease struct {
	conn     *sql.Conn
	key      int64
	released atomic.Bool
}

func (l *pgLease) Release(ctx context.Context) error {
	if !l.released.CompareAndSwap(false, true) {
		return ErrNotHeld
	}
	defer l.conn.Close()
	var unlocked bool
	if err := l.conn.QueryRowContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", l.key).Scan(&unlocked); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	if !unlocked {
		return ErrNotHeld
	}
	return nil
}
