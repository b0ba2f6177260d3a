package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-threads/internal/modules/threads/courselock"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the TTL only while the key still holds our token.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// LeaseLocker is a courselock.Locker backed by SET NX PX. The TTL bounds how long a
// crashed holder can block its course; live holders renew every third of it.
type LeaseLocker struct {
	rdb    goredis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	prefix string
	log    *logger.Logger
}

func NewLeaseLocker(rdb goredis.UniversalClient, ttl, wait time.Duration, log *logger.Logger) *LeaseLocker {
	if ttl <= 0 {
		ttl = courselock.DefaultTTL
	}
	return &LeaseLocker{
		rdb:    rdb,
		ttl:    ttl,
		wait:   wait,
		prefix: "lock:",
		log:    log.With("lock", "redis"),
	}
}

func (l *LeaseLocker) Acquire(ctx context.Context, courseID uuid.UUID) (courselock.Lease, error) {
	key := l.prefix + courselock.Key(courseID)
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	waitCtx, cancel := courselock.WithWait(ctx, l.wait)
	defer cancel()

	backoff := 25 * time.Millisecond
	for {
		ok, err := l.rdb.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			l.log.Debug("course lock acquired", "course_id", courseID, "ttl_ms", l.ttl.Milliseconds())
			lease := &redisLease{
				rdb:   l.rdb,
				key:   key,
				token: token,
				ttl:   l.ttl,
				log:   l.log.With("course_id", courseID),
				done:  make(chan struct{}),
				lost:  make(chan struct{}),
			}
			go lease.keepAlive()
			return lease, nil
		}
		select {
		case <-waitCtx.Done():
			return nil, courselock.WaitError(ctx, courseID, waitCtx.Err())
		case <-time.After(backoff):
		}
		if backoff < 250*time.Millisecond {
			backoff *= 2
		}
	}
}

type redisLease struct {
	rdb      goredis.UniversalClient
	key      string
	token    string
	ttl      time.Duration
	log      *logger.Logger
	released atomic.Bool
	done     chan struct{}
	lost     chan struct{}
	lostOnce sync.Once
}

// Lost is closed when renewal finds the key gone or owned by someone else, or when
// renewals kept failing for a whole TTL.
func (l *redisLease) Lost() <-chan struct{} { return l.lost }

func (l *redisLease) keepAlive() {
	every := l.ttl / 3
	if every < 10*time.Millisecond {
		every = 10 * time.Millisecond
	}
	t := time.NewTicker(every)
	defer t.Stop()
	lastOK := time.Now()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), every)
		n, err := renewScript.Run(ctx, l.rdb, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err == nil && n == 1:
			lastOK = time.Now()
		case err == nil:
			l.log.Warn("course lock taken over before release", "key", l.key)
			l.markLost()
			return
		case time.Since(lastOK) >= l.ttl:
			l.log.Warn("course lock renewal failed past ttl", "key", l.key, "error", err)
			l.markLost()
			return
		default:
			l.log.Debug("course lock renewal failed, retrying", "key", l.key, "error", err)
		}
	}
}

func (l *redisLease) markLost() { l.lostOnce.Do(func() { close(l.lost) }) }

func (l *redisLease) Release(ctx context.Context) error {
	if !l.released.CompareAndSwap(false, true) {
		return courselock.ErrNotHeld
	}
	close(l.done)
	n, err := releaseScript.Run(context.WithoutCancel(ctx), l.rdb, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("redis unlock %s: %w", l.key, err)
	}
	if n == 0 {
		return courselock.ErrNotHeld
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
