package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/courselock"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestLeaseLocker(t *testing.T) {
	rdb := testClient(t)
	l := NewLeaseLocker(rdb, time.Second, 150*time.Millisecond, logger.NewNop())
	ctx := context.Background()
	courseID := uuid.New()

	lease, err := l.Acquire(ctx, courseID)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, courseID); !errors.Is(err, courselock.ErrLockTimeout) {
		t.Fatalf("second Acquire err = %v, want ErrLockTimeout", err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := lease.Release(ctx); !errors.Is(err, courselock.ErrNotHeld) {
		t.Fatalf("double Release err = %v, want ErrNotHeld", err)
	}
}

func TestLeaseRenewsWhileHeld(t *testing.T) {
	rdb := testClient(t)
	l := NewLeaseLocker(rdb, 150*time.Millisecond, 100*time.Millisecond, logger.NewNop())
	ctx := context.Background()
	courseID := uuid.New()

	lease, err := l.Acquire(ctx, courseID)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(600 * time.Millisecond)
	if _, err := l.Acquire(ctx, courseID); !errors.Is(err, courselock.ErrLockTimeout) {
		t.Fatalf("Acquire past ttl err = %v, want ErrLockTimeout", err)
	}
	select {
	case <-lease.(courselock.Expiring).Lost():
		t.Fatal("held lease reported lost")
	default:
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestLeaseLostOnTakeover(t *testing.T) {
	rdb := testClient(t)
	l := NewLeaseLocker(rdb, 150*time.Millisecond, time.Second, logger.NewNop())
	ctx := context.Background()
	courseID := uuid.New()

	lease, err := l.Acquire(ctx, courseID)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := rdb.Set(ctx, "lock:"+courselock.Key(courseID), "other-holder", time.Minute).Err(); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	t.Cleanup(func() { rdb.Del(context.Background(), "lock:"+courselock.Key(courseID)) })

	select {
	case <-lease.(courselock.Expiring).Lost():
	case <-time.After(2 * time.Second):
		t.Fatal("lease not reported lost after takeover")
	}
	if err := lease.Release(ctx); !errors.Is(err, courselock.ErrNotHeld) {
		t.Fatalf("Release err = %v, want ErrNotHeld", err)
	}
}

func TestMetricsPublisherRoundTrip(t *testing.T) {
	rdb := testClient(t)
	pub, err := NewMetricsPublisher(rdb, "thread_metrics_test_"+uuid.NewString(), logger.NewNop())
	if err != nil {
		t.Fatalf("NewMetricsPublisher: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan *threads.ThreadMetrics, 1)
	if err := pub.StartForwarder(ctx, func(m *threads.ThreadMetrics) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	want := &threads.ThreadMetrics{ID: uuid.New(), LectureID: uuid.New(), NewThreads: 2, QualityScore: 0.8}
	if err := pub.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.ID != want.ID || m.NewThreads != 2 {
			t.Fatalf("received %+v", m)
		}
	case <-ctx.Done():
		t.Fatalf("no metrics received")
	}
}
