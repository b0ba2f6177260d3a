package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-threads/internal/platform/envutil"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

type Metrics struct {
	runs           *CounterVec
	candidates     *CounterVec
	changes        *CounterVec
	rotations      *HistogramVec
	runDuration    *HistogramVec
	quality        *HistogramVec
	lockWait       *HistogramVec
	activityTime   *HistogramVec
	sinkFailures   *CounterVec
	pgStats        *GaugeVec
	redisUp        *GaugeVec
	redisPingDelay *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current returns the process registry, or nil when metrics are disabled.
func Current() *Metrics { return instance }

func scrapeInterval() time.Duration {
	d := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics registry initialized")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		runs:       NewCounterVec("threads_detect_runs_total", "Thread detection runs by outcome.", []string{"status"}),
		candidates: NewCounterVec("threads_candidates_total", "Candidates processed by outcome.", []string{"outcome"}),
		changes:    NewCounterVec("threads_changes_total", "Thread updates written by change type.", []string{"change_type"}),
		rotations: NewHistogramVec("threads_rotation_iterations", "Dice rotation iterations by terminal status.",
			[]string{"status"}, []float64{1, 2, 4, 8, 12, 24, 48, 120, 360, 720}),
		runDuration: NewHistogramVec("threads_detect_duration_seconds", "Thread detection run latency in seconds.",
			[]string{"status"}, []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}),
		quality: NewHistogramVec("threads_quality_score", "Composite run quality score.",
			[]string{"rotation_status"}, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}),
		lockWait: NewHistogramVec("threads_course_lock_wait_seconds", "Time spent acquiring the course lock.",
			[]string{"backend", "status"}, []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}),
		activityTime: NewHistogramVec("threads_activity_duration_seconds", "Temporal activity latency in seconds.",
			[]string{"activity", "status"}, nil),
		sinkFailures:   NewCounterVec("threads_sink_failures_total", "Best-effort sink failures by sink.", []string{"sink"}),
		pgStats:        NewGaugeVec("threads_postgres_pool", "Postgres pool stats.", []string{"stat"}),
		redisUp:        NewGaugeVec("threads_redis_up", "Redis connectivity (1=up, 0=down).", nil),
		redisPingDelay: NewGaugeVec("threads_redis_ping_seconds", "Redis ping latency in seconds.", nil),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.runs, m.candidates, m.changes, m.rotations, m.runDuration, m.quality,
		m.lockWait, m.activityTime, m.sinkFailures, m.pgStats, m.redisUp, m.redisPingDelay,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveLockWait(backend, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(dur.Seconds(), backend, status)
}

func (m *Metrics) ObserveActivity(activity, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.activityTime.Observe(dur.Seconds(), activity, status)
}

func (m *Metrics) IncSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.sinkFailures.Inc(sink)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings the shared client on every scrape interval.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPingDelay.Set(time.Since(start).Seconds())
			}
		}
	}()
}
