package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

const DefaultMetricsChannel = "thread_metrics"

// MetricsPublisher pushes completed run metrics to the external monitoring consumer.
type MetricsPublisher interface {
	Publish(ctx context.Context, m *threads.ThreadMetrics) error
	StartForwarder(ctx context.Context, onMsg func(m *threads.ThreadMetrics)) error
}

type metricsPublisher struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

func NewMetricsPublisher(rdb goredis.UniversalClient, channel string, log *logger.Logger) (MetricsPublisher, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if channel == "" {
		channel = DefaultMetricsChannel
	}
	return &metricsPublisher{log: log.With("service", "RedisMetricsPublisher"), rdb: rdb, channel: channel}, nil
}

func (p *metricsPublisher) Publish(ctx context.Context, m *threads.ThreadMetrics) error {
	if m == nil {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}

// StartForwarder subscribes to the channel and hands each decoded record to onMsg until ctx ends.
func (p *metricsPublisher) StartForwarder(ctx context.Context, onMsg func(m *threads.ThreadMetrics)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	sub := p.rdb.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok || msg == nil {
					_ = sub.Close()
					return
				}
				var m threads.ThreadMetrics
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					p.log.Warn("bad thread metrics payload", "error", err)
					continue
				}
				onMsg(&m)
			}
		}
	}()
	return nil
}
