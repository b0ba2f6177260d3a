package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/neurobridge-threads/internal/clients/redis"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/config"
	"github.com/yungbote/neurobridge-threads/internal/platform/envutil"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
	"github.com/yungbote/neurobridge-threads/internal/platform/neo4jdb"
	"github.com/yungbote/neurobridge-threads/internal/temporalx"
)

// Clients holds the optional external services. Each is nil when its env is unset.
type Clients struct {
	Redis     *goredis.Client
	Publisher redis.MetricsPublisher
	Neo4j     *neo4jdb.Client
	Temporal  temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg config.Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if envutil.String("REDIS_ADDR", "") != "" {
		rdb, err := redis.NewClient(ctx, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		pub, err := redis.NewMetricsPublisher(rdb, cfg.MetricsChannel, log)
		if err != nil {
			out.Close(ctx)
			return Clients{}, fmt.Errorf("init metrics publisher: %w", err)
		}
		out.Publisher = pub
	}

	if cfg.GraphSyncEnabled {
		graph, err := neo4jdb.NewFromEnv(ctx, log)
		if err != nil {
			out.Close(ctx)
			return Clients{}, fmt.Errorf("init neo4j: %w", err)
		}
		out.Neo4j = graph
	}

	tc, err := temporalx.NewClient(log)
	if err != nil {
		out.Close(ctx)
		return Clients{}, fmt.Errorf("init temporal: %w", err)
	}
	out.Temporal = tc
	return out, nil
}

func (c Clients) Close(ctx context.Context) {
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(ctx)
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
