package detect

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-threads/internal/clients/redis"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/config"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/courselock"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

// NewLocker builds the course lock backend named by cfg.LockBackend.
func NewLocker(cfg config.Config, db *gorm.DB, rdb goredis.UniversalClient, log *logger.Logger) (courselock.Locker, error) {
	switch cfg.LockBackend {
	case config.LockBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("%w: redis lock backend needs REDIS_ADDR", config.ErrInvalidConfig)
		}
		return redis.NewLeaseLocker(rdb, cfg.LockTTL(), cfg.LockWait(), log), nil
	case config.LockBackendPostgres:
		if db == nil || db.Dialector.Name() != "postgres" {
			return nil, fmt.Errorf("%w: postgres lock backend needs a postgres store", config.ErrInvalidConfig)
		}
		return courselock.NewPostgresLocker(db, cfg.LockWait(), log), nil
	case config.LockBackendFlock:
		return courselock.NewFileLocker(cfg.LockDir, cfg.LockWait(), log)
	case config.LockBackendLocal, "":
		return courselock.NewLocalLocker(cfg.LockWait(), log), nil
	default:
		return nil, fmt.Errorf("%w: unknown lock backend %q", config.ErrInvalidConfig, cfg.LockBackend)
	}
}
