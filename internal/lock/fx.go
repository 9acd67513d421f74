package lock

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/investorhub/internal/config"
	"github.com/smallbiznis/investorhub/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Metrics   *metrics.Metrics `optional:"true"`
	Log       *zap.Logger
}

// New returns the Redis locker when REDIS_ADDR is set, else the in-process one.
func New(p Params) Locker {
	addr := strings.TrimSpace(p.Config.RedisAddr)
	if addr == "" {
		p.Log.Info("email lock uses in-process mutex")
		return Instrument(NewLocalLocker(), "local", p.Metrics)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Config.RedisPassword),
		DB:       p.Config.RedisDB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				p.Log.Warn("redis lock backend unreachable at startup", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	p.Log.Info("email lock uses redis", zap.String("addr", addr), zap.Duration("ttl", p.Config.LockTTL))
	return Instrument(NewRedisLocker(client, p.Config.LockTTL), "redis", p.Metrics)
}
