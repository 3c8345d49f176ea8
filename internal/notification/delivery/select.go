package delivery

import (
	"context"
	"fmt"
	"time"

	"studentservices-api/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const (
	ModeQueued   = "queued"
	ModeSync     = "sync"
	ModeDisabled = "disabled"
	ModeAuto     = "auto"
)

// Select picks the strategy once at startup. In auto mode the queue is
// used when Redis answers, then inline delivery when a mailer exists,
// otherwise notifications are disabled.
func Select(ctx context.Context, mode string, rdb redis.Cmdable, mailer Mailer, queueKey string, log logger.Logger) (Strategy, error) {
	switch mode {
	case ModeQueued:
		if rdb == nil {
			return nil, fmt.Errorf("queued delivery requires redis")
		}
		return NewQueued(rdb, queueKey, log), nil
	case ModeSync:
		if mailer == nil {
			return nil, fmt.Errorf("sync delivery requires a mailer")
		}
		return NewSynchronous(mailer, log), nil
	case ModeDisabled:
		return NewDisabled(log), nil
	case ModeAuto, "":
		if rdb != nil && mailer != nil && redisReachable(ctx, rdb) {
			return NewQueued(rdb, queueKey, log), nil
		}
		if mailer != nil {
			return NewSynchronous(mailer, log), nil
		}
		return NewDisabled(log), nil
	default:
		return nil, fmt.Errorf("unknown delivery strategy %q", mode)
	}
}

func redisReachable(ctx context.Context, rdb redis.Cmdable) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err() == nil
}
