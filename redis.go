package sioemit

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisDriver publishes requests through a go-redis client, the stock
// transport for socket.io redis adapters. Any UniversalClient works:
// single node, sentinel or cluster.
type RedisDriver struct {
	rdb redis.UniversalClient
}

func NewRedisDriver(rdb redis.UniversalClient) RedisDriver {
	return RedisDriver{rdb: rdb}
}

func (d RedisDriver) Publish(ctx context.Context, channel string, data []byte) error {
	return d.rdb.Publish(ctx, channel, data).Err()
}
