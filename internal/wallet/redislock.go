// Copyright 2021 Kaleido

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wallet

import (
	"context"
	"time"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	redisLockPrefix   = "loyaltyconnect:register:"
	redisLockPollTime = 100 * time.Millisecond
)

// deletes the key only while it still holds our token
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisClient is the subset of go-redis used for locking
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisLocker struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedisClient connects to the redis server in the config
func NewRedisClient(c *conf.RedisConf) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
}

// NewRedisLocker is a lock shared by every process using the same redis
func NewRedisLocker(client RedisClient, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = conf.DefaultRedisLockTTLMS * time.Millisecond
	}
	return &redisLocker{
		client: client,
		ttl:    ttl,
	}
}

func (r *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisLockPrefix + key
	token := utils.UUIDv4()
	for {
		acquired, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, errors.Errorf(errors.WalletLockFailed, key, err)
		}
		if acquired {
			log.Debugf("Acquired redis lock %s", redisKey)
			return func() {
				// the lock may have expired, which leaves nothing to release
				if err := r.client.Eval(context.Background(), releaseScript, []string{redisKey}, token).Err(); err != nil {
					log.Warnf("Failed to release redis lock %s: %s", redisKey, err)
				}
			}, nil
		}
		select {
		case <-time.After(redisLockPollTime):
		case <-ctx.Done():
			return nil, errors.Errorf(errors.WalletLockFailed, key, ctx.Err())
		}
	}
}
