package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/persistence"
	"go.uber.org/zap"
)

type redisDelayQueue struct {
	*baseDao
}

var _ persistence.DelayQueue = new(redisDelayQueue)

func NewRedisDelayQueue(config Config) *redisDelayQueue {
	return &redisDelayQueue{
		baseDao: newBaseDao(config),
	}
}

func (rq *redisDelayQueue) PushWithDelay(ctx context.Context, queueName string, key string, delay time.Duration, message []byte) error {
	queueName = rq.getNamespaceKey(queueName, strconv.Itoa(rq.ring.partition(key)))
	member := rd.Z{
		Score:  float64(time.Now().Add(delay).UnixMilli()),
		Member: message,
	}
	err := rq.redisClient.ZAdd(ctx, queueName, member).Err()
	if err != nil {
		logger.Error("error while push to redis sorted set", zap.String("queue", queueName), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rq *redisDelayQueue) Pop(ctx context.Context, queueName string) ([]string, error) {
	var result []string
	for p := 0; p < rq.ring.partitionCount; p++ {
		items, err := rq.popExpired(ctx, rq.getNamespaceKey(queueName, strconv.Itoa(p)))
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	return result, nil
}

func (rq *redisDelayQueue) popExpired(ctx context.Context, queueName string) ([]string, error) {
	max := strconv.FormatInt(time.Now().UnixMilli(), 10)
	pipe := rq.redisClient.TxPipeline()
	zr := pipe.ZRangeByScore(ctx, queueName, &rd.ZRangeBy{Min: "0", Max: max})
	pipe.ZRemRangeByScore(ctx, queueName, "0", max)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, rd.Nil) {
		logger.Error("error while pop from redis sorted set", zap.String("queue", queueName), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	res, err := zr.Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []string{}, nil
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return res, nil
}
