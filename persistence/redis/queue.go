package redis

import (
	"context"
	"errors"
	"strconv"
	"sync"

	rd "github.com/go-redis/redis/v9"
	"github.com/google/uuid"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/persistence"
	"go.uber.org/zap"
)

type redisQueue struct {
	*baseDao
	mu               sync.Mutex
	currentPartition int
}

var _ persistence.Queue = new(redisQueue)

func NewRedisQueue(config Config) *redisQueue {
	return &redisQueue{
		baseDao: newBaseDao(config),
	}
}

func (rq *redisQueue) Push(ctx context.Context, queueName string, key string, message []byte) (string, error) {
	partition := strconv.Itoa(rq.ring.partition(key))
	queueName = rq.getNamespaceKey(queueName, partition)
	err := rq.redisClient.RPush(ctx, queueName, message).Err()
	if err != nil {
		logger.Error("error while push to redis list", zap.String("queue", queueName), zap.Error(err))
		return "", persistence.StorageLayerError{Message: err.Error()}
	}
	return uuid.NewString(), nil
}

// Pop visits every partition at most once per call, starting after the
// partition the previous call stopped at.
func (rq *redisQueue) Pop(ctx context.Context, queueName string, batchSize int) ([]string, error) {
	result := make([]string, 0, batchSize)
	for i := 0; i < rq.ring.partitionCount && len(result) < batchSize; i++ {
		partition := rq.nextPartition()
		key := rq.getNamespaceKey(queueName, strconv.Itoa(partition))
		items, err := rq.pop(ctx, key, batchSize-len(result))
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	return result, nil
}

func (rq *redisQueue) pop(ctx context.Context, queueName string, count int) ([]string, error) {
	res, err := rq.redisClient.LPopCount(ctx, queueName, count).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []string{}, nil
		}
		logger.Error("error while pop from redis list", zap.String("queue", queueName), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return res, nil
}

func (rq *redisQueue) nextPartition() int {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	p := rq.currentPartition
	rq.currentPartition = (rq.currentPartition + 1) % rq.ring.partitionCount
	return p
}
