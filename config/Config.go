package config

import (
	"time"

	"github.com/shelterly/automation/analytics"
)

type StorageType string

type QueueType string

const STORAGE_TYPE_SQLITE StorageType = "sqlite"

const QUEUE_TYPE_REDIS QueueType = "redis"
const QUEUE_TYPE_MEMORY QueueType = "memory"

type Config struct {
	SqliteConfig      SqliteStorageConfig
	RedisQueueConfig  RedisQueueConfig
	StorageType       StorageType
	QueueType         QueueType
	HttpPort          int
	LogLevel          string
	ExecutorConfig    ExecutorConfig
	RetryConfig       RetryConfig
	EngineConfig      EngineConfig
	AnalyticsConfig   analytics.DataCollectorConfig
	FlowCacheDuration time.Duration
}

type SqliteStorageConfig struct {
	Path string
}

type RedisQueueConfig struct {
	Addrs          []string
	Namespace      string
	PartitionCount int
	Password       string
}

type ExecutorConfig struct {
	Workers      int
	BatchSize    int
	PollInterval time.Duration
}

type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

type EngineConfig struct {
	MaxSteps          int
	TransactionalRuns bool
}

func Default() Config {
	return Config{
		SqliteConfig:     SqliteStorageConfig{Path: "automation.db"},
		RedisQueueConfig: RedisQueueConfig{Addrs: []string{"localhost:6379"}, Namespace: "automation", PartitionCount: 8},
		StorageType:      STORAGE_TYPE_SQLITE,
		QueueType:        QUEUE_TYPE_MEMORY,
		HttpPort:         8080,
		LogLevel:         "info",
		ExecutorConfig:   ExecutorConfig{Workers: 4, BatchSize: 10, PollInterval: 500 * time.Millisecond},
		RetryConfig:      DefaultRetryConfig(),
		EngineConfig:     EngineConfig{MaxSteps: 1000, TransactionalRuns: true},
		AnalyticsConfig: analytics.DataCollectorConfig{
			CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
			FileName:      "automation-analytics.log",
		},
		FlowCacheDuration: time.Minute,
	}
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     time.Minute,
		Multiplier:      2,
	}
}
