package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"assistantsproxy/internal/core"
	"assistantsproxy/internal/util"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// FileStorage implements persistence using JSON files
type FileStorage struct {
	filePath string
}

// NewFileStorage creates a file-backed stats storage.
func NewFileStorage(filePath string) *FileStorage {
	if filePath == "" {
		filePath = core.StatsFilePath
	}
	return &FileStorage{filePath: filePath}
}

func (fs *FileStorage) SaveStats(stats *core.RequestStats) error {
	data, err := sonic.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fs.filePath, data, core.FilePermissionReadWrite)
}

func (fs *FileStorage) LoadStats() (*core.RequestStats, error) {
	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyStats(), nil
		}
		return nil, err
	}

	var stats core.RequestStats
	if err := sonic.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fs.filePath, err)
	}
	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}
	return &stats, nil
}

func (fs *FileStorage) Close() error {
	return nil
}

// RedisStorage implements persistence using Redis
type RedisStorage struct {
	client *redis.Client
	ctx    context.Context
	key    string
}

// RedisStorageConfig Redis storage config
type RedisStorageConfig struct {
	URL string
	Key string
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(config RedisStorageConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	key := config.Key
	if key == "" {
		key = core.StatsRedisKey
	}
	return &RedisStorage{client: client, ctx: ctx, key: key}, nil
}

func (rs *RedisStorage) SaveStats(stats *core.RequestStats) error {
	data, err := util.MarshalJSON(stats)
	if err != nil {
		return err
	}
	return rs.client.Set(rs.ctx, rs.key, data, 0).Err()
}

func (rs *RedisStorage) LoadStats() (*core.RequestStats, error) {
	val, err := rs.client.Get(rs.ctx, rs.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return emptyStats(), nil
		}
		return nil, err
	}

	var stats core.RequestStats
	if err := sonic.Unmarshal(val, &stats); err != nil {
		return nil, fmt.Errorf("decode %s: %w", rs.key, err)
	}
	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}
	return &stats, nil
}

func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}

func emptyStats() *core.RequestStats {
	return &core.RequestStats{RequestHistory: []core.RequestRecord{}}
}

// InitStorage returns Redis storage when redisURL is reachable, file storage otherwise.
func InitStorage(redisURL, filePath string, logger core.Logger) core.StorageInterface {
	if redisURL != "" {
		redisStorage, err := NewRedisStorage(RedisStorageConfig{URL: redisURL})
		if err != nil {
			logger.Warn("Failed to initialize Redis storage: %v, falling back to file storage", err)
			return NewFileStorage(filePath)
		}
		logger.Info("Using Redis storage")
		return redisStorage
	}

	logger.Info("Using file storage")
	return NewFileStorage(filePath)
}
