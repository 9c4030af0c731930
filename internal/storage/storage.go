package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"aitex/internal/core"
	"aitex/internal/util"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// FileStorage implements persistence using JSON files
type FileStorage struct {
	configPath string
	statsPath  string
}

// NewFileStorage creates a file store. Empty paths fall back to the defaults.
func NewFileStorage(configPath, statsPath string) *FileStorage {
	if configPath == "" {
		configPath = core.ConfigFileName
	}
	if statsPath == "" {
		statsPath = core.StatsFilePath
	}
	return &FileStorage{configPath: configPath, statsPath: statsPath}
}

// ConfigPath returns the path of the recognition config file.
func (fs *FileStorage) ConfigPath() string {
	return fs.configPath
}

func (fs *FileStorage) LoadConfig() (*core.RecognitionConfig, error) {
	data, err := os.ReadFile(fs.configPath) //nolint:gosec // G304: path from operator config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", fs.configPath, err)
	}

	var cfg core.RecognitionConfig
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fs.configPath, err)
	}
	return &cfg, nil
}

func (fs *FileStorage) SaveConfig(cfg *core.RecognitionConfig) error {
	data, err := sonic.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(fs.configPath, data)
}

func (fs *FileStorage) SaveStats(stats *core.RequestStats) error {
	data, err := sonic.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(fs.statsPath, data)
}

func (fs *FileStorage) LoadStats() (*core.RequestStats, error) {
	data, err := os.ReadFile(fs.statsPath) //nolint:gosec // G304: path from operator config
	if err != nil {
		if os.IsNotExist(err) {
			return &core.RequestStats{RequestHistory: []core.RequestRecord{}}, nil
		}
		return nil, err
	}

	var stats core.RequestStats
	if err := sonic.Unmarshal(data, &stats); err != nil {
		return nil, err
	}

	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}

	return &stats, nil
}

func (fs *FileStorage) Close() error {
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, core.DirPermission); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, core.FilePermissionReadWrite)
}

// RedisStorage implements persistence using Redis
type RedisStorage struct {
	client    *redis.Client
	ctx       context.Context
	configKey string
	statsKey  string
}

// RedisStorageConfig Redis storage config
type RedisStorageConfig struct {
	URL       string
	ConfigKey string
	StatsKey  string
}

func NewRedisStorage(config RedisStorageConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, err
	}

	configKey := config.ConfigKey
	if configKey == "" {
		configKey = core.ConfigRedisKey
	}
	statsKey := config.StatsKey
	if statsKey == "" {
		statsKey = core.StatsRedisKey
	}

	return &RedisStorage{client: client, ctx: ctx, configKey: configKey, statsKey: statsKey}, nil
}

func (rs *RedisStorage) LoadConfig() (*core.RecognitionConfig, error) {
	val, err := rs.client.Get(rs.ctx, rs.configKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cfg core.RecognitionConfig
	if err := sonic.Unmarshal([]byte(val), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rs.configKey, err)
	}
	return &cfg, nil
}

func (rs *RedisStorage) SaveConfig(cfg *core.RecognitionConfig) error {
	data, err := util.MarshalJSON(cfg)
	if err != nil {
		return err
	}
	return rs.client.Set(rs.ctx, rs.configKey, data, 0).Err()
}

func (rs *RedisStorage) SaveStats(stats *core.RequestStats) error {
	data, err := util.MarshalJSON(stats)
	if err != nil {
		return err
	}
	return rs.client.Set(rs.ctx, rs.statsKey, data, 0).Err()
}

func (rs *RedisStorage) LoadStats() (*core.RequestStats, error) {
	val, err := rs.client.Get(rs.ctx, rs.statsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &core.RequestStats{RequestHistory: []core.RequestRecord{}}, nil
		}
		return nil, err
	}

	var stats core.RequestStats
	if err := sonic.Unmarshal([]byte(val), &stats); err != nil {
		return nil, err
	}

	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}

	return &stats, nil
}

func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}

// InitStorage picks Redis when REDIS_URL is set and reachable, otherwise JSON
// files with the recognition config at configPath.
func InitStorage(configPath string, logger core.Logger) core.StorageInterface {
	redisURL := os.Getenv("REDIS_URL")

	if redisURL != "" {
		redisStorage, err := NewRedisStorage(RedisStorageConfig{URL: redisURL})
		if err != nil {
			logger.Warn("Failed to initialize Redis storage: %v, falling back to file storage", err)
			return NewFileStorage(configPath, core.StatsFilePath)
		}
		logger.Info("Using Redis storage")
		return redisStorage
	}

	logger.Info("Using file storage: %s", configPath)
	return NewFileStorage(configPath, core.StatsFilePath)
}

var (
	_ core.StorageInterface = (*FileStorage)(nil)
	_ core.StorageInterface = (*RedisStorage)(nil)
)
