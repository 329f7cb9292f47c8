package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// ErrUnknownType 未注册的缓存类型
var ErrUnknownType = errors.New("unknown cache type")

// Cache 抽取结果缓存接口
// 值为序列化后的字符串，由调用方负责编解码
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Factory 缓存工厂函数类型
type Factory func(config Config) (Cache, error)

// 注册的缓存实现，仅在包初始化阶段写入
var registry = map[string]Factory{}

func register(name string, factory Factory) {
	registry[name] = factory
}

// New 按配置创建缓存实例
// Type 为空时使用内存缓存
func New(config Config) (Cache, error) {
	if config.Type == "" {
		config.Type = TypeMemory
	}
	factory, ok := registry[config.Type]
	if !ok {
		return nil, ErrUnknownType
	}
	return factory(config)
}

const (
	// TypeMemory 进程内缓存
	TypeMemory = "memory"
	// TypeRedis Redis缓存
	TypeRedis = "redis"
)

// Config 缓存配置
type Config struct {
	// 缓存类型: "memory", "redis"
	Type string
	// Redis连接地址 (仅Redis缓存使用)
	RedisAddr string
	// Redis密码 (仅Redis缓存使用)
	RedisPassword string
	// Redis数据库编号 (仅Redis缓存使用)
	RedisDB int
	// 键前缀 (仅Redis缓存使用)，用于与其他应用隔离
	Namespace string
	// 默认缓存过期时间
	DefaultTTL time.Duration
	// 自动清理间隔时间 (仅内存缓存使用)
	CleanupInterval time.Duration
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Type:            TypeMemory,
		Namespace:       "penalty",
		DefaultTTL:      time.Hour * 24,
		CleanupInterval: time.Minute * 10,
	}
}

// Key 生成缓存键: prefix:md5(parts)
// parts 按顺序以分隔符拼接后取摘要，相同的输入总是得到相同的键
func Key(prefix string, parts ...string) string {
	h := md5.New()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

func namespaced(ns, key string) string {
	if ns == "" {
		return key
	}
	return strings.TrimSuffix(ns, ":") + ":" + key
}
