package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 PENALTY_PIPELINE_BATCH_SIZE
const EnvPrefix = "PENALTY"

// Config 应用程序配置结构体
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"` // 日志级别
	Format     string `mapstructure:"format" validate:"oneof=json text"`            // 输出格式
	File       string `mapstructure:"file"`                                         // 日志文件，为空时输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=1"`                 // 单个日志文件最大大小(MB)
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`                 // 保留的旧日志文件数量
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`                // 旧日志文件保留天数
	Compress   bool   `mapstructure:"compress"`                                     // 是否压缩旧日志文件
}

// PipelineConfig 批处理配置
type PipelineConfig struct {
	BatchSize       int    `mapstructure:"batch_size" validate:"min=1"`       // 每批文书数量
	Concurrency     int    `mapstructure:"concurrency" validate:"min=1"`      // 并发处理的批次数
	CheckpointEvery int    `mapstructure:"checkpoint_every" validate:"min=0"` // 检查点间隔(行)
	Resume          bool   `mapstructure:"resume"`                            // 是否从检查点恢复
	Checkpoint      string `mapstructure:"checkpoint" validate:"required"`    // 检查点对象名
	Output          string `mapstructure:"output" validate:"required"`        // 结果表对象名
}

// ExtractorConfig 金额抽取配置
type ExtractorConfig struct {
	Provider   string        `mapstructure:"provider" validate:"oneof=rule http"`           // 抽取方式：rule 或 http
	BaseURL    string        `mapstructure:"base_url" validate:"required_if=Provider http"` // 远程抽取服务地址
	APIKey     string        `mapstructure:"api_key"`                                       // 远程抽取服务密钥
	Timeout    time.Duration `mapstructure:"timeout"`                                       // 请求超时时间
	MaxRetries int           `mapstructure:"max_retries" validate:"min=0"`                  // 最大重试次数
	RetryDelay time.Duration `mapstructure:"retry_delay"`                                   // 重试间隔
	BatchSize  int           `mapstructure:"batch_size" validate:"min=1"`                   // 单次调用的文本数量
}

// CacheConfig 抽取结果缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`                                    // 是否启用缓存
	Type     string `mapstructure:"type" validate:"oneof=memory redis"`        // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address" validate:"required_if=Type redis"` // Redis地址
	Password string `mapstructure:"password"`                                  // Redis密码
	DB       int    `mapstructure:"db" validate:"min=0"`                       // Redis数据库
	TTL      int    `mapstructure:"ttl" validate:"min=0"`                      // 缓存TTL（秒）
}

// StorageConfig 检查点与结果表存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type" validate:"oneof=local minio"`          // 存储类型：local 或 minio
	Path      string `mapstructure:"path" validate:"required_if=Type local"`     // 本地存储路径
	Prefix    string `mapstructure:"prefix"`                                     // MinIO对象名前缀
	Bucket    string `mapstructure:"bucket" validate:"required_if=Type minio"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint" validate:"required_if=Type minio"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enable bool   `mapstructure:"enable"`                                 // 是否将文书与结果写入数据库
	Type   string `mapstructure:"type" validate:"oneof=sqlite"`           // 数据库类型
	DSN    string `mapstructure:"dsn" validate:"required_if=Enable true"` // 数据源名称
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enable    bool   `mapstructure:"enable"`                                       // 是否导出指标
	Namespace string `mapstructure:"namespace" validate:"required_if=Enable true"` // 指标命名空间
	Textfile  string `mapstructure:"textfile" validate:"required_if=Enable true"`  // 指标文本文件路径
}

// Load 从文件和环境变量加载配置
// configPath 为空或文件不存在时只使用默认值与环境变量；envFile 不存在时忽略
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file: %v", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found at %s, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %v", err)
			}
			logrus.Debugf("Using config file: %s", v.ConfigFileUsed())
		}
	}

	// 支持环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	processEnvironmentVariables(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default 返回只包含默认值的配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// 默认值与结构体一一对应，不会解析失败
	_ = v.Unmarshal(&config)
	return &config
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// processEnvironmentVariables 展开配置中形如 ${VAR} 的密钥
func processEnvironmentVariables(cfg *Config) {
	for _, field := range []*string{
		&cfg.Extractor.APIKey,
		&cfg.Cache.Password,
		&cfg.Storage.AccessKey,
		&cfg.Storage.SecretKey,
	} {
		*field = expandEnv(*field)
	}
}

func expandEnv(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}
	if envVal := os.Getenv(value[2 : len(value)-1]); envVal != "" {
		return envVal
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", false)

	// 批处理默认配置
	v.SetDefault("pipeline.batch_size", 14)
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.checkpoint_every", 100)
	v.SetDefault("pipeline.resume", false)
	v.SetDefault("pipeline.checkpoint", "checkpoints/penalty_amount.csv")
	v.SetDefault("pipeline.output", "output/penalty_amount.csv")

	// 抽取默认配置
	v.SetDefault("extractor.provider", "rule")
	v.SetDefault("extractor.base_url", "")
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("extractor.timeout", "60s")
	v.SetDefault("extractor.max_retries", 3)
	v.SetDefault("extractor.retry_delay", "1s")
	v.SetDefault("extractor.batch_size", 14)

	// 缓存默认配置
	v.SetDefault("cache.enable", false)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 86400) // 1天

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.bucket", "penalty")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", false)

	// 数据库默认配置
	v.SetDefault("database.enable", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/penalty.db")

	// 指标默认配置
	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.namespace", "penalty")
	v.SetDefault("metrics.textfile", "data/metrics/penalty.prom")
}
