package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fyerfyer/penalty-amount/config"
	"github.com/fyerfyer/penalty-amount/internal/amount"
	"github.com/fyerfyer/penalty-amount/internal/cache"
	"github.com/fyerfyer/penalty-amount/internal/database"
	"github.com/fyerfyer/penalty-amount/internal/extractor"
	"github.com/fyerfyer/penalty-amount/internal/logging"
	"github.com/fyerfyer/penalty-amount/internal/metrics"
	"github.com/fyerfyer/penalty-amount/internal/pipeline"
	"github.com/fyerfyer/penalty-amount/pkg/storage"
)

// app 按配置组装各个组件，并负责释放它们持有的资源
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	closers []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close 按创建的逆序释放资源
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("Failed to release resource")
		}
	}
	a.closers = nil
}

// extractor 创建金额抽取器，启用缓存时包一层缓存
func (a *app) extractor() (extractor.Extractor, error) {
	var ex extractor.Extractor
	switch a.cfg.Extractor.Provider {
	case "http":
		httpCfg := extractor.DefaultHTTPConfig().
			WithBaseURL(a.cfg.Extractor.BaseURL).
			WithTimeout(a.cfg.Extractor.Timeout).
			WithRetry(a.cfg.Extractor.MaxRetries, a.cfg.Extractor.RetryDelay)
		httpCfg.BatchSize = a.cfg.Extractor.BatchSize
		client := extractor.NewHTTPExtractor(httpCfg, a.logger)
		if a.cfg.Extractor.APIKey != "" {
			client.WithHeader("Authorization", "Bearer "+a.cfg.Extractor.APIKey)
		}
		ex = client
	default:
		ex = extractor.NewRuleExtractor(extractor.WithRuleLogger(a.logger))
	}

	if !a.cfg.Cache.Enable {
		return ex, nil
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Type = a.cfg.Cache.Type
	cacheCfg.RedisAddr = a.cfg.Cache.Address
	cacheCfg.RedisPassword = a.cfg.Cache.Password
	cacheCfg.RedisDB = a.cfg.Cache.DB
	ttl := time.Duration(a.cfg.Cache.TTL) * time.Second
	if ttl > 0 {
		cacheCfg.DefaultTTL = ttl
	}

	c, err := cache.New(cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	a.onClose(c.Close)
	a.logger.WithField("type", cacheCfg.Type).Info("Extraction cache enabled")
	return extractor.NewCachedExtractor(ex, c, cacheCfg.DefaultTTL, a.logger), nil
}

func (a *app) aggregator() (*amount.Aggregator, error) {
	ex, err := a.extractor()
	if err != nil {
		return nil, err
	}
	return amount.New(
		amount.WithExtractor(ex),
		amount.WithBatchSize(a.cfg.Extractor.BatchSize),
		amount.WithLogger(a.logger),
	), nil
}

func (a *app) storage() (storage.Storage, error) {
	s := a.cfg.Storage
	store, err := storage.New(storage.Config{
		Type:  s.Type,
		Local: storage.LocalConfig{Path: s.Path},
		Minio: storage.MinioConfig{
			Endpoint:  s.Endpoint,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
			UseSSL:    s.UseSSL,
			Bucket:    s.Bucket,
			Prefix:    s.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

func (a *app) database() (*gorm.DB, error) {
	dbCfg := database.DefaultConfig()
	dbCfg.Type = a.cfg.Database.Type
	dbCfg.DSN = a.cfg.Database.DSN
	if err := database.Setup(dbCfg, a.logger); err != nil {
		return nil, err
	}
	a.onClose(database.Close)
	return database.MustDB(), nil
}

func (a *app) metrics() (*metrics.Collector, error) {
	mcfg := metrics.DefaultConfig()
	mcfg.Namespace = a.cfg.Metrics.Namespace
	mcfg.EnableGo = true
	mcfg.EnableProcess = true
	return metrics.New(mcfg)
}

func (a *app) pipelineConfig() pipeline.Config {
	p := a.cfg.Pipeline
	return pipeline.Config{
		BatchSize:       p.BatchSize,
		Concurrency:     p.Concurrency,
		CheckpointEvery: p.CheckpointEvery,
		Resume:          p.Resume,
		CheckpointName:  p.Checkpoint,
		OutputName:      p.Output,
	}
}
