package extractor

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/penalty-amount/internal/cache"
)

const cachePrefix = "extract"

// CachedExtractor 带缓存的抽取器
// 以标签集合与文本内容为键缓存抽取结果，只把未命中的文本交给内部抽取器
type CachedExtractor struct {
	inner  Extractor
	cache  cache.Cache
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCachedExtractor 创建带缓存的抽取器
func NewCachedExtractor(inner Extractor, c cache.Cache, ttl time.Duration, logger *logrus.Logger) *CachedExtractor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CachedExtractor{inner: inner, cache: c, ttl: ttl, logger: logger}
}

// Extract 实现 Extractor 接口
// 缓存读写失败只记录日志，不影响抽取
func (c *CachedExtractor) Extract(ctx context.Context, texts []string, labels []Label) ([]Result, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}

	labelKey := labelSetKey(labels)
	results := make([]Result, len(texts))
	keys := make([]string, len(texts))
	var (
		missTexts []string
		missIdx   []int
	)

	for i, text := range texts {
		keys[i] = cache.Key(cachePrefix, labelKey, text)
		if res, ok := c.lookup(ctx, keys[i]); ok {
			results[i] = res
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := c.inner.Extract(ctx, missTexts, labels)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, errors.Wrapf(ErrResultMismatch, "got %d results for %d texts", len(fresh), len(missTexts))
	}

	for j, res := range fresh {
		i := missIdx[j]
		results[i] = res
		c.store(ctx, keys[i], res)
	}

	c.logger.WithFields(logrus.Fields{
		"texts":  len(texts),
		"misses": len(missTexts),
	}).Debug("Cached extraction finished")
	return results, nil
}

func (c *CachedExtractor) lookup(ctx context.Context, key string) (Result, bool) {
	value, found, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to read extraction cache")
		return nil, false
	}
	if !found {
		return nil, false
	}

	var res Result
	if err := json.Unmarshal([]byte(value), &res); err != nil {
		c.logger.WithError(err).Warn("Discarding malformed cached extraction")
		return nil, false
	}
	if res == nil {
		res = Result{}
	}
	return res, true
}

func (c *CachedExtractor) store(ctx context.Context, key string, res Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, string(data), c.ttl); err != nil {
		c.logger.WithError(err).Warn("Failed to write extraction cache")
	}
}

// labelSetKey 标签集合的规范化表示，与标签顺序无关
func labelSetKey(labels []Label) string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
