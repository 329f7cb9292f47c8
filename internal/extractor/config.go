package extractor

import (
	"time"
)

// HTTPConfig 远程抽取服务连接配置
type HTTPConfig struct {
	BaseURL    string        // 服务基础URL
	Timeout    time.Duration // 请求超时时间
	MaxRetries int           // 最大重试次数
	RetryDelay time.Duration // 重试间隔
	BatchSize  int           // 单次请求的文本数量
}

// DefaultHTTPConfig 返回默认配置
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		BaseURL:    "http://localhost:8000/api",
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
		BatchSize:  DefaultBatchSize,
	}
}

// WithBaseURL 设置基础URL
func (c *HTTPConfig) WithBaseURL(url string) *HTTPConfig {
	c.BaseURL = url
	return c
}

// WithTimeout 设置请求超时时间
func (c *HTTPConfig) WithTimeout(timeout time.Duration) *HTTPConfig {
	c.Timeout = timeout
	return c
}

// WithRetry 设置重试参数
func (c *HTTPConfig) WithRetry(maxRetries int, retryDelay time.Duration) *HTTPConfig {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
	return c
}
