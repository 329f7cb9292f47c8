package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/penalty-amount/internal/span"
)

// APIError 表示抽取服务返回的错误
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status code: %d): %s - %s", e.StatusCode, e.Message, e.Detail)
}

// Temporary 5xx 与 429 视为可重试
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// extractRequest 抽取请求体
type extractRequest struct {
	Schema []Label  `json:"schema"`
	Texts  []string `json:"texts"`
}

// extractResponse 抽取响应体，Results 与请求的 Texts 一一对应
// 区间位置为字符偏移
type extractResponse struct {
	Results []map[Label][]span.TextSpan `json:"results"`
}

// HTTPExtractor 远程模型抽取服务客户端
type HTTPExtractor struct {
	client  *http.Client
	config  *HTTPConfig
	headers map[string]string
	logger  *logrus.Logger
}

// NewHTTPExtractor 创建远程抽取服务客户端
func NewHTTPExtractor(config *HTTPConfig, logger *logrus.Logger) *HTTPExtractor {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &HTTPExtractor{
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config: config,
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "Penalty-Amount-Go-Client/1.0",
		},
		logger: logger,
	}
}

// WithHeader 添加自定义请求头
func (h *HTTPExtractor) WithHeader(key, value string) *HTTPExtractor {
	h.headers[key] = value
	return h
}

// Extract 实现 Extractor 接口，超过批大小的输入会拆分为多次请求
func (h *HTTPExtractor) Extract(ctx context.Context, texts []string, labels []Label) ([]Result, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	if len(texts) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, 0, len(texts))
	for _, batch := range Batch(texts, h.config.BatchSize) {
		out, err := h.extractBatch(ctx, batch, labels)
		if err != nil {
			return nil, err
		}
		results = append(results, out...)
	}
	return results, nil
}

func (h *HTTPExtractor) extractBatch(ctx context.Context, texts []string, labels []Label) ([]Result, error) {
	payload, err := json.Marshal(extractRequest{Schema: labels, Texts: texts})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal extract request")
	}

	var resp extractResponse
	if err := h.post(ctx, "/extract", payload, &resp); err != nil {
		return nil, errors.Wrap(err, "extract request failed")
	}
	if len(resp.Results) != len(texts) {
		return nil, errors.Wrapf(ErrResultMismatch, "got %d results for %d texts", len(resp.Results), len(texts))
	}

	results := make([]Result, len(texts))
	for i, raw := range resp.Results {
		results[i] = adaptResult(texts[i], raw, labels)
	}
	return results, nil
}

// adaptResult 将服务返回的区间规整为合法区间，并按位置排序
func adaptResult(text string, raw map[Label][]span.TextSpan, labels []Label) Result {
	idx := span.NewIndex(text)
	n := idx.Len()
	res := Result{}
	for _, label := range labels {
		var spans []span.TextSpan
		for _, s := range raw[label] {
			if s.Start < 0 || s.End > n || s.Start >= s.End {
				continue
			}
			spans = append(spans, idx.Cover(s.Start, s.End))
		}
		if len(spans) > 0 {
			res[label] = span.Sort(spans)
		}
	}
	return res
}

// post 发送POST请求，网络错误与可重试的状态码会按配置重试
func (h *HTTPExtractor) post(ctx context.Context, path string, payload []byte, result interface{}) error {
	url := strings.TrimSuffix(h.config.BaseURL, "/") + path
	attempts := h.config.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	attempt := 0

	return retry.Do(
		func() error {
			attempt++
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}
			for key, value := range h.headers {
				req.Header.Set(key, value)
			}

			err = h.do(req, result)
			if err != nil {
				h.logger.WithFields(logrus.Fields{
					"url":     url,
					"attempt": attempt,
					"error":   err,
				}).Warn("Extract request attempt failed")
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(h.config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Temporary()
			}
			return true
		}),
	)
}

// do 执行单次请求并解析响应
func (h *HTTPExtractor) do(req *http.Request, result interface{}) error {
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    "API call failed",
		}
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
			apiErr.Detail = errResp.Detail
		} else {
			apiErr.Detail = string(body)
		}
		return apiErr
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return retry.Unrecoverable(fmt.Errorf("failed to unmarshal response JSON: %w", err))
		}
	}
	return nil
}
