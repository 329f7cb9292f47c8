package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/penalty-amount/internal/span"
)

func newTestExtractor(url string, batchSize int) *HTTPExtractor {
	cfg := DefaultHTTPConfig().
		WithBaseURL(url).
		WithTimeout(5*time.Second).
		WithRetry(2, time.Millisecond)
	cfg.BatchSize = batchSize
	return NewHTTPExtractor(cfg, quietLogger())
}

// TestHTTPExtractor 测试请求格式与响应适配
func TestHTTPExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req extractRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []Label{LabelFine, LabelConfiscation}, req.Schema)
		assert.Equal(t, []string{"罚款30万元，没收15万元。"}, req.Texts)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[Label][]span.TextSpan{{
				LabelConfiscation: {{Start: 9, End: 13}},
				// 越界区间被丢弃，区间按位置排序
				LabelFine: {{Start: 40, End: 45}, {Start: 2, End: 6, Text: "30万元"}},
			}},
		})
	}))
	defer server.Close()

	ex := newTestExtractor(server.URL, 14)
	res, err := ex.Extract(context.Background(), []string{"罚款30万元，没收15万元。"}, DefaultLabels)
	require.NoError(t, err)
	require.Len(t, res, 1)

	assert.Equal(t, []span.TextSpan{{Start: 2, End: 6, Text: "30万元"}}, res[0].Spans(LabelFine))
	// 缺失的文本按位置补齐
	assert.Equal(t, []span.TextSpan{{Start: 9, End: 13, Text: "15万元"}}, res[0].Spans(LabelConfiscation))
}

// TestHTTPExtractorBatching 测试超过批大小的输入拆分为多次请求
func TestHTTPExtractorBatching(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req extractRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		results := make([]map[Label][]span.TextSpan, len(req.Texts))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
	}))
	defer server.Close()

	ex := newTestExtractor(server.URL, 2)
	res, err := ex.Extract(context.Background(), []string{"a", "b", "c"}, DefaultLabels)
	require.NoError(t, err)
	assert.Len(t, res, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// TestHTTPExtractorRetry 测试服务端错误会重试
func TestHTTPExtractorRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{}]}`))
	}))
	defer server.Close()

	ex := newTestExtractor(server.URL, 14)
	res, err := ex.Extract(context.Background(), []string{"罚款1万元。"}, DefaultLabels)
	require.NoError(t, err)
	assert.Len(t, res, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// TestHTTPExtractorClientError 测试客户端错误不重试并返回APIError
func TestHTTPExtractorClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"unknown schema"}`))
	}))
	defer server.Close()

	ex := newTestExtractor(server.URL, 14)
	_, err := ex.Extract(context.Background(), []string{"罚款1万元。"}, DefaultLabels)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "unknown schema", apiErr.Detail)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// TestHTTPExtractorMismatch 测试结果数量不一致
func TestHTTPExtractorMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	ex := newTestExtractor(server.URL, 14)
	_, err := ex.Extract(context.Background(), []string{"a"}, DefaultLabels)
	assert.True(t, errors.Is(err, ErrResultMismatch))

	_, err = ex.Extract(context.Background(), []string{"a"}, nil)
	assert.True(t, errors.Is(err, ErrNoLabels))
}
