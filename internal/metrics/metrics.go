package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// 文书处理状态标签
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Config 指标配置
type Config struct {
	Namespace     string    // 指标命名空间
	EnableGo      bool      // 是否采集Go运行时指标
	EnableProcess bool      // 是否采集进程指标
	BatchBuckets  []float64 // 批次耗时直方图分桶(秒)
}

// DefaultConfig 返回默认指标配置
func DefaultConfig() Config {
	return Config{
		Namespace:    "penalty",
		BatchBuckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}
}

// Collector 批处理运行指标
// 批处理任务没有抓取端点，结束时以文本格式写入文件，供 node_exporter 的 textfile 收集器读取
type Collector struct {
	registry  *prometheus.Registry
	documents *prometheus.CounterVec
	outcomes  *prometheus.CounterVec
	amounts   *prometheus.CounterVec
	batches   prometheus.Histogram
	lastRun   prometheus.Gauge
}

// New 创建指标收集器，每个收集器使用独立的注册表
func New(cfg Config) (*Collector, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.BatchBuckets == nil {
		cfg.BatchBuckets = DefaultConfig().BatchBuckets
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "documents_total",
			Help:      "Documents seen by the pipeline, by status.",
		}, []string{"status"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "outcomes_total",
			Help:      "Per-flag computation outcomes.",
		}, []string{"flag", "outcome"}),
		amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "amount_yuan_total",
			Help:      "Sum of computed amounts in yuan, by flag.",
		}, []string{"flag"}),
		batches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time spent computing one batch of documents.",
			Buckets:   cfg.BatchBuckets,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
	}

	if cfg.EnableProcess {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
			Namespace: cfg.Namespace,
		}))
	}
	if cfg.EnableGo {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	c.registry.MustRegister(c.documents, c.outcomes, c.amounts, c.batches, c.lastRun)
	return c, nil
}

// Registry 返回底层注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// AddDocuments 按状态累加文书数量
func (c *Collector) AddDocuments(status string, n int) {
	if n <= 0 {
		return
	}
	c.documents.WithLabelValues(status).Add(float64(n))
}

// ObserveResult 记录单个类别的计算结果
func (c *Collector) ObserveResult(flag, outcome string, value float64) {
	c.outcomes.WithLabelValues(flag, outcome).Inc()
	if value > 0 {
		c.amounts.WithLabelValues(flag).Add(value)
	}
}

// ObserveBatch 记录一个批次的耗时
func (c *Collector) ObserveBatch(d time.Duration) {
	c.batches.Observe(d.Seconds())
}

// MarkRun 记录运行完成时间
func (c *Collector) MarkRun(t time.Time) {
	c.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile 以文本格式写入全部指标
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
