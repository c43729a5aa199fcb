// Package metrics counts cache operations with Prometheus collectors. The CLI
// has no network surface, so the registry is exported through the
// node_exporter textfile format instead of an HTTP handler.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/any-hub/fscache/internal/cache"
)

// Collector 实现 cache.Recorder，使用独立 Registry，避免污染全局默认注册表。
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
}

var _ cache.Recorder = (*Collector)(nil)

// New 创建并注册 fscache_operations_total 计数器。
func New() *Collector {
	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fscache",
			Name:      "operations_total",
			Help:      "The total number of cache operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(operations)

	return &Collector{
		registry:   registry,
		operations: operations,
	}
}

// Record 累加一次 (op, outcome) 事件。
func (c *Collector) Record(op cache.Op, outcome cache.Outcome) {
	c.operations.WithLabelValues(string(op), string(outcome)).Inc()
}

// Registry 暴露内部 Registry，便于调用方自行 Gather。
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile 以 textfile collector 格式原子写出当前指标。
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
