package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/any-hub/fscache/internal/cache"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级行为：日志与指标输出。
type GlobalConfig struct {
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
	MetricsFile   string `mapstructure:"MetricsFile"`
}

// CacheConfig 对应缓存实例级配置，位于内置默认值之上、调用级参数之下。
type CacheConfig struct {
	Enabled        bool     `mapstructure:"Enabled"`
	CacheAlgorithm string   `mapstructure:"CacheAlgorithm"`
	CacheDirectory string   `mapstructure:"CacheDirectory"`
	DefaultMaxAge  Duration `mapstructure:"DefaultMaxAge"`
}

// Config 是 TOML 文件映射的整体结构，两组字段都平铺在顶层。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Cache  CacheConfig  `mapstructure:",squash"`
}

// Options 将配置文件转换为缓存实例级 Options。
func (c CacheConfig) Options() cache.Options {
	return cache.Options{
		Enabled:       cache.Bool(c.Enabled),
		Algorithm:     c.CacheAlgorithm,
		Directory:     c.CacheDirectory,
		DefaultMaxAge: c.DefaultMaxAge.DurationValue(),
	}
}
