package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/any-hub/fscache/internal/cache"
)

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.LogLevel != "debug" || cfg.Global.LogMaxSize != 50 {
		t.Fatalf("日志配置解析错误: %+v", cfg.Global)
	}
	if cfg.Global.LogMaxBackups != 10 || !cfg.Global.LogCompress {
		t.Fatalf("未设置的日志字段应使用默认值: %+v", cfg.Global)
	}
	if cfg.Cache.CacheAlgorithm != "sha512" {
		t.Fatalf("算法名称应被标准化，得到 %s", cfg.Cache.CacheAlgorithm)
	}
	if !filepath.IsAbs(cfg.Cache.CacheDirectory) {
		t.Fatalf("缓存目录应转换为绝对路径，得到 %s", cfg.Cache.CacheDirectory)
	}
	if cfg.Cache.DefaultMaxAge.DurationValue() != 5*time.Minute {
		t.Fatalf("DefaultMaxAge 解析错误: %v", cfg.Cache.DefaultMaxAge.DurationValue())
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if !cfg.Cache.Enabled {
		t.Fatalf("默认应启用缓存")
	}
	if cfg.Cache.CacheAlgorithm != cache.DefaultAlgorithm {
		t.Fatalf("默认算法应为 %s", cache.DefaultAlgorithm)
	}
	if filepath.Base(cfg.Cache.CacheDirectory) != cache.DefaultDirectory {
		t.Fatalf("默认目录应为当前目录下的 .cache，得到 %s", cfg.Cache.CacheDirectory)
	}
	if cfg.Cache.DefaultMaxAge.DurationValue() != cache.DefaultMaxAge {
		t.Fatalf("默认 TTL 应为 60s")
	}
}

func TestValidateRejectsUnsupportedAlgorithm(t *testing.T) {
	if _, err := Load(testConfigPath(t, "invalid.toml")); err == nil {
		t.Fatalf("不支持的算法应返回错误")
	}
}

func TestValidateFields(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad log level", func(c *Config) { c.Global.LogLevel = "loud" }, "Global.LogLevel"},
		{"negative log size", func(c *Config) { c.Global.LogMaxSize = -1 }, "Global.LogMaxSize"},
		{"empty directory", func(c *Config) { c.Cache.CacheDirectory = " " }, "Cache.CacheDirectory"},
		{"bad algorithm", func(c *Config) { c.Cache.CacheAlgorithm = "crc32" }, "Cache.CacheAlgorithm"},
		{"negative max age", func(c *Config) { c.Cache.DefaultMaxAge = Duration(-time.Second) }, "Cache.DefaultMaxAge"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			fieldErr, ok := err.(FieldError)
			if !ok || fieldErr.Field != tc.field {
				t.Fatalf("expected FieldError on %s, got %v", tc.field, err)
			}
		})
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}
}

func TestCacheOptionsConversion(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Enabled = false
	opts := cfg.Cache.Options()
	if opts.Enabled == nil || *opts.Enabled {
		t.Fatalf("配置文件中的 Enabled=false 应显式传递")
	}
	settings := cache.Resolve(opts)
	if settings.Directory != "./data" || settings.Algorithm != "sha256" || settings.DefaultMaxAge != time.Minute {
		t.Fatalf("unexpected settings %+v", settings)
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			LogLevel:      "info",
			LogMaxSize:    100,
			LogMaxBackups: 10,
		},
		Cache: CacheConfig{
			Enabled:        true,
			CacheAlgorithm: "sha256",
			CacheDirectory: "./data",
			DefaultMaxAge:  Duration(time.Minute),
		},
	}
}
