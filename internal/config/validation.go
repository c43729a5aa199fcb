package config

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/fscache/internal/cache"
)

// Validate 针对语义级别做进一步校验，防止非法配置进入缓存操作。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法识别的日志级别")
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}

	cc := c.Cache
	if strings.TrimSpace(cc.CacheDirectory) == "" {
		return newFieldError("Cache.CacheDirectory", "不能为空")
	}
	if err := cache.ValidateAlgorithm(cc.CacheAlgorithm); err != nil {
		return newFieldError("Cache.CacheAlgorithm", "仅支持 "+strings.Join(cache.SupportedAlgorithms(), "|"))
	}
	if cc.DefaultMaxAge.DurationValue() < 0 {
		return newFieldError("Cache.DefaultMaxAge", "不能为负数")
	}

	return nil
}
