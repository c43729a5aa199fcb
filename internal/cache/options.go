package cache

import "time"

const (
	DefaultAlgorithm = "sha256"
	DefaultDirectory = ".cache"
	DefaultMaxAge    = 60 * time.Second
)

// Options 描述一层可选配置（实例级或调用级）。零值字段表示“未设置”，
// 不会覆盖下层的值；Enabled 使用指针以区分未设置与显式关闭。
type Options struct {
	Enabled       *bool
	Algorithm     string
	Directory     string
	DefaultMaxAge time.Duration
}

// Settings 是逐层合并后的最终配置，每次调用重新计算，不会被持久化。
type Settings struct {
	Enabled       bool
	Algorithm     string
	Directory     string
	DefaultMaxAge time.Duration
}

// Bool 便于构造 Options.Enabled。
func Bool(v bool) *bool {
	return &v
}

// Defaults 返回内置默认值的副本；Directory 为相对路径，按当前工作目录解析。
func Defaults() Settings {
	return Settings{
		Enabled:       true,
		Algorithm:     DefaultAlgorithm,
		Directory:     DefaultDirectory,
		DefaultMaxAge: DefaultMaxAge,
	}
}

// Resolve 以内置默认值为底，按顺序叠加各层 Options，越靠后的层优先级越高。
// 这里不做任何校验，非法值会在缓存操作中暴露。
func Resolve(layers ...Options) Settings {
	settings := Defaults()
	for _, layer := range layers {
		settings = layer.applyTo(settings)
	}
	return settings
}

func (o Options) applyTo(s Settings) Settings {
	if o.Enabled != nil {
		s.Enabled = *o.Enabled
	}
	if o.Algorithm != "" {
		s.Algorithm = o.Algorithm
	}
	if o.Directory != "" {
		s.Directory = o.Directory
	}
	if o.DefaultMaxAge != 0 {
		s.DefaultMaxAge = o.DefaultMaxAge
	}
	return s
}
