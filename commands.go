package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/any-hub/fscache/internal/cache"
	"github.com/any-hub/fscache/internal/config"
	"github.com/any-hub/fscache/internal/logging"
	"github.com/any-hub/fscache/internal/metrics"
	"github.com/any-hub/fscache/internal/render"
)

const defaultConfigFile = "fscache.toml"

var (
	// errCacheMiss 让 read 在未命中时以退出码 3 结束，不输出错误信息。
	errCacheMiss = errors.New("cache miss")
	errUsage     = errors.New("usage")
)

func usageError(reason string) error {
	return fmt.Errorf("%w: %s", errUsage, reason)
}

// session 汇总一次 CLI 调用期间共享的配置、日志与缓存实例。
// CLI 启动遵循“配置 → 日志 → 指标 → 缓存实例”顺序，由根命令的 Before 完成。
type session struct {
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
	metrics    *metrics.Collector
	store      *cache.FileStore
}

func newApp() *cli.Command {
	s := &session{}
	return &cli.Command{
		Name:      "fscache",
		Usage:     "filesystem-backed JSON cache with TTL expiry",
		Writer:    stdOut,
		ErrWriter: stdErr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path (default ./" + defaultConfigFile + " when present)",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("FSCACHE_CONFIG"),
				),
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "cache root directory for this call",
			},
			&cli.StringFlag{
				Name:  "algorithm",
				Usage: "hash algorithm for this call",
			},
			&cli.BoolFlag{
				Name:        "disable",
				Usage:       "turn every cache operation into a no-op",
				HideDefault: true,
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "write operation counters in Prometheus textfile format",
			},
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "print version and exit",
				HideDefault: true,
			},
		},
		Before: s.setup,
		After:  s.teardown,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("version") {
				printVersion(cmd.Root().Writer)
				return nil
			}
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "write",
				Usage:     "store a JSON value under KEY...",
				ArgsUsage: "KEY...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "value", Usage: "JSON text to cache"},
					&cli.StringFlag{Name: "file", Usage: "read the JSON value from a file, '-' for stdin"},
					&cli.DurationFlag{Name: "ttl", Usage: "time to live, 0 uses DefaultMaxAge"},
				},
				Action: s.write,
			},
			{
				Name:      "read",
				Usage:     "print the first live value stored under KEY...",
				ArgsUsage: "KEY...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "gjson path applied to the cached value"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: render.FormatJSON, Usage: "json, yaml or raw"},
					&cli.BoolFlag{Name: "etag", Usage: "print only the etag", HideDefault: true},
				},
				Action: s.read,
			},
			{
				Name:      "remove",
				Usage:     "delete every entry stored under KEY...",
				ArgsUsage: "KEY...",
				Action:    s.remove,
			},
			{
				Name:      "inspect",
				Usage:     "list entry files stored under KEY... without deleting them",
				ArgsUsage: "KEY...",
				Action:    s.inspect,
			},
			{
				Name:   "prune",
				Usage:  "delete expired entries and empty key directories once",
				Action: s.prune,
			},
			{
				Name:      "hash",
				Usage:     "print the key directory name for PART...",
				ArgsUsage: "PART...",
				Action:    s.hash,
			},
			{
				Name:   "check-config",
				Usage:  "validate the config file and exit",
				Action: s.checkConfig,
			},
		},
	}
}

func (s *session) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("version") {
		return ctx, nil
	}

	path := cmd.String("config")
	if path == "" && fileExists(defaultConfigFile) {
		path = defaultConfigFile
	}

	cfg, err := config.Load(path)
	if err != nil {
		return ctx, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := logging.InitLogger(cfg.Global, cmd.Root().ErrWriter)
	if err != nil {
		return ctx, fmt.Errorf("初始化日志失败: %w", err)
	}

	s.configPath = path
	s.cfg = cfg
	s.logger = logger
	s.metrics = metrics.New()
	s.store = cache.NewStore(cfg.Cache.Options(), logger, s.metrics)
	return ctx, nil
}

func (s *session) teardown(ctx context.Context, cmd *cli.Command) error {
	if s.metrics == nil {
		return nil
	}
	path := cmd.String("metrics-file")
	if path == "" {
		path = s.cfg.Global.MetricsFile
	}
	if path == "" {
		return nil
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		return err
	}
	s.logger.WithFields(logging.BaseFields("metrics_export", s.configPath)).WithField("path", path).Debug("指标已写出")
	return nil
}

// callOptions 把全局 flag 转换为调用级 Options，覆盖配置文件中的实例级设置。
func (s *session) callOptions(cmd *cli.Command) cache.Options {
	root := cmd.Root()
	var opts cache.Options
	if dir := root.String("dir"); dir != "" {
		opts.Directory = dir
	}
	if algorithm := root.String("algorithm"); algorithm != "" {
		opts.Algorithm = algorithm
	}
	if root.Bool("disable") {
		opts.Enabled = cache.Bool(false)
	}
	return opts
}

func (s *session) commandLogger(cmd *cli.Command, parts []string, opts cache.Options) logrus.FieldLogger {
	settings := s.store.Settings(opts)
	return s.logger.WithFields(logging.CommandFields(cmd.Name, parts, settings.Directory, settings.Algorithm, settings.Enabled))
}

func (s *session) write(ctx context.Context, cmd *cli.Command) error {
	key, parts, err := keyFromArgs(cmd)
	if err != nil {
		return err
	}
	raw, err := readValue(cmd)
	if err != nil {
		return err
	}

	opts := s.callOptions(cmd)
	result, err := s.store.Write(ctx, key, json.RawMessage(raw), cmd.Duration("ttl"), opts)
	if err != nil {
		return err
	}
	if !result.OK() {
		return errors.New("缓存未写入：缓存已禁用或写入失败，详见日志")
	}

	s.commandLogger(cmd, parts, opts).WithField("etag", result.ETag).Info("缓存写入完成")
	fmt.Fprintln(cmd.Root().Writer, result.ETag)
	return nil
}

func (s *session) read(ctx context.Context, cmd *cli.Command) error {
	key, parts, err := keyFromArgs(cmd)
	if err != nil {
		return err
	}

	opts := s.callOptions(cmd)
	result, err := s.store.Read(ctx, key, opts)
	if err != nil {
		return err
	}
	logger := s.commandLogger(cmd, parts, opts)
	if !result.OK() {
		logger.Debug("缓存未命中")
		return errCacheMiss
	}
	logger.WithField("etag", result.ETag).Debug("缓存命中")

	if cmd.Bool("etag") {
		fmt.Fprintln(cmd.Root().Writer, result.ETag)
		return nil
	}

	data := result.Data
	if path := cmd.String("query"); path != "" {
		var ok bool
		if data, ok = render.Query(result.Data, path); !ok {
			return errCacheMiss
		}
	}
	return render.Value(cmd.Root().Writer, data, cmd.String("output"))
}

func (s *session) remove(ctx context.Context, cmd *cli.Command) error {
	key, parts, err := keyFromArgs(cmd)
	if err != nil {
		return err
	}
	opts := s.callOptions(cmd)
	if err := s.store.Remove(ctx, key, opts); err != nil {
		return err
	}
	s.commandLogger(cmd, parts, opts).Info("缓存已删除")
	return nil
}

func (s *session) inspect(ctx context.Context, cmd *cli.Command) error {
	key, _, err := keyFromArgs(cmd)
	if err != nil {
		return err
	}
	entries, err := s.store.Entries(ctx, key, s.callOptions(cmd))
	if err != nil {
		return err
	}
	return render.Entries(cmd.Root().Writer, entries, time.Now())
}

func (s *session) prune(ctx context.Context, cmd *cli.Command) error {
	opts := s.callOptions(cmd)
	report, err := s.store.Prune(ctx, opts)
	if err != nil {
		return err
	}
	s.commandLogger(cmd, nil, opts).WithFields(logrus.Fields{
		"expired":             report.Expired,
		"removed_directories": report.RemovedDirectories,
	}).Info("缓存清理完成")
	return render.Prune(cmd.Root().Writer, report)
}

func (s *session) hash(_ context.Context, cmd *cli.Command) error {
	_, parts, err := keyFromArgs(cmd)
	if err != nil {
		return err
	}
	settings := s.store.Settings(s.callOptions(cmd))
	args := make([]any, len(parts))
	for i, part := range parts {
		args[i] = part
	}
	digest, err := cache.Hash(settings.Algorithm, args...)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, digest)
	return nil
}

func (s *session) checkConfig(_ context.Context, cmd *cli.Command) error {
	fields := logging.BaseFields("check_config", s.configPath)
	fields["enabled"] = s.cfg.Cache.Enabled
	fields["directory"] = s.cfg.Cache.CacheDirectory
	fields["algorithm"] = s.cfg.Cache.CacheAlgorithm
	fields["result"] = "ok"
	s.logger.WithFields(fields).Info("配置校验通过")

	source := s.configPath
	if source == "" {
		source = "(defaults)"
	}
	fmt.Fprintf(cmd.Root().Writer, "config ok: %s\n", source)
	return nil
}

// keyFromArgs 把位置参数按顺序转换为 cache.Key；数字文本与同值数字的摘要一致。
func keyFromArgs(cmd *cli.Command) (cache.Key, []string, error) {
	parts := cmd.Args().Slice()
	if len(parts) == 0 {
		return nil, nil, usageError("至少需要一个 KEY 参数")
	}
	key := make(cache.Key, len(parts))
	for i, part := range parts {
		key[i] = part
	}
	return key, parts, nil
}

// readValue 从 --value 或 --file 读取待缓存的 JSON 文本，并确认其合法。
func readValue(cmd *cli.Command) ([]byte, error) {
	value, file := cmd.String("value"), cmd.String("file")
	switch {
	case value != "" && file != "":
		return nil, usageError("--value 与 --file 只能指定一个")
	case value == "" && file == "":
		return nil, usageError("需要通过 --value 或 --file 提供 JSON 值")
	}

	raw := []byte(value)
	if file != "" {
		var err error
		if file == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(file)
		}
		if err != nil {
			return nil, fmt.Errorf("读取值失败: %w", err)
		}
	}
	if !json.Valid(raw) {
		return nil, usageError("值不是合法的 JSON")
	}
	return raw, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
