package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FileStore 是 Store 的文件系统实现。实例只保存实例级 Options，
// 每次调用都重新合并配置并计算路径，不持有任何共享的可变状态。
type FileStore struct {
	opts     Options
	logger   logrus.FieldLogger
	recorder Recorder
	now      func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewStore 构建缓存实例；logger 为空时使用 logrus 全局实例，recorder 可为空。
func NewStore(opts Options, logger logrus.FieldLogger, recorder Recorder) *FileStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &FileStore{
		opts:     opts,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// Settings 返回实例级配置叠加调用级 opts 后的结果。
func (s *FileStore) Settings(opts ...Options) Settings {
	layers := make([]Options, 0, len(opts)+1)
	layers = append(layers, s.opts)
	layers = append(layers, opts...)
	return Resolve(layers...)
}

func (s *FileStore) Write(ctx context.Context, key Key, content any, maxAge time.Duration, opts ...Options) (WriteResult, error) {
	settings := s.Settings(opts...)
	if !settings.Enabled {
		s.recorder.Record(OpWrite, OutcomeDisabled)
		return WriteResult{Status: StatusEmpty}, nil
	}

	dir, hashed, err := keyDir(settings, key)
	if err != nil {
		return WriteResult{Status: StatusEmpty}, err
	}
	if maxAge <= 0 {
		maxAge = settings.DefaultMaxAge
	}
	logger := s.logger.WithFields(entryFields(OpWrite, hashed))

	body, err := encodeContent(content)
	if err != nil {
		return s.writeFailed(logger, "", fmt.Errorf("serialize content: %w", err)), nil
	}
	etag, err := Hash(settings.Algorithm, string(body))
	if err != nil {
		return WriteResult{Status: StatusEmpty}, err
	}

	// 不足 1ms 的 TTL 向上取整，避免写出 maxAge 为 0 的条目。
	maxAgeMs := max(maxAge.Milliseconds(), 1)
	name := entryName{
		maxAgeMs:   maxAgeMs,
		expireAtMs: s.now().UnixMilli() + maxAgeMs,
		etag:       etag,
	}
	target := filepath.Join(dir, name.String())

	if err := ctx.Err(); err != nil {
		return s.writeFailed(logger, "", err), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.writeFailed(logger, target, err), nil
	}
	if err := writeEntryFile(dir, target, body); err != nil {
		return s.writeFailed(logger, target, err), nil
	}

	s.recorder.Record(OpWrite, OutcomeStored)
	logger.WithField("file", name.String()).Debug("缓存写入完成")
	return WriteResult{Status: StatusOK, ETag: etag, Data: content, Path: target}, nil
}

// writeFailed 记录失败并尽力清理残留的目标文件，清理失败同样忽略。
// encodeContent 序列化缓存值，不转义 HTML 字符，也不保留 Encoder 追加的换行。
func encodeContent(content any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(content); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (s *FileStore) writeFailed(logger logrus.FieldLogger, target string, err error) WriteResult {
	logger.WithError(err).Warn("缓存写入失败")
	if target != "" {
		_ = os.Remove(target)
	}
	s.recorder.Record(OpWrite, OutcomeFailed)
	return WriteResult{Status: StatusEmpty}
}

func (s *FileStore) Read(ctx context.Context, key Key, opts ...Options) (ReadResult, error) {
	settings := s.Settings(opts...)
	if !settings.Enabled {
		s.recorder.Record(OpRead, OutcomeDisabled)
		return ReadResult{Status: StatusAbsent}, nil
	}

	dir, hashed, err := keyDir(settings, key)
	if err != nil {
		return ReadResult{Status: StatusAbsent}, err
	}
	logger := s.logger.WithFields(entryFields(OpRead, hashed))

	if err := ctx.Err(); err != nil {
		return s.readMissed(logger, err), nil
	}
	names, err := listEntryNames(dir)
	if err != nil {
		return s.readMissed(logger, err), nil
	}

	now := s.now()
	for _, name := range names {
		meta, ok := parseEntryName(name)
		if !ok {
			continue
		}
		filePath := filepath.Join(dir, name)
		if meta.expiredAt(now) {
			s.removeExpired(logger, filePath)
			continue
		}

		body, err := os.ReadFile(filePath)
		if err != nil {
			return s.readMissed(logger, err), nil
		}
		if !json.Valid(body) {
			return s.readMissed(logger, fmt.Errorf("corrupted entry %s", name)), nil
		}
		s.recorder.Record(OpRead, OutcomeHit)
		return ReadResult{
			Status: StatusOK,
			ETag:   meta.etag,
			Data:   json.RawMessage(body),
			Path:   filePath,
		}, nil
	}

	return s.readMissed(logger, nil), nil
}

func (s *FileStore) readMissed(logger logrus.FieldLogger, err error) ReadResult {
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.WithError(err).Debug("缓存读取失败，按未命中处理")
	}
	s.recorder.Record(OpRead, OutcomeMiss)
	return ReadResult{Status: StatusAbsent}
}

func (s *FileStore) removeExpired(logger logrus.FieldLogger, filePath string) {
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.WithError(err).WithField("file", filepath.Base(filePath)).Debug("过期条目删除失败")
		return
	}
	s.recorder.Record(OpRead, OutcomeExpired)
}

func (s *FileStore) Remove(ctx context.Context, key Key, opts ...Options) error {
	settings := s.Settings(opts...)
	if !settings.Enabled {
		s.recorder.Record(OpRemove, OutcomeDisabled)
		return nil
	}

	dir, hashed, err := keyDir(settings, key)
	if err != nil {
		return err
	}
	logger := s.logger.WithFields(entryFields(OpRemove, hashed))

	if err := ctx.Err(); err != nil {
		logger.WithError(err).Debug("缓存删除已取消")
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.WithError(err).Debug("缓存删除失败")
		return nil
	}
	s.recorder.Record(OpRemove, OutcomeRemoved)
	return nil
}

// Entries 列出 key 目录下的全部条目（含已过期的），按过期时间排序，不做任何删除。
func (s *FileStore) Entries(ctx context.Context, key Key, opts ...Options) ([]EntryInfo, error) {
	settings := s.Settings(opts...)
	if !settings.Enabled {
		return nil, nil
	}

	dir, _, err := keyDir(settings, key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names, err := listEntryNames(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list cache entries: %w", err)
	}

	now := s.now()
	entries := make([]EntryInfo, 0, len(names))
	for _, name := range names {
		meta, ok := parseEntryName(name)
		if !ok {
			continue
		}
		filePath := filepath.Join(dir, name)
		info, err := os.Stat(filePath)
		if err != nil {
			continue
		}
		entries = append(entries, EntryInfo{
			Name:      name,
			Path:      filePath,
			MaxAge:    time.Duration(meta.maxAgeMs) * time.Millisecond,
			ExpiresAt: time.UnixMilli(meta.expireAtMs),
			ETag:      meta.etag,
			SizeBytes: info.Size(),
			Expired:   meta.expiredAt(now),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ExpiresAt.Before(entries[j].ExpiresAt)
	})
	return entries, nil
}

// Prune 主动扫描整个缓存目录一次：删除过期条目，并移除清空后的 key 目录。
// 它不是后台任务，只在调用方显式触发时运行。
func (s *FileStore) Prune(ctx context.Context, opts ...Options) (PruneReport, error) {
	var report PruneReport
	settings := s.Settings(opts...)
	if !settings.Enabled {
		return report, nil
	}

	dirs, err := os.ReadDir(settings.Directory)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return report, nil
		}
		return report, fmt.Errorf("read cache directory: %w", err)
	}

	now := s.now()
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !d.IsDir() {
			continue
		}
		report.Directories++
		dir := filepath.Join(settings.Directory, d.Name())
		logger := s.logger.WithFields(entryFields(OpPrune, d.Name()))

		names, err := listEntryNames(dir)
		if err != nil {
			logger.WithError(err).Warn("无法读取缓存目录")
			continue
		}
		for _, name := range names {
			meta, ok := parseEntryName(name)
			if !ok {
				continue
			}
			report.Entries++
			if !meta.expiredAt(now) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logger.WithError(err).Warnf("failed to remove cache file %s", name)
				continue
			}
			logger.Debugf("removed cache file %s", name)
			report.Expired++
			s.recorder.Record(OpPrune, OutcomeExpired)
		}

		// 目录非空时 os.Remove 会失败，正好只清理空目录。
		if err := os.Remove(dir); err == nil {
			report.RemovedDirectories++
		}
	}
	return report, nil
}

func keyDir(settings Settings, key Key) (string, string, error) {
	hashed, err := Hash(settings.Algorithm, key...)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(settings.Directory, hashed), hashed, nil
}

// listEntryNames 以文件系统原生顺序返回目录中的文件名，不做排序，跳过子目录。
func listEntryNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// writeEntryFile 通过临时文件 + rename 写入正文，失败时清理临时文件。
func writeEntryFile(dir, target string, body []byte) error {
	tempName := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tempName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	_, err = f.Write(body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, target); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func entryFields(op Op, hashed string) logrus.Fields {
	return logrus.Fields{
		"action":  "cache_" + string(op),
		"key_dir": hashed,
	}
}
