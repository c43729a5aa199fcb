package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

// Store 负责管理磁盘缓存的读写。磁盘布局遵循：
//
//	<CacheDirectory>/<hashedKey>/<maxAgeMs>.<expireAtEpochMs>.<etag>.json
//
// 三个操作互不加锁；只有配置错误（算法不支持、key 非法）会以 error 返回，
// 存储层失败一律体现在结果的 Status 上。
type Store interface {
	// Write 序列化 content 并写入新的条目文件，失败时返回 StatusEmpty。
	Write(ctx context.Context, key Key, content any, maxAge time.Duration, opts ...Options) (WriteResult, error)

	// Read 返回第一个未过期条目，沿途删除遇到的过期条目；未命中返回 StatusAbsent。
	Read(ctx context.Context, key Key, opts ...Options) (ReadResult, error)

	// Remove 递归删除 key 对应的整个目录，失败静默忽略。
	Remove(ctx context.Context, key Key, opts ...Options) error
}

// Key 是有序的 key 片段，支持字符串、[]byte 与各类数字。
type Key []any

// Status 区分成功、空结果（写入未发生）与未命中。
type Status uint8

const (
	// StatusEmpty 表示写入被跳过或失败，与“成功写入空值”可区分。
	StatusEmpty Status = iota
	// StatusAbsent 表示未命中：未缓存、已过期、已损坏或缓存被禁用。
	StatusAbsent
	StatusOK
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAbsent:
		return "absent"
	default:
		return "empty"
	}
}

// WriteResult 在成功时携带 etag 与调用方传入的原始值（不是反序列化副本）。
type WriteResult struct {
	Status Status
	ETag   string
	Data   any
	Path   string
}

func (r WriteResult) OK() bool { return r.Status == StatusOK }

// ReadResult 在命中时携带 etag 与条目中的原始 JSON 文本。
type ReadResult struct {
	Status Status
	ETag   string
	Data   json.RawMessage
	Path   string
}

func (r ReadResult) OK() bool { return r.Status == StatusOK }

// Decode 将缓存的 JSON 解码到 v。
func (r ReadResult) Decode(v any) error {
	if !r.OK() {
		return ErrNotFound
	}
	return json.Unmarshal(r.Data, v)
}

// Query 按 gjson 路径语法读取缓存值中的字段，无需完整解码。
func (r ReadResult) Query(path string) gjson.Result {
	if !r.OK() {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Data, path)
}

// EntryInfo 描述单个条目文件，供诊断与 inspect 使用。
type EntryInfo struct {
	Name      string
	Path      string
	MaxAge    time.Duration
	ExpiresAt time.Time
	ETag      string
	SizeBytes int64
	Expired   bool
}

// PruneReport 汇总一次 Prune 的清理结果。
type PruneReport struct {
	Directories        int
	Entries            int
	Expired            int
	RemovedDirectories int
}

// Op 标识被记录的缓存操作。
type Op string

const (
	OpWrite  Op = "write"
	OpRead   Op = "read"
	OpRemove Op = "remove"
	OpPrune  Op = "prune"
)

// Outcome 标识一次操作（或一次过期清理）的结果。
type Outcome string

const (
	OutcomeStored   Outcome = "stored"
	OutcomeFailed   Outcome = "failed"
	OutcomeDisabled Outcome = "disabled"
	OutcomeHit      Outcome = "hit"
	OutcomeMiss     Outcome = "miss"
	OutcomeRemoved  Outcome = "removed"
	OutcomeExpired  Outcome = "expired"
)

// Recorder 接收操作事件，通常由 metrics 包实现。
type Recorder interface {
	Record(op Op, outcome Outcome)
}

type nopRecorder struct{}

func (nopRecorder) Record(Op, Outcome) {}

var (
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrUnsupportedAlgorithm 表示摘要算法未注册，属于配置错误。
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
	// ErrUnsupportedKeyPart 表示 key 片段类型无法转换为摘要输入。
	ErrUnsupportedKeyPart = errors.New("unsupported key part")
	// ErrEmptyKey 表示 key 至少需要一个片段。
	ErrEmptyKey = errors.New("cache key requires at least one part")
)
