package cache

import (
	"strconv"
	"strings"
	"time"
)

const entryExt = "json"

// entryName 对应条目文件名 {maxAgeMs}.{expireAtEpochMs}.{etag}.json 的四个字段。
type entryName struct {
	maxAgeMs   int64
	expireAtMs int64
	etag       string
}

func (n entryName) String() string {
	return strconv.FormatInt(n.maxAgeMs, 10) + "." +
		strconv.FormatInt(n.expireAtMs, 10) + "." +
		n.etag + "." + entryExt
}

// expiredAt 仅当过期时间严格早于 now 时返回 true。
func (n entryName) expiredAt(now time.Time) bool {
	return n.expireAtMs < now.UnixMilli()
}

// parseEntryName 解析条目文件名；临时文件或其它无关文件返回 false。
func parseEntryName(name string) (entryName, bool) {
	fields := strings.Split(name, ".")
	if len(fields) != 4 || fields[3] != entryExt || fields[2] == "" {
		return entryName{}, false
	}
	maxAge, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return entryName{}, false
	}
	expireAt, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return entryName{}, false
	}
	return entryName{maxAgeMs: maxAge, expireAtMs: expireAt, etag: fields[2]}, true
}
