package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
	"golang.org/x/crypto/sha3"
)

// algorithms 收录可用于 key 目录与 etag 的摘要算法，名称与 OpenSSL 命名保持一致。
var algorithms = map[string]func() hash.Hash{
	"md5":        md5.New,
	"sha1":       sha1.New,
	"sha224":     sha256.New224,
	"sha256":     sha256.New,
	"sha384":     sha512.New384,
	"sha512":     sha512.New,
	"sha512-224": sha512.New512_224,
	"sha512-256": sha512.New512_256,
	"sha3-224":   sha3.New224,
	"sha3-256":   sha3.New256,
	"sha3-384":   sha3.New384,
	"sha3-512":   sha3.New512,
	"blake2b512": func() hash.Hash {
		h, _ := blake2b.New512(nil)
		return h
	},
	"blake2s256": func() hash.Hash {
		h, _ := blake2s.New256(nil)
		return h
	},
	"ripemd160": ripemd160.New,
}

// SupportedAlgorithms 返回排序后的算法名称列表，供配置校验与帮助信息使用。
func SupportedAlgorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateAlgorithm 在算法不受支持时返回 ErrUnsupportedAlgorithm。
func ValidateAlgorithm(algorithm string) error {
	_, err := lookupAlgorithm(algorithm)
	return err
}

func lookupAlgorithm(algorithm string) (func() hash.Hash, error) {
	newHash, ok := algorithms[strings.ToLower(strings.TrimSpace(algorithm))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return newHash, nil
}

// Hash 将有序的 key 片段拼接后做摘要，输出 base64（'/' 替换为 '-'）字符串。
// 片段之间没有分隔符，调用方需自行避免 ["ab","c"] 与 ["a","bc"] 这类歧义。
func Hash(algorithm string, parts ...any) (string, error) {
	newHash, err := lookupAlgorithm(algorithm)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", ErrEmptyKey
	}

	h := newHash()
	for i, part := range parts {
		raw, err := partBytes(part)
		if err != nil {
			return "", fmt.Errorf("key part %d: %w", i, err)
		}
		h.Write(raw)
	}
	return encodeDigest(h.Sum(nil)), nil
}

func encodeDigest(sum []byte) string {
	return strings.ReplaceAll(base64.StdEncoding.EncodeToString(sum), "/", "-")
}

// partBytes 把单个 key 片段转换为参与摘要的字节；数字先转成十进制文本。
func partBytes(part any) ([]byte, error) {
	switch v := part.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.Number:
		return []byte(v.String()), nil
	case int:
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case int8:
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case int16:
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case int32:
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return []byte(strconv.FormatInt(v, 10)), nil
	case uint:
		return []byte(strconv.FormatUint(uint64(v), 10)), nil
	case uint8:
		return []byte(strconv.FormatUint(uint64(v), 10)), nil
	case uint16:
		return []byte(strconv.FormatUint(uint64(v), 10)), nil
	case uint32:
		return []byte(strconv.FormatUint(uint64(v), 10)), nil
	case uint64:
		return []byte(strconv.FormatUint(v, 10)), nil
	case float32:
		return []byte(formatNumber(float64(v))), nil
	case float64:
		return []byte(formatNumber(v)), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyPart, part)
	}
}

// formatNumber 按 ECMAScript Number#toString 的规则输出浮点数，保证与既有缓存目录互通。
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
