package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(args ...string) int {
	return run(context.Background(), append([]string{"fscache"}, args...))
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := runCLI("--config", configFixture(t, "valid.toml"), "check-config")
	if code != exitOK {
		t.Fatalf("期望退出码 0，得到 %d: %s", code, stdErrBuffer().String())
	}
	if !strings.Contains(stdOutBuffer().String(), "config ok") {
		t.Fatalf("check-config 应输出校验结果，得到 %q", stdOutBuffer().String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	if code := runCLI("--config", configFixture(t, "invalid.toml"), "check-config"); code != exitFailure {
		t.Fatalf("无效配置应返回退出码 1，得到 %d", code)
	}
	if code := runCLI("--config", configFixture(t, "missing.toml"), "check-config"); code != exitFailure {
		t.Fatalf("缺失配置应返回退出码 1，得到 %d", code)
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	if code := runCLI("--version"); code != exitOK {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "fscache") {
		t.Fatalf("version 输出应包含 fscache 标识")
	}
}

func TestRunWriteReadRemove(t *testing.T) {
	useBufferWriters(t)
	dir := t.TempDir()

	if code := runCLI("--dir", dir, "write", "--value", `{"name":"ann","tags":["a","b"]}`, "--ttl", "1m", "user", "42"); code != exitOK {
		t.Fatalf("write 失败，退出码 %d: %s", code, stdErrBuffer().String())
	}
	etag := strings.TrimSpace(stdOutBuffer().String())
	if etag == "" {
		t.Fatalf("write 应输出 etag")
	}

	stdOutBuffer().Reset()
	if code := runCLI("--dir", dir, "read", "--output", "raw", "user", "42"); code != exitOK {
		t.Fatalf("read 失败，退出码 %d: %s", code, stdErrBuffer().String())
	}
	if got := strings.TrimSpace(stdOutBuffer().String()); got != `{"name":"ann","tags":["a","b"]}` {
		t.Fatalf("read 输出不符: %s", got)
	}

	stdOutBuffer().Reset()
	if code := runCLI("--dir", dir, "read", "--etag", "user", "42"); code != exitOK {
		t.Fatalf("read --etag 失败，退出码 %d", code)
	}
	if got := strings.TrimSpace(stdOutBuffer().String()); got != etag {
		t.Fatalf("etag 不一致: %s vs %s", got, etag)
	}

	stdOutBuffer().Reset()
	if code := runCLI("--dir", dir, "read", "--query", "tags.1", "user", "42"); code != exitOK {
		t.Fatalf("read --query 失败，退出码 %d", code)
	}
	if got := strings.TrimSpace(stdOutBuffer().String()); got != `"b"` {
		t.Fatalf("query 输出不符: %s", got)
	}

	if code := runCLI("--dir", dir, "remove", "user", "42"); code != exitOK {
		t.Fatalf("remove 失败，退出码 %d", code)
	}
	if code := runCLI("--dir", dir, "read", "user", "42"); code != exitMiss {
		t.Fatalf("删除后读取应返回退出码 3，得到 %d", code)
	}
}

func TestRunReadMissAndUsage(t *testing.T) {
	useBufferWriters(t)
	dir := t.TempDir()

	if code := runCLI("--dir", dir, "read", "nothing"); code != exitMiss {
		t.Fatalf("未命中应返回退出码 3，得到 %d", code)
	}
	if code := runCLI("--dir", dir, "read"); code != exitUsage {
		t.Fatalf("缺少 KEY 应返回退出码 2，得到 %d", code)
	}
	if code := runCLI("--dir", dir, "write", "--value", "{broken", "k"); code != exitUsage {
		t.Fatalf("非法 JSON 应返回退出码 2，得到 %d", code)
	}
	if code := runCLI("--dir", dir, "write", "k"); code != exitUsage {
		t.Fatalf("缺少值应返回退出码 2，得到 %d", code)
	}
}

func TestRunDisabledWriteFails(t *testing.T) {
	useBufferWriters(t)
	dir := t.TempDir()

	if code := runCLI("--dir", dir, "--disable", "write", "--value", "1", "k"); code != exitFailure {
		t.Fatalf("禁用缓存时 write 应返回退出码 1，得到 %d", code)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("读取目录失败: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("禁用缓存时不应写入任何文件，得到 %d 个", len(entries))
	}
}

func TestRunHashMatchesKeyDirectory(t *testing.T) {
	useBufferWriters(t)
	dir := t.TempDir()

	if code := runCLI("--dir", dir, "--algorithm", "md5", "hash", "user", "42"); code != exitOK {
		t.Fatalf("hash 失败，退出码 %d", code)
	}
	digest := strings.TrimSpace(stdOutBuffer().String())
	if digest != "-YaJy4ARO2i+WG2LWmqgag==" {
		t.Fatalf("摘要不符: %s", digest)
	}

	if code := runCLI("--dir", dir, "--algorithm", "md5", "write", "--value", "true", "user", "42"); code != exitOK {
		t.Fatalf("write 失败，退出码 %d", code)
	}
	if _, err := os.Stat(filepath.Join(dir, digest)); err != nil {
		t.Fatalf("键目录应与 hash 输出一致: %v", err)
	}

	if code := runCLI("--algorithm", "crc32", "hash", "x"); code != exitFailure {
		t.Fatalf("不支持的算法应返回退出码 1，得到 %d", code)
	}
}

func TestRunInspectAndPrune(t *testing.T) {
	useBufferWriters(t)
	dir := t.TempDir()

	if code := runCLI("--dir", dir, "write", "--value", `"v"`, "--ttl", "1h", "k"); code != exitOK {
		t.Fatalf("write 失败，退出码 %d", code)
	}

	stdOutBuffer().Reset()
	if code := runCLI("--dir", dir, "inspect", "k"); code != exitOK {
		t.Fatalf("inspect 失败，退出码 %d", code)
	}
	out := stdOutBuffer().String()
	if !strings.Contains(out, "ETAG") || !strings.Contains(out, "live") {
		t.Fatalf("inspect 输出不符: %s", out)
	}

	stdOutBuffer().Reset()
	if code := runCLI("--dir", dir, "prune"); code != exitOK {
		t.Fatalf("prune 失败，退出码 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "removed 0 expired") {
		t.Fatalf("prune 不应删除有效条目: %s", stdOutBuffer().String())
	}
}

func TestRunConfigFromEnvironment(t *testing.T) {
	useBufferWriters(t)
	cacheDir := t.TempDir()
	t.Setenv("FSCACHE_CONFIG", writeConfigFile(t, fmt.Sprintf(`
LogLevel = "warn"
CacheAlgorithm = "sha1"
CacheDirectory = %q
DefaultMaxAge = "10m"
`, cacheDir)))

	if code := runCLI("write", "--value", "1", "k"); code != exitOK {
		t.Fatalf("write 失败，退出码 %d: %s", code, stdErrBuffer().String())
	}
	dirs, err := os.ReadDir(cacheDir)
	if err != nil || len(dirs) != 1 {
		t.Fatalf("环境变量中的配置应生效: %v %d", err, len(dirs))
	}
	// sha1 摘要经 base64 编码后为 28 个字符。
	if len(dirs[0].Name()) != 28 {
		t.Fatalf("应使用配置中的 sha1 算法，得到 %s", dirs[0].Name())
	}
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	useBufferWriters(t)
	dir := t.TempDir()
	metricsPath := filepath.Join(t.TempDir(), "fscache.prom")

	if code := runCLI("--dir", dir, "--metrics-file", metricsPath, "read", "k"); code != exitMiss {
		t.Fatalf("未命中应返回退出码 3，得到 %d", code)
	}
	raw, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("读取指标文件失败: %v", err)
	}
	if !strings.Contains(string(raw), `fscache_operations_total{op="read",outcome="miss"} 1`) {
		t.Fatalf("指标文件缺少 read miss 计数: %s", raw)
	}
}

func TestRunWriteKeepsHTMLCharacters(t *testing.T) {
	useBufferWriters(t)
	dir := t.TempDir()

	if code := runCLI("--dir", dir, "write", "--value", `{"html": "<b>&</b>"}`, "page"); code != exitOK {
		t.Fatalf("write 失败，退出码 %d: %s", code, stdErrBuffer().String())
	}

	stdOutBuffer().Reset()
	if code := runCLI("--dir", dir, "read", "--output", "raw", "page"); code != exitOK {
		t.Fatalf("read 失败，退出码 %d", code)
	}
	if got := strings.TrimSpace(stdOutBuffer().String()); got != `{"html":"<b>&</b>"}` {
		t.Fatalf("缓存值应紧凑且不转义 HTML 字符，得到 %s", got)
	}
}
