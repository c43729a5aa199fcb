// Package render formats cached values and entry listings for the CLI.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/any-hub/fscache/internal/cache"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatRaw  = "raw"
)

// ErrUnknownFormat 表示不支持的输出格式。
var ErrUnknownFormat = errors.New("unknown output format")

// Value 按指定格式输出一段 JSON 文本。
func Value(w io.Writer, data json.RawMessage, format string) error {
	switch format {
	case FormatRaw:
		_, err := fmt.Fprintln(w, string(data))
		return err
	case FormatJSON, "":
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("format json: %w", err)
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	case FormatYAML:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// Query 在缓存值上执行 gjson 路径查询，路径不存在时返回 false。
func Query(data json.RawMessage, path string) (json.RawMessage, bool) {
	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return nil, false
	}
	return json.RawMessage(result.Raw), true
}

// Entries 以表格形式列出条目，时间相对 now 显示。
func Entries(w io.Writer, entries []cache.EntryInfo, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ETAG\tSIZE\tMAX AGE\tEXPIRES\tSTATE")
	for _, entry := range entries {
		state := "live"
		if entry.Expired {
			state = "expired"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			entry.ETag,
			humanize.Bytes(uint64(entry.SizeBytes)),
			entry.MaxAge,
			humanize.RelTime(entry.ExpiresAt, now, "ago", "from now"),
			state,
		)
	}
	return tw.Flush()
}

// Prune 输出一次清理的摘要。
func Prune(w io.Writer, report cache.PruneReport) error {
	_, err := fmt.Fprintf(w, "scanned %s in %s, removed %s and %s\n",
		plural(report.Entries, "entry", "entries"),
		plural(report.Directories, "key directory", "key directories"),
		plural(report.Expired, "expired entry", "expired entries"),
		plural(report.RemovedDirectories, "empty directory", "empty directories"),
	)
	return err
}

func plural(n int, singular, many string) string {
	if n == 1 {
		return humanize.Comma(int64(n)) + " " + singular
	}
	return humanize.Comma(int64(n)) + " " + many
}
