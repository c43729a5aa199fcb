package main

import (
	"fmt"
	"io"
	"runtime/debug"
)

// version/commit 可在构建时通过 -ldflags "-X main.version=..." 注入。
var (
	version = "0.1.0"
	commit  = ""
)

// fullVersion 返回版本号与提交信息；未注入 commit 时尝试读取构建信息中的 vcs.revision。
func fullVersion() string {
	rev := commit
	if rev == "" {
		rev = "dev"
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
					rev = setting.Value[:7]
				}
			}
		}
	}
	return fmt.Sprintf("fscache %s (%s)", version, rev)
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, fullVersion())
}
