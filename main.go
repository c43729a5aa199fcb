package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
)

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitMiss    = 3
)

func main() {
	// .env 仅用于补充环境变量（例如 FSCACHE_CONFIG），文件不存在时忽略。
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args))
}

// run 构建 CLI 并执行，把错误映射为退出码，方便测试。
func run(ctx context.Context, args []string) int {
	app := newApp()
	err := app.Run(ctx, args)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errCacheMiss):
		return exitMiss
	case errors.Is(err, errUsage):
		fmt.Fprintln(stdErr, err.Error())
		return exitUsage
	default:
		fmt.Fprintln(stdErr, err.Error())
		return exitFailure
	}
}
