// xsited 是多租户站点服务的宿主进程。
//
// 用法:
//
//	xsited serve --config site.yaml [--addr :8080]
//	xsited check --config site.yaml
//
// serve 加载站点配置，为每个租户绑定服务，按 Host 头分发请求，
// 收到 SIGINT/SIGTERM 后停止接收请求并按注册逆序释放全部服务。
// check 只校验配置（租户定义、域名冲突），不建立任何连接。
//
// 退出码:
//
//	0: 正常退出（包括收到信号）
//	1: 参数错误、运行失败或关停时有服务释放失败
//	2: 配置无效
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

// usageError 配置无效，对应退出码 2。
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func createApp(stdout io.Writer) *cli.Command {
	configFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "站点配置文件（yaml 或 json）",
		Required: true,
	}
	return &cli.Command{
		Name:      "xsited",
		Usage:     "多租户站点服务",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stdout,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "启动 HTTP 服务",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "addr",
						Usage: "监听地址，覆盖配置中的 server.addr",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return cmdServe(ctx, cmd.String("config"), cmd.String("addr"))
				},
			},
			{
				Name:  "check",
				Usage: "校验站点配置",
				Flags: []cli.Flag{configFlag},
				Action: func(_ context.Context, cmd *cli.Command) error {
					return cmdCheck(stdout, cmd.String("config"))
				},
			},
		},
		// 退出码由 run 统一映射，不让 urfave/cli 直接调用 os.Exit。
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := createApp(stdout).Run(ctx, args); err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		var uerr *usageError
		if errors.As(err, &uerr) {
			return 2
		}
		return 1
	}
	return 0
}
