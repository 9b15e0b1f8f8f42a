package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/betbot/gridwager/pkg/config"
)

const usage = `gridwager - 预测市场网格下注客户端

用法:
  gridwager [-config file] [-env file] <command> [flags]

命令:
  bet       拉取网格、选格、生成评论并提交一次下注
  run       按间隔循环下注（断路器保护）
  score     评估一段评论（长度/多样性/术语）
  history   查看下注账本
  serve     启动 HTTP API
  nonce     查看当前 nonce
  secrets   写入 API Key 到加密密钥库
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("gridwager", flag.ContinueOnError)
	configPath := global.String("config", "", "配置文件路径（支持 .yaml, .yml, .json）")
	envPath := global.String("env", ".env", ".env 文件路径（不存在时忽略）")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	// .env best-effort
	_ = godotenv.Load(*envPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, cmdArgs := rest[0], rest[1:]
	var cmdErr error
	switch cmd {
	case "score":
		// 纯本地命令，不需要 API 配置
		cmdErr = cmdScore(cmdArgs, cfg)
	case "bet", "run", "history", "serve", "nonce", "secrets":
		if err := initLogger(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
			return 1
		}
		cmdErr = dispatch(ctx, cmd, cmdArgs, cfg)
	default:
		fmt.Fprintf(os.Stderr, "未知命令: %s\n\n", cmd)
		global.Usage()
		return 2
	}
	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+cmdErr.Error()))
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, cmd string, args []string, cfg *config.Config) error {
	switch cmd {
	case "history":
		return cmdHistory(ctx, args, cfg)
	case "secrets":
		return cmdSecrets(args, cfg)
	}

	var opts cliOptions
	fs := commandFlags(cmd, cfg, &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "bet":
		return cmdBet(ctx, a, opts)
	case "run":
		return cmdRun(ctx, a)
	case "serve":
		return cmdServe(ctx, a)
	case "nonce":
		return cmdNonce(a)
	}
	return nil
}
