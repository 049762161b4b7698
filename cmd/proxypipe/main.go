package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/airfreed/proxypipe-go/internal/config"
	"github.com/airfreed/proxypipe-go/internal/generator"
	"github.com/airfreed/proxypipe-go/internal/pipeline"
)

var version = "dev"

const usage = `用法：proxypipe <命令> [选项]

命令：
  run       执行完整流水线：生成产物并提交推送
  generate  只运行内置生成器，不触碰 git
  version   打印版本

选项：
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	fs := pflag.NewFlagSet("proxypipe", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "proxypipe.yaml", "配置文件路径")
	repoDir := fs.StringP("repo", "r", ".", "git 仓库根目录")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}

	if len(args) == 0 {
		fs.Usage()
		return 2
	}
	command := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	switch command {
	case "version":
		fmt.Println(version)
		return 0
	case "run", "generate":
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%s\n", command)
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("加载配置失败：%v", err)
		return 1
	}

	switch command {
	case "run":
		if err := pipeline.New(cfg, *repoDir).Run(ctx); err != nil {
			log.Printf("流水线失败：%v", err)
			return 1
		}
	case "generate":
		if _, err := generator.New(cfg, *repoDir).Run(ctx); err != nil {
			log.Printf("生成失败：%v", err)
			return 1
		}
	}
	return 0
}
