package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"shooter/internal/server"
)

func main() {
	cfg := server.DefaultConfig()

	// 部署时可以用环境变量覆盖监听地址
	defaultAddr := cfg.Addr
	if addr := os.Getenv("SHOOTER_ADDR"); addr != "" {
		defaultAddr = addr
	}

	// 命令行参数
	flag.StringVar(&cfg.Addr, "addr", defaultAddr, "服务器监听地址 (UDP)")
	flag.IntVar(&cfg.TPS, "tps", cfg.TPS, "服务器每秒更新次数")
	flag.DurationVar(&cfg.SyncInterval, "sync", cfg.SyncInterval, "位置同步间隔")
	flag.Uint64Var(&cfg.Seed, "seed", 0, "随机种子（0 为按时间）")
	flag.Parse()

	gameServer, err := server.New(cfg)
	if err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}

	log.Println("========================================")
	log.Println("  Shooter 联机服务器")
	log.Println("========================================")
	log.Printf("监听地址: %s", gameServer.Addr())
	log.Printf("服务器 TPS: %d", cfg.TPS)
	log.Printf("位置同步间隔: %s", cfg.SyncInterval)
	log.Println("========================================")
	log.Println("按 Ctrl+C 停止服务器")

	// 等待中断信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := gameServer.Run(ctx); err != nil {
		log.Fatalf("服务器异常退出: %v", err)
	}

	log.Println("服务器已关闭，再见！")
}
