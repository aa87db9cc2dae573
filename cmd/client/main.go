package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"shooter/internal/client"
	"shooter/internal/render"
)

func main() {
	serverAddr := flag.String("server", client.DefaultServerAddr, "服务器地址")
	localAddr := flag.String("local", client.DefaultLocalAddr, "本地 UDP 地址")
	arrows := flag.Bool("arrows", false, "使用方向键+回车操作")
	flag.Parse()

	scheme := render.ControlWASD
	if *arrows {
		scheme = render.ControlArrow
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 运行游戏
	err := render.Run(ctx, render.Config{
		ServerAddr: *serverAddr,
		LocalAddr:  *localAddr,
		Scheme:     scheme,
	})
	if err != nil {
		log.Fatal(err)
	}
}
