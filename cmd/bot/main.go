package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"shooter/internal/bot"
	"shooter/internal/client"
	"shooter/pkg/ai"
)

func main() {
	serverAddr := flag.String("server", client.DefaultServerAddr, "服务器地址")
	count := flag.Int("n", 4, "机器人数量")
	hard := flag.Bool("hard", false, "困难难度")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "随机种子")
	flag.Parse()

	config := &ai.ConfigNormal
	if *hard {
		config = &ai.ConfigHard
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := bot.Run(ctx, bot.Config{
		ServerAddr: *serverAddr,
		Count:      *count,
		AI:         config,
		Seed:       *seed,
	})
	if err != nil {
		log.Fatalf("机器人异常退出: %v", err)
	}

	log.Println("机器人已退出")
}
