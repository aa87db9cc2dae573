package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"shooter/internal/client"
	"shooter/internal/transport"
	"shooter/pkg/ai"
	"shooter/pkg/core"
)

// listen 创建机器人的套接字
var listen = transport.Listen

// Config 机器人启动配置
type Config struct {
	ServerAddr string
	Count      int
	AI         *ai.Config
	Seed       uint64
}

// Run 启动 Count 个无界面客户端，每个由行为树驱动，直到 ctx 取消
func Run(ctx context.Context, cfg Config) error {
	if cfg.Count <= 0 {
		return fmt.Errorf("机器人数量必须为正数: %d", cfg.Count)
	}

	server, err := transport.ResolveAddr(cfg.ServerAddr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// 启动失败时停掉已启动的机器人，等它们的套接字关闭后再返回
	abort := func(err error) error {
		cancel()
		return errors.Join(err, g.Wait())
	}

	for i := range cfg.Count {
		socket, err := listen(client.DefaultLocalAddr)
		if err != nil {
			return abort(err)
		}

		b := &bot{
			id:         i,
			client:     client.New(socket, server, time.Now()),
			controller: ai.NewControllerWithConfig(cfg.Seed+uint64(i), cfg.AI),
		}
		if err := b.client.Connect(); err != nil {
			socket.Close()
			return abort(fmt.Errorf("机器人 %d: %w", i, err))
		}

		g.Go(func() error {
			return socket.Run(ctx)
		})
		g.Go(func() error {
			return b.loop(ctx)
		})
	}

	log.Printf("已启动 %d 个机器人，服务器: %s", cfg.Count, server)
	return g.Wait()
}

type bot struct {
	id         int
	client     *client.Client
	controller *ai.Controller
	others     []core.Position
}

func (b *bot) loop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / core.TPS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			b.tick(now)
			if connected, reason := b.client.Status(); !connected {
				log.Printf("机器人 %d 断开: %s", b.id, reason)
				return nil
			}
		}
	}
}

func (b *bot) tick(now time.Time) {
	if local, ok := b.client.Local(); ok {
		gameTime := b.client.GameTime()

		b.others = b.others[:0]
		for actor := range b.client.Actors() {
			if !actor.IsLocal {
				b.others = append(b.others, actor.Rendered(gameTime))
			}
		}

		actions, direction := b.controller.Decide(local.Rendered(gameTime), b.others, gameTime)
		b.client.SetInput(actions, direction)
	}

	b.client.Tick(now)
}
