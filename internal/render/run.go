package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"

	"shooter/internal/client"
	"shooter/internal/transport"
)

// Config 客户端启动配置
type Config struct {
	ServerAddr string
	LocalAddr  string
	Scheme     ControlScheme
}

// Run 打开窗口并运行到窗口关闭或 ctx 取消。
// ebiten 要求在主 goroutine 中调用。
func Run(ctx context.Context, cfg Config) error {
	server, err := transport.ResolveAddr(cfg.ServerAddr)
	if err != nil {
		return err
	}

	socket, err := transport.Listen(cfg.LocalAddr)
	if err != nil {
		return err
	}
	defer socket.Close()

	c := client.New(socket, server, time.Now())
	if err := c.Connect(); err != nil {
		return err
	}
	log.Printf("本地地址: %s", socket.LocalAddr())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return socket.Run(ctx)
	})

	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle(fmt.Sprintf("Shooter [%s] [%s]", server, cfg.Scheme))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	ebiten.SetTPS(FPS)

	runErr := ebiten.RunGame(NewGame(ctx, c, cfg.Scheme))
	cancel()

	if err := g.Wait(); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, ebiten.Termination) {
		return fmt.Errorf("游戏循环退出: %w", runErr)
	}
	return nil
}
