package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/netip"
	"time"

	"golang.org/x/sync/errgroup"

	"shooter/internal/transport"
	"shooter/pkg/core"
)

const (
	DefaultAddr         = ":7777"
	DefaultSyncInterval = 50 * time.Millisecond // 位置同步间隔（20 Hz）
)

// Config 服务器配置
type Config struct {
	Addr         string
	TPS          int
	SyncInterval time.Duration
	Seed         uint64 // 0 表示按启动时间取种子
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Addr:         DefaultAddr,
		TPS:          core.TPS,
		SyncInterval: DefaultSyncInterval,
	}
}

func (c Config) validate() error {
	if c.TPS <= 0 {
		return fmt.Errorf("TPS 必须为正数: %d", c.TPS)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("同步间隔必须为正数: %s", c.SyncInterval)
	}
	return nil
}

// Server 权威服务器：UDP 接收 goroutine + 帧循环
type Server struct {
	cfg    Config
	socket *transport.Socket
	world  *World
}

// New 监听地址并创建世界
func New(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	socket, err := transport.Listen(cfg.Addr)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:    cfg,
		socket: socket,
		world:  NewWorld(socket, cfg, time.Now()),
	}, nil
}

// Addr 实际监听地址
func (s *Server) Addr() netip.AddrPort {
	return s.socket.LocalAddr()
}

// Run 运行到 ctx 取消，返回时套接字已关闭
func (s *Server) Run(ctx context.Context) error {
	log.Printf("服务器监听中: %s (%d TPS, 同步间隔 %s)", s.Addr(), s.cfg.TPS, s.cfg.SyncInterval)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.socket.Run(ctx)
	})

	g.Go(func() error {
		return s.loop(ctx)
	})

	err := g.Wait()
	if closeErr := s.socket.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		err = errors.Join(err, closeErr)
	}

	log.Println("服务器已关闭")
	return err
}

func (s *Server) loop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.TPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.world.Tick(now)
		}
	}
}
