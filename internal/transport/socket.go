package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/netip"

	"shooter/pkg/protocol"
)

// 接收队列容量：一帧内最多缓存的数据报
const incomingQueueSize = 1024

// Datagram 收到的一个数据报，Err 非空表示读取失败
type Datagram struct {
	Addr netip.AddrPort
	Data []byte
	Err  error
}

// PacketWriter 发送数据报
type PacketWriter interface {
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
}

// PacketSource 非阻塞地取出已收到的数据报
type PacketSource interface {
	Poll() (Datagram, bool)
}

// PacketConn 连接表使用的套接字
type PacketConn interface {
	PacketWriter
	PacketSource
}

// Socket UDP 套接字。
// 读取在独立 goroutine 中进行，只负责把数据报放入队列；
// 协议状态只在帧循环里通过 Poll 非阻塞地消费，队列为空即视为本帧读完。
type Socket struct {
	conn     *net.UDPConn
	incoming chan Datagram
}

// Listen 监听 UDP 地址，客户端传入 ":0" 使用临时端口
func Listen(addr string) (*Socket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("解析地址失败: %w", err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("监听失败: %w", err)
	}

	return &Socket{
		conn:     conn,
		incoming: make(chan Datagram, incomingQueueSize),
	}, nil
}

// LocalAddr 本地地址
func (s *Socket) LocalAddr() netip.AddrPort {
	return unmap(s.conn.LocalAddr().(*net.UDPAddr).AddrPort())
}

// ResolveAddr 解析对端地址（支持主机名），IPv4 统一为 4 字节形式，与收包地址保持一致
func ResolveAddr(addr string) (netip.AddrPort, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("解析地址失败: %w", err)
	}
	return unmap(udpAddr.AddrPort()), nil
}

func unmap(addr netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
}

// Run 接收循环，ctx 取消或套接字关闭时返回
func (s *Socket) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.conn.Close()
	})
	defer stop()

	// 多留一个字节，超长数据报会在解码时被识别为损坏
	buf := make([]byte, protocol.MaxMessageSize+1)

	for {
		n, addr, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.push(Datagram{Addr: unmap(addr), Err: err})
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		s.push(Datagram{Addr: unmap(addr), Data: data})
	}
}

func (s *Socket) push(d Datagram) {
	select {
	case s.incoming <- d:
	default:
		// 队列满，丢弃；可靠消息会被对端重发
		log.Printf("接收队列满，丢弃来自 %s 的数据报", d.Addr)
	}
}

// Poll 取出一个已收到的数据报（非阻塞）
func (s *Socket) Poll() (Datagram, bool) {
	select {
	case d := <-s.incoming:
		return d, true
	default:
		return Datagram{}, false
	}
}

// WriteToUDPAddrPort 发送数据报
func (s *Socket) WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error) {
	return s.conn.WriteToUDPAddrPort(b, addr)
}

// Close 关闭套接字
func (s *Socket) Close() error {
	return s.conn.Close()
}
