package protocol

import (
	"fmt"
	"net/netip"
)

// ReceiverKind 发送目标类型
type ReceiverKind int

const (
	ReceiverOnly ReceiverKind = iota
	ReceiverEvery
	ReceiverExcept
)

// Receiver 发送目标：单个对端、全部对端或除某个对端外的全部
type Receiver struct {
	Kind ReceiverKind
	Addr netip.AddrPort
}

// Only 只发给 addr
func Only(addr netip.AddrPort) Receiver {
	return Receiver{Kind: ReceiverOnly, Addr: addr}
}

// Every 发给全部对端
func Every() Receiver {
	return Receiver{Kind: ReceiverEvery}
}

// Except 发给除 addr 外的全部对端
func Except(addr netip.AddrPort) Receiver {
	return Receiver{Kind: ReceiverExcept, Addr: addr}
}

// Includes 目标是否包含 addr
func (r Receiver) Includes(addr netip.AddrPort) bool {
	switch r.Kind {
	case ReceiverOnly:
		return r.Addr == addr
	case ReceiverEvery:
		return true
	case ReceiverExcept:
		return r.Addr != addr
	default:
		return false
	}
}

func (r Receiver) String() string {
	switch r.Kind {
	case ReceiverOnly:
		return fmt.Sprintf("Only(%s)", r.Addr)
	case ReceiverEvery:
		return "Every"
	case ReceiverExcept:
		return fmt.Sprintf("Except(%s)", r.Addr)
	default:
		return "Receiver(?)"
	}
}
