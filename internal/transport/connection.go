package transport

import (
	"errors"
	"fmt"
	"log"
	"net/netip"
	"time"

	"shooter/pkg/core"
	"shooter/pkg/protocol"
)

const (
	ResendInterval = 400 * time.Millisecond // 未确认消息的重发间隔

	// 平均延迟的样本权重上限：前 10 个样本近似简单平均，之后为固定平滑系数
	averagePingRangeMax = 10

	MaxUnacknowledged = 1024 // 未确认消息上限，超过即断开
	MaxHeld           = 1024 // 乱序暂存消息上限，超过即断开
)

var (
	ErrDisconnected = errors.New("连接已断开")
	ErrBacklogFull  = errors.New("未确认消息过多")
)

// Status 连接状态
type Status int

const (
	StatusConnected Status = iota
	StatusDisconnected
)

func (s Status) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// pendingMessage 已发送、等待确认的消息
type pendingMessage struct {
	data     []byte
	lastSent time.Time
	resent   bool
}

// Connection 单个对端的协议状态：序号、确认、重发、延迟估计。
// 断开是终态，同一地址之后的数据报会建立新的连接。
type Connection struct {
	addr   netip.AddrPort
	writer PacketWriter

	status Status
	reason string

	unacknowledged map[uint16]*pendingMessage
	held           map[uint16]protocol.Message

	nextIncomingID uint16
	nextOutgoingID uint16

	averagePing      float64 // 毫秒
	averagePingRange int

	actor    core.PublicID
	hasActor bool

	now func() time.Time
}

// NewConnection 创建连接
func NewConnection(addr netip.AddrPort, writer PacketWriter) *Connection {
	return &Connection{
		addr:           addr,
		writer:         writer,
		status:         StatusConnected,
		unacknowledged: make(map[uint16]*pendingMessage),
		held:           make(map[uint16]protocol.Message),
		now:            time.Now,
	}
}

// Addr 对端地址
func (c *Connection) Addr() netip.AddrPort {
	return c.addr
}

// Status 当前状态
func (c *Connection) Status() Status {
	return c.status
}

// Reason 断开原因，连接中时为空
func (c *Connection) Reason() string {
	return c.reason
}

// IsConnected 是否连接中
func (c *Connection) IsConnected() bool {
	return c.status == StatusConnected
}

// AttachActor 绑定该对端控制的角色
func (c *Connection) AttachActor(id core.PublicID) {
	c.actor = id
	c.hasActor = true
}

// Actor 该对端控制的角色
func (c *Connection) Actor() (core.PublicID, bool) {
	return c.actor, c.hasActor
}

// AveragePing 平均往返延迟
func (c *Connection) AveragePing() time.Duration {
	return time.Duration(c.averagePing * float64(time.Millisecond))
}

// Unacknowledged 等待确认的消息数量
func (c *Connection) Unacknowledged() int {
	return len(c.unacknowledged)
}

// Held 乱序暂存的消息数量
func (c *Connection) Held() int {
	return len(c.held)
}

func (c *Connection) nextMessageID() uint16 {
	id := c.nextOutgoingID
	c.nextOutgoingID++
	return id
}

// Send 分配序号、编码并发送。
// 发送失败会断开连接且不重试；带序号的消息发送成功后等待确认。
func (c *Connection) Send(msg protocol.Message) error {
	if !c.IsConnected() {
		return ErrDisconnected
	}

	_, reliable := msg.SequenceID()
	if reliable && len(c.unacknowledged) >= MaxUnacknowledged {
		c.Disconnect(ErrBacklogFull.Error())
		return ErrBacklogFull
	}

	var id uint16
	if reliable {
		id = c.nextMessageID()
		msg.SetSequenceID(id)
	}

	data := protocol.Encode(msg)

	if _, err := c.writer.WriteToUDPAddrPort(data, c.addr); err != nil {
		c.Disconnect(err.Error())
		return fmt.Errorf("发送 %s 失败: %w", msg.Kind(), err)
	}

	if reliable {
		c.unacknowledged[id] = &pendingMessage{
			data:     data,
			lastSent: c.now(),
		}
	}

	return nil
}

// ResendUnacknowledged 重发超过重发间隔仍未确认的消息。
// 重发过的消息不再用于延迟估计。
func (c *Connection) ResendUnacknowledged(now time.Time) {
	if !c.IsConnected() {
		return
	}

	for _, msg := range c.unacknowledged {
		if now.Sub(msg.lastSent) <= ResendInterval {
			continue
		}

		msg.lastSent = now
		msg.resent = true

		if _, err := c.writer.WriteToUDPAddrPort(msg.data, c.addr); err != nil {
			c.Disconnect(err.Error())
			return
		}
	}
}

// FilterMessage 按序交付：
// 无序号的消息直接通过；序号等于期望值时交付并推进；
// 超前的消息暂存等待前面的消息；落后的（已交付或重复）直接丢弃。
func (c *Connection) FilterMessage(msg protocol.Message) (protocol.Message, bool) {
	id, ok := msg.SequenceID()
	if !ok {
		return msg, true
	}

	switch {
	case id == c.nextIncomingID:
		c.nextIncomingID++
		return msg, true

	case sequenceAhead(id, c.nextIncomingID):
		if _, exists := c.held[id]; !exists && len(c.held) >= MaxHeld {
			c.Disconnect("乱序暂存消息过多")
			return nil, false
		}
		c.held[id] = msg
		return nil, false

	default:
		return nil, false
	}
}

// TakeNextHeldMessages 取出从期望序号开始连续的暂存消息
func (c *Connection) TakeNextHeldMessages() []protocol.Message {
	var messages []protocol.Message

	for {
		msg, ok := c.held[c.nextIncomingID]
		if !ok {
			break
		}
		delete(c.held, c.nextIncomingID)
		messages = append(messages, msg)
		c.nextIncomingID++
	}

	return messages
}

// AcknowledgeMessage 处理对端对 id 的确认
func (c *Connection) AcknowledgeMessage(id uint16) {
	msg, ok := c.unacknowledged[id]
	if !ok {
		log.Printf("对端 %s: 收到消息 %d 的确认，但该消息不在待确认列表中", c.addr, id)
		return
	}
	delete(c.unacknowledged, id)

	// 重发过的消息无法确定对应哪一次发送，往返时间不可信
	if msg.resent {
		return
	}

	sample := float64(c.now().Sub(msg.lastSent).Milliseconds())
	c.averagePing = average(c.averagePing, c.averagePingRange, sample)

	if c.averagePingRange < averagePingRangeMax {
		c.averagePingRange++
	}
}

// Disconnect 断开连接并清空所有待处理状态，已断开时无操作
func (c *Connection) Disconnect(reason string) {
	if !c.IsConnected() {
		return
	}

	c.unacknowledged = make(map[uint16]*pendingMessage)
	c.held = make(map[uint16]protocol.Message)
	c.status = StatusDisconnected
	c.reason = reason

	log.Printf("对端 %s: 连接断开: %s", c.addr, reason)
}

func (c *Connection) String() string {
	if c.hasActor {
		return fmt.Sprintf("Connection{%s, actor=%d, %s}", c.addr, c.actor, c.status)
	}
	return fmt.Sprintf("Connection{%s, %s}", c.addr, c.status)
}

// sequenceAhead 回绕感知的序号比较：a 是否在 b 之后。
// 差值按有符号 16 位解释，回绕附近的新序号不会被误判为旧序号。
func sequenceAhead(a, b uint16) bool {
	return int16(a-b) > 0
}

// average 以 weight 个历史样本为权重把 sample 并入 avg
func average(avg float64, weight int, sample float64) float64 {
	w := float64(weight)
	return (avg*w + sample) / (w + 1)
}
