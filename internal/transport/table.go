package transport

import (
	"cmp"
	"iter"
	"log"
	"maps"
	"net/netip"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"shooter/pkg/protocol"
)

// Handler 处理一条已按序交付的消息
type Handler func(conn *Connection, msg protocol.Message)

// ConnectionTable 持有全部对端连接，按地址索引。
// 只在帧循环内访问，不做并发保护。
type ConnectionTable struct {
	conn        PacketConn
	connections map[netip.AddrPort]*Connection

	// 损坏数据报的日志限流，防止被刷屏
	corruptLog *rate.Limiter

	responses []pendingResponse

	// 被同地址新连接顶替的已断开连接，等待 Prune 交给调用方清理
	replaced []*Connection

	now func() time.Time
}

type pendingResponse struct {
	conn *Connection
	id   uint16
}

// NewConnectionTable 创建连接表
func NewConnectionTable(conn PacketConn) *ConnectionTable {
	return &ConnectionTable{
		conn:        conn,
		connections: make(map[netip.AddrPort]*Connection),
		corruptLog:  rate.NewLimiter(rate.Every(time.Second), 5),
		now:         time.Now,
	}
}

// SetClock 设置之后新建连接使用的时钟
func (t *ConnectionTable) SetClock(now func() time.Time) {
	t.now = now
}

// Get 查找连接
func (t *ConnectionTable) Get(addr netip.AddrPort) (*Connection, bool) {
	conn, ok := t.connections[addr]
	return conn, ok
}

// Len 连接数量（含尚未清理的已断开连接）
func (t *ConnectionTable) Len() int {
	return len(t.connections)
}

// All 按地址顺序遍历连接
func (t *ConnectionTable) All() iter.Seq[*Connection] {
	return func(yield func(*Connection) bool) {
		for _, addr := range t.sortedAddrs() {
			conn, ok := t.connections[addr]
			if !ok {
				continue
			}
			if !yield(conn) {
				return
			}
		}
	}
}

func (t *ConnectionTable) sortedAddrs() []netip.AddrPort {
	return slices.SortedFunc(maps.Keys(t.connections), func(a, b netip.AddrPort) int {
		return cmp.Compare(a.String(), b.String())
	})
}

// ensure 返回地址对应的连接；不存在或已断开时建立新连接
func (t *ConnectionTable) ensure(addr netip.AddrPort) *Connection {
	conn, ok := t.connections[addr]
	if ok && conn.IsConnected() {
		return conn
	}

	if ok {
		log.Printf("%s 重新连接（旧连接: %s）", addr, conn.Reason())
		t.replaced = append(t.replaced, conn)
	} else {
		log.Printf("%s 已连接", addr)
	}

	conn = NewConnection(addr, t.conn)
	conn.now = t.now
	t.connections[addr] = conn
	return conn
}

// Send 发送消息给 addr，必要时建立连接
func (t *ConnectionTable) Send(addr netip.AddrPort, msg protocol.Message) error {
	return t.ensure(addr).Send(msg)
}

// SendTo 按目标发送。广播时每个连接各自分配序号。
func (t *ConnectionTable) SendTo(receiver protocol.Receiver, msg protocol.Message) {
	if receiver.Kind == protocol.ReceiverOnly {
		if err := t.Send(receiver.Addr, msg); err != nil {
			log.Printf("发送 %s 到 %s 失败: %v", msg.Kind(), receiver.Addr, err)
		}
		return
	}

	for conn := range t.All() {
		if !conn.IsConnected() || !receiver.Includes(conn.Addr()) {
			continue
		}
		if err := conn.Send(msg); err != nil {
			log.Printf("发送 %s 到 %s 失败: %v", msg.Kind(), conn.Addr(), err)
		}
	}
}

// Receive 取出本帧全部已收到的数据报并处理，返回处理的数据报数量。
// 带序号的消息无论是否按序都会回复确认；确认在读完后统一发送。
func (t *ConnectionTable) Receive(handler Handler) int {
	count := 0

	for {
		datagram, ok := t.conn.Poll()
		if !ok {
			break
		}
		count++
		t.receiveDatagram(datagram, handler)
	}

	// 确认只经由收到消息的那条连接发出，连接已断开则不再回复
	responses := t.responses
	t.responses = t.responses[:0]
	for _, r := range responses {
		if !r.conn.IsConnected() {
			continue
		}
		if err := r.conn.Send(&protocol.Response{MessageID: r.id}); err != nil {
			log.Printf("发送确认到 %s 失败: %v", r.conn.Addr(), err)
		}
	}
	clear(responses)

	return count
}

func (t *ConnectionTable) receiveDatagram(datagram Datagram, handler Handler) {
	if datagram.Err != nil {
		log.Printf("接收数据失败: %v", datagram.Err)
		if conn, ok := t.connections[datagram.Addr]; ok {
			conn.Disconnect(datagram.Err.Error())
		}
		return
	}

	msg, err := protocol.Decode(datagram.Data)
	if err != nil {
		if t.corruptLog.Allow() {
			log.Printf("收到来自 %s 的损坏消息: %v", datagram.Addr, err)
		}
		return
	}

	// 确认不建立连接：未知或已断开的对端发来的确认直接忽略
	if response, ok := msg.(*protocol.Response); ok {
		conn, ok := t.connections[datagram.Addr]
		if !ok || !conn.IsConnected() {
			log.Printf("忽略来自 %s 的确认 %d：没有可用连接", datagram.Addr, response.MessageID)
			return
		}
		conn.AcknowledgeMessage(response.MessageID)
		return
	}

	conn := t.ensure(datagram.Addr)

	if id, ok := msg.SequenceID(); ok {
		t.responses = append(t.responses, pendingResponse{conn: conn, id: id})
	}

	accepted, ok := conn.FilterMessage(msg)
	if !ok {
		return
	}

	next := conn.TakeNextHeldMessages()

	handler(conn, accepted)
	for _, msg := range next {
		handler(conn, msg)
	}
}

// ResendUnacknowledged 对全部连接执行重发检查
func (t *ConnectionTable) ResendUnacknowledged(now time.Time) {
	for _, conn := range t.connections {
		conn.ResendUnacknowledged(now)
	}
}

// Disconnect 断开指定地址的连接
func (t *ConnectionTable) Disconnect(addr netip.AddrPort, reason string) {
	if conn, ok := t.connections[addr]; ok {
		conn.Disconnect(reason)
	}
}

// Prune 移除已断开的连接并返回它们，包括已被同地址新连接顶替的旧连接
func (t *ConnectionTable) Prune() []*Connection {
	removed := t.replaced
	t.replaced = nil
	for _, addr := range t.sortedAddrs() {
		conn := t.connections[addr]
		if conn.IsConnected() {
			continue
		}
		delete(t.connections, addr)
		removed = append(removed, conn)
	}
	return removed
}
