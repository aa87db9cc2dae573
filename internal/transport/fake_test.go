package transport

import (
	"errors"
	"net/netip"
	"time"

	"shooter/pkg/protocol"
)

var (
	peerA = netip.MustParseAddrPort("127.0.0.1:4001")
	peerB = netip.MustParseAddrPort("127.0.0.1:4002")
	peerC = netip.MustParseAddrPort("127.0.0.1:4003")
)

type sentPacket struct {
	addr netip.AddrPort
	data []byte
}

// fakeConn 内存中的套接字
type fakeConn struct {
	inbox   []Datagram
	sent    []sentPacket
	failErr error
}

func (f *fakeConn) Poll() (Datagram, bool) {
	if len(f.inbox) == 0 {
		return Datagram{}, false
	}
	d := f.inbox[0]
	f.inbox = f.inbox[1:]
	return d, true
}

func (f *fakeConn) WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error) {
	if f.failErr != nil {
		return 0, f.failErr
	}
	f.sent = append(f.sent, sentPacket{addr: addr, data: append([]byte(nil), b...)})
	return len(b), nil
}

func (f *fakeConn) deliver(addr netip.AddrPort, msg protocol.Message) {
	f.inbox = append(f.inbox, Datagram{Addr: addr, Data: protocol.Encode(msg)})
}

func (f *fakeConn) decodeSent() []protocol.Message {
	out := make([]protocol.Message, 0, len(f.sent))
	for _, p := range f.sent {
		msg, err := protocol.Decode(p.data)
		if err != nil {
			panic(err)
		}
		out = append(out, msg)
	}
	return out
}

var errWrite = errors.New("write failed")

// fakeClock 可手动推进的时钟
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestConnection(w PacketWriter, clock *fakeClock) *Connection {
	c := NewConnection(peerA, w)
	c.now = clock.Now
	return c
}

func greeting(id uint16) *protocol.Greeting {
	g := &protocol.Greeting{}
	g.SetSequenceID(id)
	return g
}
