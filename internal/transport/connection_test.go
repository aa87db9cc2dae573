package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"shooter/pkg/protocol"
)

func deliverInOrder(c *Connection, ids ...uint16) []uint16 {
	var dispatched []uint16
	for _, id := range ids {
		msg, ok := c.FilterMessage(greeting(id))
		if !ok {
			continue
		}
		got, _ := msg.SequenceID()
		dispatched = append(dispatched, got)
		for _, held := range c.TakeNextHeldMessages() {
			got, _ := held.SequenceID()
			dispatched = append(dispatched, got)
		}
	}
	return dispatched
}

func equalIDs(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterMessageReordersHeldMessages(t *testing.T) {
	c := newTestConnection(&fakeConn{}, newFakeClock())

	got := deliverInOrder(c, 0, 2, 1)
	if want := []uint16{0, 1, 2}; !equalIDs(got, want) {
		t.Fatalf("dispatch order got=%v want=%v", got, want)
	}
	if c.Held() != 0 {
		t.Fatalf("held buffer not drained: %d", c.Held())
	}
}

func TestFilterMessageLongGap(t *testing.T) {
	c := newTestConnection(&fakeConn{}, newFakeClock())

	got := deliverInOrder(c, 3, 1, 4, 2, 0)
	if want := []uint16{0, 1, 2, 3, 4}; !equalIDs(got, want) {
		t.Fatalf("dispatch order got=%v want=%v", got, want)
	}
}

func TestFilterMessageDropsDuplicates(t *testing.T) {
	c := newTestConnection(&fakeConn{}, newFakeClock())

	got := deliverInOrder(c, 0, 0, 1, 1, 0)
	if want := []uint16{0, 1}; !equalIDs(got, want) {
		t.Fatalf("dispatch got=%v want=%v", got, want)
	}

	// 重复的超前消息也只交付一次
	got = deliverInOrder(c, 3, 3, 2)
	if want := []uint16{2, 3}; !equalIDs(got, want) {
		t.Fatalf("held duplicates got=%v want=%v", got, want)
	}
}

func TestFilterMessagePassesResponseThrough(t *testing.T) {
	c := newTestConnection(&fakeConn{}, newFakeClock())
	c.nextIncomingID = 5

	msg, ok := c.FilterMessage(&protocol.Response{MessageID: 1})
	if !ok || msg == nil {
		t.Fatalf("response should bypass ordering")
	}
	if c.nextIncomingID != 5 {
		t.Fatalf("response advanced incoming counter")
	}
}

func TestFilterMessageWrapAround(t *testing.T) {
	c := newTestConnection(&fakeConn{}, newFakeClock())
	c.nextIncomingID = 65534

	got := deliverInOrder(c, 0, 65535, 65534, 1)
	if want := []uint16{65534, 65535, 0, 1}; !equalIDs(got, want) {
		t.Fatalf("dispatch across wrap got=%v want=%v", got, want)
	}

	// 回绕后旧序号被识别为落后而不是超前
	if _, ok := c.FilterMessage(greeting(65535)); ok {
		t.Fatalf("old id accepted after wrap")
	}
	if c.Held() != 0 {
		t.Fatalf("old id was held as if ahead: held=%d", c.Held())
	}
}

func TestSequenceAhead(t *testing.T) {
	cases := []struct {
		a, b uint16
		want bool
	}{
		{1, 0, true},
		{0, 1, false},
		{0, 65535, true},
		{65535, 0, false},
		{100, 65500, true},
		{5, 5, false},
	}
	for _, c := range cases {
		if got := sequenceAhead(c.a, c.b); got != c.want {
			t.Fatalf("sequenceAhead(%d, %d)=%v want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSendAssignsIDsAndTracks(t *testing.T) {
	w := &fakeConn{}
	c := newTestConnection(w, newFakeClock())

	for i := range 3 {
		msg := &protocol.Greeting{}
		if err := c.Send(msg); err != nil {
			t.Fatalf("send: %v", err)
		}
		if msg.ID != uint16(i) {
			t.Fatalf("message %d got id %d", i, msg.ID)
		}
	}
	if c.Unacknowledged() != 3 || len(w.sent) != 3 {
		t.Fatalf("tracked=%d sent=%d", c.Unacknowledged(), len(w.sent))
	}

	if err := c.Send(&protocol.Response{MessageID: 9}); err != nil {
		t.Fatalf("send response: %v", err)
	}
	if c.Unacknowledged() != 3 {
		t.Fatalf("response must not be tracked")
	}
	if c.nextOutgoingID != 3 {
		t.Fatalf("response consumed an id")
	}
}

func TestSendOutgoingIDWraps(t *testing.T) {
	w := &fakeConn{}
	c := newTestConnection(w, newFakeClock())
	c.nextOutgoingID = 65535

	first, second := &protocol.Greeting{}, &protocol.Greeting{}
	_ = c.Send(first)
	_ = c.Send(second)
	if first.ID != 65535 || second.ID != 0 {
		t.Fatalf("ids %d, %d", first.ID, second.ID)
	}
}

func TestSendFailureDisconnects(t *testing.T) {
	w := &fakeConn{failErr: errWrite}
	c := newTestConnection(w, newFakeClock())

	if err := c.Send(&protocol.Greeting{}); !errors.Is(err, errWrite) {
		t.Fatalf("want write error, got %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("connection should be disconnected")
	}
	if c.Reason() != errWrite.Error() {
		t.Fatalf("reason=%q", c.Reason())
	}
	if c.Unacknowledged() != 0 {
		t.Fatalf("failed send was tracked")
	}
}

func TestSendAfterDisconnectDoesNothing(t *testing.T) {
	w := &fakeConn{}
	c := newTestConnection(w, newFakeClock())
	c.Disconnect("bye")

	msg := &protocol.Greeting{}
	msg.ID = 77
	if err := c.Send(msg); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("want ErrDisconnected, got %v", err)
	}
	if len(w.sent) != 0 {
		t.Fatalf("disconnected send wrote %d packets", len(w.sent))
	}
	if c.Unacknowledged() != 0 || c.nextOutgoingID != 0 || msg.ID != 77 {
		t.Fatalf("disconnected send assigned or tracked an id")
	}
}

func TestDisconnectClearsStateAndIsTerminal(t *testing.T) {
	w := &fakeConn{}
	c := newTestConnection(w, newFakeClock())
	_ = c.Send(&protocol.Greeting{})
	c.FilterMessage(greeting(3))

	c.Disconnect("first")
	c.Disconnect("second")

	if c.Status() != StatusDisconnected || c.Reason() != "first" {
		t.Fatalf("status=%s reason=%q", c.Status(), c.Reason())
	}
	if c.Unacknowledged() != 0 || c.Held() != 0 {
		t.Fatalf("state not cleared: unacked=%d held=%d", c.Unacknowledged(), c.Held())
	}
}

func TestResendAfterInterval(t *testing.T) {
	w := &fakeConn{}
	clock := newFakeClock()
	c := newTestConnection(w, clock)
	_ = c.Send(&protocol.Greeting{})

	clock.Advance(ResendInterval)
	c.ResendUnacknowledged(clock.Now())
	if len(w.sent) != 1 {
		t.Fatalf("resent before interval elapsed")
	}

	clock.Advance(time.Millisecond)
	c.ResendUnacknowledged(clock.Now())
	if len(w.sent) != 2 {
		t.Fatalf("not resent after interval: sent=%d", len(w.sent))
	}
	if !bytes.Equal(w.sent[0].data, w.sent[1].data) {
		t.Fatalf("resend is not verbatim")
	}

	// 刚重发过，下一次检查不再发送
	c.ResendUnacknowledged(clock.Now())
	if len(w.sent) != 2 {
		t.Fatalf("resent twice within one interval")
	}
}

func TestResendFailureDisconnects(t *testing.T) {
	w := &fakeConn{}
	clock := newFakeClock()
	c := newTestConnection(w, clock)
	_ = c.Send(&protocol.Greeting{})

	w.failErr = errWrite
	clock.Advance(time.Second)
	c.ResendUnacknowledged(clock.Now())
	if c.IsConnected() {
		t.Fatalf("resend failure should disconnect")
	}
}

func TestAcknowledgeUpdatesPing(t *testing.T) {
	w := &fakeConn{}
	clock := newFakeClock()
	c := newTestConnection(w, clock)

	_ = c.Send(&protocol.Greeting{}) // id 0
	clock.Advance(100 * time.Millisecond)
	c.AcknowledgeMessage(0)
	if got := c.AveragePing(); got != 100*time.Millisecond {
		t.Fatalf("first sample ping=%v", got)
	}

	_ = c.Send(&protocol.Greeting{}) // id 1
	clock.Advance(200 * time.Millisecond)
	c.AcknowledgeMessage(1)
	if got := c.AveragePing(); got != 150*time.Millisecond {
		t.Fatalf("second sample ping=%v want 150ms", got)
	}
	if c.Unacknowledged() != 0 {
		t.Fatalf("acknowledged messages still tracked")
	}
}

func TestAcknowledgeResentMessageKeepsPing(t *testing.T) {
	w := &fakeConn{}
	clock := newFakeClock()
	c := newTestConnection(w, clock)

	_ = c.Send(&protocol.Greeting{}) // id 0
	clock.Advance(50 * time.Millisecond)
	c.AcknowledgeMessage(0)
	before := c.AveragePing()

	_ = c.Send(&protocol.Greeting{}) // id 1
	clock.Advance(ResendInterval + time.Millisecond)
	c.ResendUnacknowledged(clock.Now())
	clock.Advance(30 * time.Millisecond)
	c.AcknowledgeMessage(1)

	if got := c.AveragePing(); got != before {
		t.Fatalf("resent ack changed ping: %v -> %v", before, got)
	}
	if c.Unacknowledged() != 0 {
		t.Fatalf("resent message not removed on ack")
	}
}

func TestAveragePingWeightCapped(t *testing.T) {
	w := &fakeConn{}
	clock := newFakeClock()
	c := newTestConnection(w, clock)

	for range 20 {
		msg := &protocol.Greeting{}
		_ = c.Send(msg)
		clock.Advance(100 * time.Millisecond)
		c.AcknowledgeMessage(msg.ID)
	}
	if c.averagePingRange != averagePingRangeMax {
		t.Fatalf("weight=%d want cap %d", c.averagePingRange, averagePingRangeMax)
	}

	// 权重封顶后新样本按 1/11 并入
	msg := &protocol.Greeting{}
	_ = c.Send(msg)
	clock.Advance(1200 * time.Millisecond)
	c.AcknowledgeMessage(msg.ID)
	if got := c.AveragePing(); got != 200*time.Millisecond {
		t.Fatalf("capped average=%v want 200ms", got)
	}
}

func TestAcknowledgeUnknownIsHarmless(t *testing.T) {
	w := &fakeConn{}
	c := newTestConnection(w, newFakeClock())
	_ = c.Send(&protocol.Greeting{})

	c.AcknowledgeMessage(42)
	if c.Unacknowledged() != 1 || !c.IsConnected() || c.AveragePing() != 0 {
		t.Fatalf("unknown ack changed state")
	}
}

func TestHeldOverflowDisconnects(t *testing.T) {
	c := newTestConnection(&fakeConn{}, newFakeClock())
	for id := uint16(1); id <= MaxHeld; id++ {
		c.FilterMessage(greeting(id))
	}
	if !c.IsConnected() {
		t.Fatalf("disconnected before exceeding bound")
	}
	c.FilterMessage(greeting(MaxHeld + 1))
	if c.IsConnected() {
		t.Fatalf("held overflow should disconnect")
	}
}

func TestBacklogOverflowDisconnects(t *testing.T) {
	w := &fakeConn{}
	c := newTestConnection(w, newFakeClock())
	for range MaxUnacknowledged {
		if err := c.Send(&protocol.Greeting{}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if err := c.Send(&protocol.Greeting{}); !errors.Is(err, ErrBacklogFull) {
		t.Fatalf("want ErrBacklogFull, got %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("backlog overflow should disconnect")
	}
}
