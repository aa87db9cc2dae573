package client

import (
	"math"
	"net/netip"
	"testing"
	"time"

	"shooter/internal/transport"
	"shooter/pkg/core"
	"shooter/pkg/protocol"
)

var (
	serverAddr = netip.MustParseAddrPort("127.0.0.1:7777")
	strayAddr  = netip.MustParseAddrPort("127.0.0.1:9999")
)

// fakeServer 内存中的套接字，从服务器的角度构造消息
type fakeServer struct {
	inbox  []transport.Datagram
	sent   []protocol.Message
	nextID uint16
}

func (f *fakeServer) Poll() (transport.Datagram, bool) {
	if len(f.inbox) == 0 {
		return transport.Datagram{}, false
	}
	d := f.inbox[0]
	f.inbox = f.inbox[1:]
	return d, true
}

func (f *fakeServer) WriteToUDPAddrPort(b []byte, _ netip.AddrPort) (int, error) {
	msg, err := protocol.Decode(b)
	if err != nil {
		return 0, err
	}
	f.sent = append(f.sent, msg)
	return len(b), nil
}

// push 按服务器序号依次发送
func (f *fakeServer) push(msg protocol.Message) {
	f.pushFrom(serverAddr, msg)
}

func (f *fakeServer) pushFrom(addr netip.AddrPort, msg protocol.Message) {
	msg.SetSequenceID(f.nextID)
	f.nextID++
	f.inbox = append(f.inbox, transport.Datagram{Addr: addr, Data: protocol.Encode(msg)})
}

// ack 确认客户端的消息，不占用服务器序号
func (f *fakeServer) ack(id uint16) {
	f.inbox = append(f.inbox, transport.Datagram{Addr: serverAddr, Data: protocol.Encode(&protocol.Response{MessageID: id})})
}

// inputs 取出客户端发出的非确认消息
func (f *fakeServer) inputs() []protocol.Message {
	var out []protocol.Message
	for _, m := range f.sent {
		if m.Kind() != protocol.KindResponse {
			out = append(out, m)
		}
	}
	f.sent = nil
	return out
}

const frame = time.Second / core.TPS

type harness struct {
	t      *testing.T
	server *fakeServer
	client *Client
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs := &fakeServer{}
	start := time.Unix(1000, 0)
	c := New(fs, serverAddr, start)
	h := &harness{t: t, server: fs, client: c, now: start}

	// 连接的往返计时跟随测试时钟
	c.table.SetClock(func() time.Time { return h.now })

	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if msgs := fs.inputs(); len(msgs) != 1 || msgs[0].Kind() != protocol.KindGreeting {
		t.Fatalf("connect sent %v", msgs)
	}
	return h
}

// withPing 确认握手，使平均延迟为 ping
func (h *harness) withPing(ping time.Duration) {
	h.t.Helper()
	h.server.ack(0)
	h.advance(ping)
	if got := h.client.Ping(); got != ping {
		h.t.Fatalf("ping=%s, want %s", got, ping)
	}
}

func (h *harness) tick() {
	h.now = h.now.Add(frame)
	h.client.Tick(h.now)
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
	h.client.Tick(h.now)
}

func spawn(id uint16, x, y float32) *protocol.ActorSpawn {
	return &protocol.ActorSpawn{PublicID: id, X: x, Y: y}
}

func update(id uint16, x, y float32) *protocol.PositionUpdate {
	return &protocol.PositionUpdate{PublicID: id, X: x, Y: y}
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}

func TestSpawnAndGrant(t *testing.T) {
	h := newHarness(t)

	h.server.push(spawn(3, 10, 10))
	h.server.push(spawn(4, 20, 20))
	h.server.push(&protocol.ActorGrant{PublicID: 4})
	h.tick()

	local, ok := h.client.Local()
	if !ok || local.PublicID != 4 || !local.IsLocal {
		t.Fatalf("local actor not granted: %v", local)
	}

	count := 0
	for actor := range h.client.Actors() {
		count++
		if actor.PublicID == 3 && actor.IsLocal {
			t.Fatalf("remote actor marked local")
		}
	}
	if count != 2 {
		t.Fatalf("actors=%d", count)
	}
}

func TestGrantBeforeSpawn(t *testing.T) {
	h := newHarness(t)

	h.server.push(&protocol.ActorGrant{PublicID: 7})
	h.server.push(spawn(7, 5, 5))
	h.tick()

	local, ok := h.client.Local()
	if !ok || local.PublicID != 7 {
		t.Fatalf("grant not applied after spawn")
	}
}

func TestDuplicateSpawnKeepsActor(t *testing.T) {
	h := newHarness(t)

	h.server.push(spawn(1, 5, 5))
	h.tick()
	first, _ := h.client.registry.ByPublicID(1)

	h.server.push(spawn(1, 8, 8))
	h.tick()
	second, _ := h.client.registry.ByPublicID(1)

	if first != second || second.Position.X != 5 {
		t.Fatalf("duplicate spawn replaced the actor")
	}
}

func TestRemoteUpdateBlends(t *testing.T) {
	h := newHarness(t)

	h.server.push(spawn(1, 10, 10))
	h.tick()

	h.server.push(update(1, 11, 10))
	h.tick()
	now := h.client.GameTime()

	actor, _ := h.client.registry.ByPublicID(1)
	if actor.Position.X != 11 {
		t.Fatalf("logical position not updated: %v", actor.Position)
	}
	if r := actor.Rendered(now); !near(r.X, 10) {
		t.Fatalf("rendered jumped to %v", r)
	}
	if r := actor.Rendered(now + core.InterpolationDuration/2); !near(r.X, 10.5) {
		t.Fatalf("halfway rendered %v", r)
	}
	if r := actor.Rendered(now + core.InterpolationDuration); !near(r.X, 11) {
		t.Fatalf("blend did not finish: %v", r)
	}
}

func TestLatestUpdatePerTickWins(t *testing.T) {
	h := newHarness(t)

	h.server.push(spawn(1, 10, 10))
	h.tick()

	h.server.push(update(1, 11, 10))
	h.server.push(update(1, 12, 10))
	h.tick()

	actor, _ := h.client.registry.ByPublicID(1)
	if actor.Position.X != 12 {
		t.Fatalf("x=%v, want latest update", actor.Position.X)
	}
}

func TestLocalSmallOffsetIgnored(t *testing.T) {
	h := newHarness(t)

	h.server.push(spawn(1, 10, 10))
	h.server.push(&protocol.ActorGrant{PublicID: 1})
	h.tick()

	h.server.push(update(1, 10.1, 10))
	h.tick()

	local, _ := h.client.Local()
	if local.Position.X != 10 {
		t.Fatalf("small offset corrected: %v", local.Position)
	}
	if local.Interpolation.Active(h.client.GameTime()) {
		t.Fatalf("blend started below threshold")
	}
}

func TestLocalLargeOffsetCorrected(t *testing.T) {
	h := newHarness(t)

	h.server.push(spawn(1, 10, 10))
	h.server.push(&protocol.ActorGrant{PublicID: 1})
	h.tick()

	h.server.push(update(1, 12, 10))
	h.tick()
	now := h.client.GameTime()

	local, _ := h.client.Local()
	if !near(local.Position.X, 12) {
		t.Fatalf("large offset not corrected: %v", local.Position)
	}
	if r := local.Rendered(now); !near(r.X, 10) {
		t.Fatalf("correction snapped the rendered position: %v", r)
	}
	if r := local.Rendered(now + core.InterpolationDuration); !near(r.X, 12) {
		t.Fatalf("correction did not converge: %v", r)
	}
}

func TestLocalConsistentUpdateKeepsPosition(t *testing.T) {
	h := newHarness(t)

	h.server.push(spawn(1, 10, 10))
	h.server.push(&protocol.ActorGrant{PublicID: 1})
	h.tick()

	// 向右走一秒
	h.client.SetInput(core.ActionMoveRight, 0)
	for range core.TPS {
		h.tick()
	}
	h.client.SetInput(0, 0)
	h.tick()

	local, _ := h.client.Local()
	before := local.Position

	// 服务器报告的位置与当前预测一致（零延迟），不需要纠正
	h.server.push(update(1, before.X, before.Y))
	h.tick()
	if local.Position != before {
		t.Fatalf("consistent update moved local actor: %v -> %v", before, local.Position)
	}
}

func TestLaggedCorrectionAppliedOnce(t *testing.T) {
	h := newHarness(t)
	h.withPing(100 * time.Millisecond)

	h.server.push(spawn(1, 10, 10))
	h.server.push(&protocol.ActorGrant{PublicID: 1})
	for range 20 {
		h.tick()
	}

	// 服务器持续报告同一个偏差，跨越一个往返和整个混合时长
	local, _ := h.client.Local()
	for range 12 {
		h.server.push(update(1, 12, 10))
		h.advance(50 * time.Millisecond)
	}

	if !near(local.Position.X, 12) {
		t.Fatalf("x=%v, offset should be applied exactly once", local.Position.X)
	}
	if r := local.Rendered(h.client.GameTime() + core.InterpolationDuration); !near(r.X, 12) {
		t.Fatalf("rendered settles at %v", r)
	}
}

func TestLaggedUpdateMatchesHistory(t *testing.T) {
	h := newHarness(t)
	h.withPing(100 * time.Millisecond)

	h.server.push(spawn(1, 10, 10))
	h.server.push(&protocol.ActorGrant{PublicID: 1})
	h.tick()
	local, _ := h.client.Local()

	h.client.SetInput(core.ActionMoveRight, 0)
	var positions []core.Position
	for range 30 {
		h.tick()
		positions = append(positions, local.Position)
	}

	// 服务器报告的是客户端一个往返之前的位置，与当前位置相差超过阈值，但与历史一致
	reported := positions[len(positions)-6]
	before := local.Position
	if !core.ShouldCorrect(before, reported) {
		t.Fatalf("setup: lag offset %v -> %v below threshold", reported, before)
	}

	h.server.push(update(1, reported.X, reported.Y))
	h.tick()

	want := before.X + float32(core.ActorSpeed*core.FixedDeltaTime)
	if !near(local.Position.X, want) {
		t.Fatalf("x=%v want %v: lagged update treated as divergence", local.Position.X, want)
	}
	if local.Interpolation.Active(h.client.GameTime()) {
		t.Fatalf("blend started for a consistent lagged update")
	}
}

func TestInputMessages(t *testing.T) {
	h := newHarness(t)

	h.server.push(spawn(1, 10, 10))
	h.server.push(&protocol.ActorGrant{PublicID: 1})
	h.tick()

	msgs := h.server.inputs()
	if len(msgs) != 1 || msgs[0].Kind() != protocol.KindClientInput {
		t.Fatalf("initial input not sent: %v", msgs)
	}

	h.client.SetInput(core.ActionMoveRight, 0)
	h.tick()
	msgs = h.server.inputs()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages", len(msgs))
	}
	input, ok := msgs[0].(*protocol.ClientInput)
	if !ok || input.ActionSet() != core.ActionMoveRight {
		t.Fatalf("unexpected %#v", msgs[0])
	}

	h.tick()
	if msgs := h.server.inputs(); len(msgs) != 0 {
		t.Fatalf("unchanged input resent: %v", msgs)
	}

	h.client.SetInput(core.ActionMoveRight, 1)
	h.tick()
	msgs = h.server.inputs()
	if len(msgs) != 1 || msgs[0].Kind() != protocol.KindClientInputDirection {
		t.Fatalf("direction change sent %v", msgs)
	}

	h.client.SetInput(core.ActionAttack, 1)
	h.tick()
	msgs = h.server.inputs()
	if len(msgs) != 1 || msgs[0].Kind() != protocol.KindClientInput {
		t.Fatalf("action change sent %v", msgs)
	}
}

func TestLocalPrediction(t *testing.T) {
	h := newHarness(t)

	h.server.push(spawn(1, 10, 10))
	h.server.push(&protocol.ActorGrant{PublicID: 1})
	h.tick()

	h.client.SetInput(core.ActionMoveDown, 0)
	h.tick()

	local, _ := h.client.Local()
	want := float32(10 + core.ActorSpeed*core.FixedDeltaTime)
	if !near(local.Position.Y, want) {
		t.Fatalf("y=%v want %v", local.Position.Y, want)
	}
}

func TestProjectilesExpire(t *testing.T) {
	h := newHarness(t)

	h.server.push(&protocol.ProjectileSpawn{X: 1, Y: 1, VelocityX: 5, AccelerationFactor: 1, ShooterID: 2})
	h.tick()

	if len(h.client.Projectiles()) != 1 {
		t.Fatalf("projectile not spawned")
	}

	h.advance(core.ProjectileLifetime + frame)
	if len(h.client.Projectiles()) != 0 {
		t.Fatalf("projectile did not expire")
	}
}

func TestIgnoresOtherPeers(t *testing.T) {
	h := newHarness(t)

	h.server.pushFrom(strayAddr, spawn(9, 1, 1))
	h.tick()

	if _, ok := h.client.registry.ByPublicID(9); ok {
		t.Fatalf("accepted spawn from a non-server peer")
	}
}

func TestUnknownActorUpdateIgnored(t *testing.T) {
	h := newHarness(t)

	h.server.push(update(42, 1, 1))
	h.tick()

	if h.client.registry.Len() != 0 {
		t.Fatalf("update created an actor")
	}
}

func TestStatus(t *testing.T) {
	c := New(&fakeServer{}, serverAddr, time.Unix(0, 0))
	if ok, _ := c.Status(); ok {
		t.Fatalf("connected before greeting")
	}

	h := newHarness(t)
	if ok, reason := h.client.Status(); !ok || reason != "" {
		t.Fatalf("status=%v reason=%q", ok, reason)
	}

	h.client.conn.Disconnect("server gone")
	if ok, reason := h.client.Status(); ok || reason != "server gone" {
		t.Fatalf("status=%v reason=%q", ok, reason)
	}
}
