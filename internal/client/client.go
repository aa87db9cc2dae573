package client

import (
	"fmt"
	"iter"
	"log"
	"net/netip"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"shooter/internal/transport"
	"shooter/pkg/core"
	"shooter/pkg/protocol"
)

// Client 客户端状态：本地预测 + 服务器纠正 + 远端插值。
// 所有方法只在帧循环中调用。
type Client struct {
	table    *transport.ConnectionTable
	server   netip.AddrPort
	conn     *transport.Connection // 握手时建立，断开后不再重建
	registry *core.Registry

	start    time.Time
	gameTime time.Duration // 当前帧的游戏时间

	// 本地玩家
	local     *core.Actor
	localID   core.PublicID
	hasGrant  bool
	actions   core.Actions
	direction float32

	// 上次发送给服务器的输入
	sentActions   core.Actions
	sentDirection float32
	inputSent     bool

	// 本帧收到的位置更新，同一角色只保留最新一条
	updates map[core.PublicID]core.Position

	projectiles []core.Projectile

	sampling *rate.Limiter
}

// New 创建客户端，start 为游戏时间零点
func New(conn transport.PacketConn, server netip.AddrPort, start time.Time) *Client {
	return &Client{
		table:    transport.NewConnectionTable(conn),
		server:   server,
		registry: core.NewRegistry(),
		start:    start,
		updates:  make(map[core.PublicID]core.Position),
		sampling: rate.NewLimiter(rate.Every(core.PositionLogInterval), 1),
	}
}

// Connect 发送握手
func (c *Client) Connect() error {
	log.Printf("连接到服务器: %s", c.server)
	if err := c.table.Send(c.server, &protocol.Greeting{}); err != nil {
		return fmt.Errorf("发送握手失败: %w", err)
	}
	c.conn, _ = c.table.Get(c.server)
	return nil
}

// SetInput 设置本地玩家的动作与朝向，下一帧生效
func (c *Client) SetInput(actions core.Actions, direction float32) {
	c.actions = actions
	c.direction = core.NormalizeAngle(direction)
}

// Tick 推进一帧：接收 → 重发 → 位置更新 → 本地预测 → 发送输入 → 采样
func (c *Client) Tick(now time.Time) {
	c.gameTime = now.Sub(c.start)

	c.table.Receive(c.handleMessage)
	c.table.ResendUnacknowledged(now)

	c.applyPositionUpdates()
	c.predict()
	c.sendInput()

	if c.sampling.AllowN(now, 1) {
		for actor := range c.registry.All() {
			actor.SamplePosition(c.gameTime)
		}
	}

	c.projectiles = slices.DeleteFunc(c.projectiles, func(p core.Projectile) bool {
		return p.Expired(c.gameTime)
	})
}

// GameTime 当前帧的游戏时间
func (c *Client) GameTime() time.Duration {
	return c.gameTime
}

// Local 本地玩家控制的角色，尚未获得控制权时返回 false
func (c *Client) Local() (*core.Actor, bool) {
	return c.local, c.local != nil
}

// Actors 按句柄顺序遍历所有角色
func (c *Client) Actors() iter.Seq[*core.Actor] {
	return c.registry.All()
}

// Projectiles 存活的投射物
func (c *Client) Projectiles() []core.Projectile {
	return c.projectiles
}

// Status 与服务器的连接状态
func (c *Client) Status() (connected bool, reason string) {
	if c.conn == nil {
		return false, "未连接"
	}
	return c.conn.IsConnected(), c.conn.Reason()
}

// Ping 平均往返延迟
func (c *Client) Ping() time.Duration {
	if c.conn == nil {
		return 0
	}
	return c.conn.AveragePing()
}

func (c *Client) handleMessage(conn *transport.Connection, msg protocol.Message) {
	if conn != c.conn {
		log.Printf("忽略来自 %s 的 %s：不是当前服务器连接", conn.Addr(), msg.Kind())
		return
	}

	switch m := msg.(type) {
	case *protocol.ActorSpawn:
		actor, created := c.registry.Ensure(core.PublicID(m.PublicID), m.Position())
		if !created {
			return
		}
		log.Printf("角色 %d 生成于 (%.1f, %.1f)", m.PublicID, m.X, m.Y)
		if c.hasGrant && actor.PublicID == c.localID {
			c.takeControl(actor)
		}

	case *protocol.ActorGrant:
		c.localID = core.PublicID(m.PublicID)
		c.hasGrant = true
		if actor, ok := c.registry.ByPublicID(c.localID); ok {
			c.takeControl(actor)
		}

	case *protocol.PositionUpdate:
		c.updates[core.PublicID(m.PublicID)] = m.Position()

	case *protocol.ProjectileSpawn:
		c.projectiles = append(c.projectiles, m.Projectile(c.gameTime))

	default:
		log.Printf("忽略服务器消息 %s", msg.Kind())
	}
}

func (c *Client) takeControl(actor *core.Actor) {
	actor.IsLocal = true
	c.local = actor
	c.direction = actor.Position.Direction
	log.Printf("获得角色 %d 的控制权", actor.PublicID)
}

// applyPositionUpdates 应用本帧的权威位置。
// 远端角色总是从当前显示位置平滑过渡到新位置；
// 本地角色与一个往返之前的预测位置比较，偏差超过阈值才纠正。
func (c *Client) applyPositionUpdates() {
	if len(c.updates) == 0 {
		return
	}

	now := c.gameTime
	for id, authoritative := range c.updates {
		actor, ok := c.registry.ByPublicID(id)
		if !ok {
			log.Printf("收到未知角色 %d 的位置更新", id)
			continue
		}

		rendered := actor.Rendered(now)

		if !actor.IsLocal {
			actor.Interpolation.Next(authoritative, rendered, now)
			actor.Position = authoritative
			continue
		}

		predicted := actor.PositionAt(now-c.Ping(), now)
		if !core.ShouldCorrect(predicted, authoritative) {
			continue
		}

		// 把历史上的偏差平移到当前位置，朝向以本地输入为准。
		// 历史同步平移，之后的更新与纠正后的预测比较，同一偏差只纠正一次
		delta := core.NewPosition(authoritative.X-predicted.X, authoritative.Y-predicted.Y, 0)
		corrected := actor.Position
		corrected.X += delta.X
		corrected.Y += delta.Y

		actor.Log.Shift(delta)
		actor.Interpolation.Next(corrected, rendered, now)
		actor.Position = corrected
	}

	clear(c.updates)
}

func (c *Client) predict() {
	if c.local == nil {
		return
	}
	c.local.Actions = c.actions
	c.local.Position.Direction = c.direction
	core.ApplyActions(c.local, core.FixedDeltaTime)
}

// sendInput 动作变化时发送完整输入，只有朝向变化时发送朝向
func (c *Client) sendInput() {
	if c.local == nil || !c.conn.IsConnected() {
		return
	}

	var msg protocol.Message
	switch {
	case !c.inputSent || c.actions != c.sentActions:
		msg = protocol.NewClientInput(c.actions, c.direction)
	case c.direction != c.sentDirection:
		msg = protocol.NewClientInputDirection(c.direction)
	default:
		return
	}

	if err := c.conn.Send(msg); err != nil {
		log.Printf("发送输入失败: %v", err)
		return
	}

	c.sentActions = c.actions
	c.sentDirection = c.direction
	c.inputSent = true
}
