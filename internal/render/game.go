package render

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"shooter/internal/client"
	"shooter/pkg/core"
)

var hudFont = text.NewGoXFace(basicfont.Face7x13)

var (
	backgroundColor = color.RGBA{24, 28, 36, 255}
	localColor      = color.RGBA{80, 200, 120, 255}
	remoteColor     = color.RGBA{220, 90, 90, 255}
	facingColor     = color.RGBA{240, 240, 240, 255}
	projectileColor = color.RGBA{250, 220, 80, 255}
	hudColor        = color.RGBA{220, 230, 240, 255}
	errorColor      = color.RGBA{255, 120, 120, 255}
)

// Game ebiten 游戏循环：读取输入、推进客户端、绘制显示位置
type Game struct {
	ctx    context.Context
	client *client.Client
	scheme ControlScheme
}

// NewGame 创建游戏，ctx 取消时退出
func NewGame(ctx context.Context, c *client.Client, scheme ControlScheme) *Game {
	return &Game{
		ctx:    ctx,
		client: c,
		scheme: scheme,
	}
}

// Update 更新游戏状态
func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}

	now := time.Now()

	actions := readActions(g.scheme)
	if local, ok := g.client.Local(); ok {
		from := local.Rendered(g.client.GameTime())
		g.client.SetInput(actions, aimDirection(g.scheme, from, actions))
	}

	g.client.Tick(now)
	return nil
}

// Draw 绘制游戏画面
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	now := g.client.GameTime()

	// 投射物
	for _, p := range g.client.Projectiles() {
		x, y := p.PositionAt(now)
		vector.FillCircle(screen, x*PixelsPerUnit, y*PixelsPerUnit, 3, projectileColor, true)
	}

	// 角色
	for actor := range g.client.Actors() {
		drawActor(screen, actor, now)
	}

	g.drawHUD(screen)
}

func drawActor(screen *ebiten.Image, actor *core.Actor, now time.Duration) {
	pos := actor.Rendered(now)
	cx := pos.X * PixelsPerUnit
	cy := pos.Y * PixelsPerUnit
	radius := float32(core.ActorRadius * PixelsPerUnit)

	bodyColor := remoteColor
	if actor.IsLocal {
		bodyColor = localColor
	}
	vector.FillCircle(screen, cx, cy, radius, bodyColor, true)

	// 朝向
	sin, cos := math.Sincos(float64(pos.Direction))
	vector.StrokeLine(screen, cx, cy, cx+float32(cos)*radius*1.5, cy+float32(sin)*radius*1.5, 2, facingColor, true)
}

func (g *Game) drawHUD(screen *ebiten.Image) {
	connected, reason := g.client.Status()
	if !connected {
		drawText(screen, 8, 16, "disconnected: "+reason, errorColor)
		return
	}

	status := fmt.Sprintf("ping %dms", g.client.Ping().Milliseconds())
	if local, ok := g.client.Local(); ok {
		status += fmt.Sprintf("  player %d", local.PublicID)
	} else {
		status += "  waiting for server"
	}
	drawText(screen, 8, 16, status, hudColor)
	drawText(screen, 8, 32, g.scheme.hint(), hudColor)
}

func drawText(screen *ebiten.Image, x, y int, msg string, clr color.Color) {
	options := &text.DrawOptions{}
	options.GeoM.Translate(float64(x), float64(y))
	options.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, msg, hudFont, options)
}

// Layout 设置屏幕布局
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}
