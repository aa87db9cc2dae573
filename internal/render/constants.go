package render

import "shooter/pkg/core"

// 画面配置：世界单位换算为像素
const (
	PixelsPerUnit = 20

	ScreenWidth  = int(core.WorldWidth * PixelsPerUnit)
	ScreenHeight = int(core.WorldHeight * PixelsPerUnit)

	FPS = core.TPS
)
