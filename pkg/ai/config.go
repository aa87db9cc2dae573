package ai

import "time"

// Config 定义机器人的行为参数
type Config struct {
	// ThinkInterval 思考间隔，值越小反应越快
	ThinkInterval time.Duration

	// AttackRange 开火距离（世界单位）
	AttackRange float32

	// AimError 瞄准的最大随机偏差（弧度）
	AimError float64

	// MistakeRate 随机失误率 (0.0-1.0)
	MistakeRate float64
}

// 预设配置：普通难度
var ConfigNormal = Config{
	ThinkInterval: 500 * time.Millisecond,
	AttackRange:   8,
	AimError:      0.3,
	MistakeRate:   0.05,
}

// 预设配置：困难难度
var ConfigHard = Config{
	ThinkInterval: 150 * time.Millisecond,
	AttackRange:   12,
	AimError:      0.05,
	MistakeRate:   0,
}
