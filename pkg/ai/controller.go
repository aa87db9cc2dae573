package ai

import (
	"math/rand/v2"
	"time"

	"shooter/pkg/ai/bt"
	"shooter/pkg/core"
)

// Controller 机器人控制器：按思考间隔运行行为树，中间帧沿用上次的决定
type Controller struct {
	rnd    *rand.Rand
	config *Config

	lastThink time.Duration
	thought   bool

	cachedActions   core.Actions
	cachedDirection float32

	blackboard Blackboard
	tree       bt.Node[*Blackboard]
}

// NewController 创建控制器，使用默认配置（普通难度）
func NewController(seed uint64) *Controller {
	return NewControllerWithConfig(seed, &ConfigNormal)
}

// NewControllerWithConfig 创建控制器，使用指定配置
func NewControllerWithConfig(seed uint64, config *Config) *Controller {
	if config == nil {
		config = &ConfigNormal
	}

	rnd := rand.New(rand.NewPCG(seed, seed+1))

	c := &Controller{
		rnd:    rnd,
		config: config,
	}

	c.blackboard = Blackboard{
		RNG:    rnd,
		Config: config,
	}

	type node = bt.Node[*Blackboard]
	c.tree = &bt.Selector[*Blackboard]{Children: []node{
		&bt.Sequence[*Blackboard]{Children: []node{
			&bt.Condition[*Blackboard]{Check: condEnemyInRange},
			&bt.Action[*Blackboard]{Do: actAim},
			&bt.Action[*Blackboard]{Do: actAttack},
		}},
		&bt.Sequence[*Blackboard]{Children: []node{
			&bt.Condition[*Blackboard]{Check: condNearEdge},
			&bt.Action[*Blackboard]{Do: actReturnToCenter},
		}},
		&bt.Action[*Blackboard]{Do: actWander},
	}}

	return c
}

// Decide 返回本帧的动作与朝向
func (c *Controller) Decide(self core.Position, others []core.Position, now time.Duration) (core.Actions, float32) {
	if c.thought && now-c.lastThink < c.config.ThinkInterval {
		return c.cachedActions, c.cachedDirection
	}
	c.thought = true
	c.lastThink = now

	c.blackboard.ResetFrame(self, others, now)
	c.tree.Tick(&c.blackboard)

	actions := c.blackboard.NextActions
	direction := c.blackboard.NextDirection

	// 随机失误：停火或原地发呆
	if c.config.MistakeRate > 0 && c.rnd.Float64() < c.config.MistakeRate {
		switch c.rnd.IntN(2) {
		case 0:
			actions = actions.Without(core.ActionAttack)
		case 1:
			actions = 0
		}
	}

	c.cachedActions = actions
	c.cachedDirection = direction
	return actions, direction
}

// Config 当前配置
func (c *Controller) Config() *Config {
	return c.config
}

// SetConfig 设置新配置
func (c *Controller) SetConfig(config *Config) {
	if config == nil {
		return
	}
	c.config = config
	c.blackboard.Config = config
}
