package bt

// Status 节点执行状态
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	}
	return "unknown"
}

// Node 行为树节点，B 为黑板类型
type Node[B any] interface {
	Tick(bb B) Status
}

// Selector 选择节点：遇到非 Failure 停止，全 Failure 才 Failure
type Selector[B any] struct {
	Children []Node[B]
}

func (s *Selector[B]) Tick(bb B) Status {
	for _, child := range s.Children {
		if status := child.Tick(bb); status != StatusFailure {
			return status
		}
	}
	return StatusFailure
}

// Sequence 顺序节点：遇到非 Success 停止，全 Success 才 Success
type Sequence[B any] struct {
	Children []Node[B]
}

func (s *Sequence[B]) Tick(bb B) Status {
	for _, child := range s.Children {
		if status := child.Tick(bb); status != StatusSuccess {
			return status
		}
	}
	return StatusSuccess
}

// Condition 条件节点，Check 为空视为失败
type Condition[B any] struct {
	Check func(bb B) bool
}

func (c *Condition[B]) Tick(bb B) Status {
	if c.Check != nil && c.Check(bb) {
		return StatusSuccess
	}
	return StatusFailure
}

// Action 动作节点，Do 为空视为失败
type Action[B any] struct {
	Do func(bb B) Status
}

func (a *Action[B]) Tick(bb B) Status {
	if a.Do == nil {
		return StatusFailure
	}
	return a.Do(bb)
}
