package protocol

import "fmt"

// Kind 消息类型标签（线上判别值，不可重排）
type Kind uint8

const (
	KindResponse Kind = iota
	KindGreeting
	KindClientInput
	KindClientInputDirection
	KindActorSpawn
	KindActorGrant
	KindPositionUpdate
	KindProjectileSpawn

	kindCount
)

var kindNames = [...]string{
	KindResponse:             "Response",
	KindGreeting:             "Greeting",
	KindClientInput:          "ClientInput",
	KindClientInputDirection: "ClientInputDirection",
	KindActorSpawn:           "ActorSpawn",
	KindActorGrant:           "ActorGrant",
	KindPositionUpdate:       "PositionUpdate",
	KindProjectileSpawn:      "ProjectileSpawn",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Message 线上消息。除 Response 外都带有发送时分配的 16 位序号。
type Message interface {
	Kind() Kind
	// SequenceID 返回消息序号，Response 返回 false
	SequenceID() (uint16, bool)
	// SetSequenceID 设置消息序号，Response 忽略
	SetSequenceID(id uint16)

	appendFields(b []byte) []byte
	consumeFields(b []byte) (int, error)
}

// Sequenced 可靠消息的序号字段，嵌入到各消息类型中
type Sequenced struct {
	ID uint16
}

func (s *Sequenced) SequenceID() (uint16, bool) { return s.ID, true }
func (s *Sequenced) SetSequenceID(id uint16)    { s.ID = id }

// Response 确认收到对方序号为 MessageID 的消息，本身不需要确认
type Response struct {
	MessageID uint16
}

func (*Response) Kind() Kind                 { return KindResponse }
func (*Response) SequenceID() (uint16, bool) { return 0, false }
func (*Response) SetSequenceID(uint16)       {}

// Greeting 客户端握手
type Greeting struct {
	Sequenced
}

func (*Greeting) Kind() Kind { return KindGreeting }

// ClientInput 客户端动作集合与朝向
type ClientInput struct {
	Sequenced
	Actions   uint8
	Direction float32
}

func (*ClientInput) Kind() Kind { return KindClientInput }

// ClientInputDirection 只有朝向变化时发送
type ClientInputDirection struct {
	Sequenced
	Direction float32
}

func (*ClientInputDirection) Kind() Kind { return KindClientInputDirection }

// ActorSpawn 服务器通知生成角色
type ActorSpawn struct {
	Sequenced
	PublicID  uint16
	X, Y      float32
	Direction float32
}

func (*ActorSpawn) Kind() Kind { return KindActorSpawn }

// ActorGrant 服务器把角色控制权交给接收方
type ActorGrant struct {
	Sequenced
	PublicID uint16
}

func (*ActorGrant) Kind() Kind { return KindActorGrant }

// PositionUpdate 服务器同步角色权威位置
type PositionUpdate struct {
	Sequenced
	PublicID  uint16
	X, Y      float32
	Direction float32
}

func (*PositionUpdate) Kind() Kind { return KindPositionUpdate }

// ProjectileSpawn 服务器通知生成投射物
type ProjectileSpawn struct {
	Sequenced
	X, Y               float32
	VelocityX          float32
	VelocityY          float32
	AccelerationFactor float32
	ShooterID          uint16
}

func (*ProjectileSpawn) Kind() Kind { return KindProjectileSpawn }

// newMessage 按类型创建空消息
func newMessage(kind Kind) (Message, error) {
	switch kind {
	case KindResponse:
		return &Response{}, nil
	case KindGreeting:
		return &Greeting{}, nil
	case KindClientInput:
		return &ClientInput{}, nil
	case KindClientInputDirection:
		return &ClientInputDirection{}, nil
	case KindActorSpawn:
		return &ActorSpawn{}, nil
	case KindActorGrant:
		return &ActorGrant{}, nil
	case KindPositionUpdate:
		return &PositionUpdate{}, nil
	case KindProjectileSpawn:
		return &ProjectileSpawn{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
}
