package protocol

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrCorrupt     = errors.New("消息损坏")
	ErrUnknownKind = errors.New("未知消息类型")
)

// 线上格式：varint 长度前缀 + 消息体；消息体为 varint 类型标签 + 各字段。
// 整数字段使用 varint，浮点字段使用小端 fixed32。
const (
	maxVarint16Size = 3
	fixed32Size     = 4
	maxKindSize     = 1

	// 最大的消息体是 ProjectileSpawn
	maxBodySize = maxKindSize + maxVarint16Size + 5*fixed32Size + maxVarint16Size

	// MaxMessageSize 单个数据报的最大长度
	MaxMessageSize = 1 + maxBodySize
)

// Encode 编码消息为数据报
func Encode(msg Message) []byte {
	body := make([]byte, 0, maxBodySize)
	body = protowire.AppendVarint(body, uint64(msg.Kind()))
	body = msg.appendFields(body)

	out := make([]byte, 0, protowire.SizeBytes(len(body)))
	return protowire.AppendBytes(out, body)
}

// Decode 解析数据报，任何截断或多余字节都返回 ErrCorrupt
func Decode(data []byte) (Message, error) {
	body, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, fmt.Errorf("%w: 长度前缀: %v", ErrCorrupt, protowire.ParseError(n))
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: 长度不符 (%d/%d bytes)", ErrCorrupt, n, len(data))
	}

	tag, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("%w: 类型标签: %v", ErrCorrupt, protowire.ParseError(n))
	}
	if tag > math.MaxUint8 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, tag)
	}

	msg, err := newMessage(Kind(tag))
	if err != nil {
		return nil, err
	}

	m, err := msg.consumeFields(body[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, msg.Kind(), err)
	}
	if n+m != len(body) {
		return nil, fmt.Errorf("%w: %s: 多余 %d 字节", ErrCorrupt, msg.Kind(), len(body)-n-m)
	}

	return msg, nil
}

// ========== 字段编解码 ==========

func appendU16(b []byte, v uint16) []byte {
	return protowire.AppendVarint(b, uint64(v))
}

func appendU8(b []byte, v uint8) []byte {
	return protowire.AppendVarint(b, uint64(v))
}

func appendF32(b []byte, v float32) []byte {
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

// fieldReader 顺序读取字段，遇到第一个错误后停止
type fieldReader struct {
	b   []byte
	n   int
	err error
}

func (r *fieldReader) varint(max uint64) uint64 {
	if r.err != nil {
		return 0
	}
	v, n := protowire.ConsumeVarint(r.b[r.n:])
	if n < 0 {
		r.err = protowire.ParseError(n)
		return 0
	}
	if v > max {
		r.err = fmt.Errorf("整数越界: %d > %d", v, max)
		return 0
	}
	r.n += n
	return v
}

func (r *fieldReader) u16() uint16 {
	return uint16(r.varint(math.MaxUint16))
}

func (r *fieldReader) u8() uint8 {
	return uint8(r.varint(math.MaxUint8))
}

func (r *fieldReader) f32() float32 {
	if r.err != nil {
		return 0
	}
	v, n := protowire.ConsumeFixed32(r.b[r.n:])
	if n < 0 {
		r.err = protowire.ParseError(n)
		return 0
	}
	r.n += n
	return math.Float32frombits(v)
}

func (r *fieldReader) done() (int, error) {
	return r.n, r.err
}

// ========== 各消息字段 ==========

func (m *Response) appendFields(b []byte) []byte {
	return appendU16(b, m.MessageID)
}

func (m *Response) consumeFields(b []byte) (int, error) {
	r := fieldReader{b: b}
	m.MessageID = r.u16()
	return r.done()
}

func (m *Greeting) appendFields(b []byte) []byte {
	return appendU16(b, m.ID)
}

func (m *Greeting) consumeFields(b []byte) (int, error) {
	r := fieldReader{b: b}
	m.ID = r.u16()
	return r.done()
}

func (m *ClientInput) appendFields(b []byte) []byte {
	b = appendU16(b, m.ID)
	b = appendU8(b, m.Actions)
	return appendF32(b, m.Direction)
}

func (m *ClientInput) consumeFields(b []byte) (int, error) {
	r := fieldReader{b: b}
	m.ID = r.u16()
	m.Actions = r.u8()
	m.Direction = r.f32()
	return r.done()
}

func (m *ClientInputDirection) appendFields(b []byte) []byte {
	b = appendU16(b, m.ID)
	return appendF32(b, m.Direction)
}

func (m *ClientInputDirection) consumeFields(b []byte) (int, error) {
	r := fieldReader{b: b}
	m.ID = r.u16()
	m.Direction = r.f32()
	return r.done()
}

func (m *ActorSpawn) appendFields(b []byte) []byte {
	b = appendU16(b, m.ID)
	b = appendU16(b, m.PublicID)
	b = appendF32(b, m.X)
	b = appendF32(b, m.Y)
	return appendF32(b, m.Direction)
}

func (m *ActorSpawn) consumeFields(b []byte) (int, error) {
	r := fieldReader{b: b}
	m.ID = r.u16()
	m.PublicID = r.u16()
	m.X = r.f32()
	m.Y = r.f32()
	m.Direction = r.f32()
	return r.done()
}

func (m *ActorGrant) appendFields(b []byte) []byte {
	b = appendU16(b, m.ID)
	return appendU16(b, m.PublicID)
}

func (m *ActorGrant) consumeFields(b []byte) (int, error) {
	r := fieldReader{b: b}
	m.ID = r.u16()
	m.PublicID = r.u16()
	return r.done()
}

func (m *PositionUpdate) appendFields(b []byte) []byte {
	b = appendU16(b, m.ID)
	b = appendU16(b, m.PublicID)
	b = appendF32(b, m.X)
	b = appendF32(b, m.Y)
	return appendF32(b, m.Direction)
}

func (m *PositionUpdate) consumeFields(b []byte) (int, error) {
	r := fieldReader{b: b}
	m.ID = r.u16()
	m.PublicID = r.u16()
	m.X = r.f32()
	m.Y = r.f32()
	m.Direction = r.f32()
	return r.done()
}

func (m *ProjectileSpawn) appendFields(b []byte) []byte {
	b = appendU16(b, m.ID)
	b = appendF32(b, m.X)
	b = appendF32(b, m.Y)
	b = appendF32(b, m.VelocityX)
	b = appendF32(b, m.VelocityY)
	b = appendF32(b, m.AccelerationFactor)
	return appendU16(b, m.ShooterID)
}

func (m *ProjectileSpawn) consumeFields(b []byte) (int, error) {
	r := fieldReader{b: b}
	m.ID = r.u16()
	m.X = r.f32()
	m.Y = r.f32()
	m.VelocityX = r.f32()
	m.VelocityY = r.f32()
	m.AccelerationFactor = r.f32()
	m.ShooterID = r.u16()
	return r.done()
}
