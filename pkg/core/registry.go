package core

import (
	"errors"
	"iter"
	"maps"
	"slices"
)

var ErrPublicIDsExhausted = errors.New("公开 ID 已耗尽")

// Registry 实体注册表：按句柄存放角色，并维护公开 ID 到句柄的映射
type Registry struct {
	actors     map[Handle]*Actor
	byPublicID map[PublicID]Handle
	nextHandle Handle
	nextPublic PublicID
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		actors:     make(map[Handle]*Actor),
		byPublicID: make(map[PublicID]Handle),
		nextHandle: 1,
	}
}

// Spawn 分配新的公开 ID 并创建角色（服务器侧）
func (r *Registry) Spawn(position Position) (*Actor, error) {
	if len(r.byPublicID) > int(^PublicID(0)) {
		return nil, ErrPublicIDsExhausted
	}

	id := r.nextPublic
	for {
		if _, used := r.byPublicID[id]; !used {
			break
		}
		id++
	}
	r.nextPublic = id + 1

	return r.insert(id, position), nil
}

// Ensure 返回公开 ID 对应的角色，不存在时创建（客户端侧）
func (r *Registry) Ensure(publicID PublicID, position Position) (actor *Actor, created bool) {
	if actor, ok := r.ByPublicID(publicID); ok {
		return actor, false
	}
	return r.insert(publicID, position), true
}

func (r *Registry) insert(publicID PublicID, position Position) *Actor {
	handle := r.nextHandle
	r.nextHandle++

	actor := NewActor(handle, publicID, position)
	r.actors[handle] = actor
	r.byPublicID[publicID] = handle
	return actor
}

// Get 按句柄查找
func (r *Registry) Get(handle Handle) (*Actor, bool) {
	actor, ok := r.actors[handle]
	return actor, ok
}

// ByPublicID 按公开 ID 查找
func (r *Registry) ByPublicID(publicID PublicID) (*Actor, bool) {
	handle, ok := r.byPublicID[publicID]
	if !ok {
		return nil, false
	}
	return r.Get(handle)
}

// Remove 删除角色，返回是否存在
func (r *Registry) Remove(handle Handle) bool {
	actor, ok := r.actors[handle]
	if !ok {
		return false
	}
	delete(r.actors, handle)
	delete(r.byPublicID, actor.PublicID)
	return true
}

// Len 角色数量
func (r *Registry) Len() int {
	return len(r.actors)
}

// All 按句柄顺序遍历全部角色
func (r *Registry) All() iter.Seq[*Actor] {
	return func(yield func(*Actor) bool) {
		for _, handle := range slices.Sorted(maps.Keys(r.actors)) {
			actor, ok := r.actors[handle]
			if !ok {
				continue
			}
			if !yield(actor) {
				return
			}
		}
	}
}
