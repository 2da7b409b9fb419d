package scene

import (
	"sync"

	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
)

// SceneObjectPart объект сцены, на который можно сесть
type SceneObjectPart struct {
	UUID    uuid.UUID
	LocalID uint32
	Name    string

	mu                   sync.RWMutex
	position             vec.Vec3Float
	rotation             vec.Quat
	sitTargetPosition    vec.Vec3Float // нулевой вектор: sit target не задан
	sitTargetOrientation vec.Quat

	sitting SittingRegistry
}

func newSceneObjectPart(id uuid.UUID, localID uint32, name string, pos vec.Vec3Float) *SceneObjectPart {
	return &SceneObjectPart{
		UUID:                 id,
		LocalID:              localID,
		Name:                 name,
		position:             pos,
		rotation:             vec.QuatIdentity,
		sitTargetOrientation: vec.QuatIdentity,
	}
}

// AbsolutePosition возвращает позицию объекта в сцене
func (p *SceneObjectPart) AbsolutePosition() vec.Vec3Float {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

// SetAbsolutePosition перемещает объект. Уже сидящие аватары не перемещаются.
func (p *SceneObjectPart) SetAbsolutePosition(pos vec.Vec3Float) {
	p.mu.Lock()
	p.position = pos
	p.mu.Unlock()
}

// Rotation возвращает ориентацию объекта
func (p *SceneObjectPart) Rotation() vec.Quat {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rotation
}

// SetRotation меняет ориентацию объекта
func (p *SceneObjectPart) SetRotation(rot vec.Quat) {
	p.mu.Lock()
	p.rotation = rot.Normalized()
	p.mu.Unlock()
}

// SetSitTarget задаёт выделенное место для посадки; нулевая позиция убирает sit target
func (p *SceneObjectPart) SetSitTarget(pos vec.Vec3Float, orientation vec.Quat) {
	p.mu.Lock()
	p.sitTargetPosition = pos
	p.sitTargetOrientation = orientation.Normalized()
	p.mu.Unlock()
}

// SitTargetPosition возвращает смещение sit target
func (p *SceneObjectPart) SitTargetPosition() vec.Vec3Float {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sitTargetPosition
}

// SitTargetOrientation возвращает ориентацию sit target
func (p *SceneObjectPart) SitTargetOrientation() vec.Quat {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sitTargetOrientation
}

// HasSitTarget сообщает, задан ли sit target
func (p *SceneObjectPart) HasSitTarget() bool {
	return !p.SitTargetPosition().IsZero()
}

// SitTargetAvatar возвращает аватара на sit target или uuid.Nil
func (p *SceneObjectPart) SitTargetAvatar() uuid.UUID {
	return p.sitting.TargetOccupant()
}

// GetSittingAvatars возвращает множество сидящих аватаров или nil
func (p *SceneObjectPart) GetSittingAvatars() map[uuid.UUID]struct{} {
	return p.sitting.Occupants()
}

// GetSittingAvatarsCount возвращает количество сидящих аватаров
func (p *SceneObjectPart) GetSittingAvatarsCount() int {
	return p.sitting.Count()
}

// Sitting возвращает реестр сидящих на объекте
func (p *SceneObjectPart) Sitting() *SittingRegistry {
	return &p.sitting
}
