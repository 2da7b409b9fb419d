package scene

import (
	"sync"

	"github.com/annel0/mmo-seating/internal/physics"
	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
)

// ScenePresence аватар участника в сцене.
// Переходы посадки одного аватара выполняются последовательно под его мьютексом.
type ScenePresence struct {
	scene   *Scene
	client  ClientAPI
	uuid    uuid.UUID
	localID uint32

	mu       sync.RWMutex
	position vec.Vec3Float
	rotation vec.Quat
	seat     SeatState
	actor    *physics.Actor // nil, пока аватар сидит
}

// UUID возвращает идентификатор аватара
func (sp *ScenePresence) UUID() uuid.UUID { return sp.uuid }

// LocalID возвращает локальный идентификатор аватара в сцене
func (sp *ScenePresence) LocalID() uint32 { return sp.localID }

// ControllingClient возвращает сессию клиента
func (sp *ScenePresence) ControllingClient() ClientAPI { return sp.client }

// AbsolutePosition возвращает позицию аватара в сцене
func (sp *ScenePresence) AbsolutePosition() vec.Vec3Float {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.position
}

// SetAbsolutePosition перемещает стоящего аватара.
// Сидящего на объекте аватара двигает только посадка, поэтому вызов игнорируется и возвращается false.
func (sp *ScenePresence) SetAbsolutePosition(pos vec.Vec3Float) bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.seat.Kind() == SittingOnObject {
		return false
	}
	sp.position = pos
	return true
}

// Rotation возвращает ориентацию аватара
func (sp *ScenePresence) Rotation() vec.Quat {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.rotation
}

// SeatState возвращает текущее состояние посадки
func (sp *ScenePresence) SeatState() SeatState {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.seat
}

// ParentID возвращает локальный ID объекта, на котором сидит аватар, или 0
func (sp *ScenePresence) ParentID() uint32 {
	return sp.SeatState().ParentID()
}

// SitGround сообщает, сидит ли аватар на земле
func (sp *ScenePresence) SitGround() bool {
	return sp.SeatState().SitGround()
}

// PhysicsActor возвращает физическое тело или nil
func (sp *ScenePresence) PhysicsActor() *physics.Actor {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.actor
}

// ParentPart возвращает объект, на котором сидит аватар, или nil
func (sp *ScenePresence) ParentPart() *SceneObjectPart {
	parentID := sp.ParentID()
	if parentID == 0 {
		return nil
	}
	return sp.scene.GetSceneObjectPartByLocalID(parentID)
}
