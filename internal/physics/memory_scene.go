package physics

import (
	"fmt"
	"sync"

	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
)

// MemoryScene простая физическая сцена в памяти.
// Хранит только реестр тел; динамику не моделирует.
type MemoryScene struct {
	mu       sync.Mutex
	actors   map[uint32]*Actor
	byAvatar map[uuid.UUID]uint32
	nextID   uint32
	capacity int // 0: без ограничений

	// Внедрение сбоев для тестов
	failAdd    error
	failRemove error
}

// NewMemoryScene создаёт сцену с ограничением на число тел (0: без ограничений)
func NewMemoryScene(capacity int) *MemoryScene {
	return &MemoryScene{
		actors:   make(map[uint32]*Actor),
		byAvatar: make(map[uuid.UUID]uint32),
		nextID:   1,
		capacity: capacity,
	}
}

// AddAvatar регистрирует новое тело аватара
func (s *MemoryScene) AddAvatar(avatarID uuid.UUID, pos vec.Vec3Float, size vec.Vec3Float) (*Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAdd != nil {
		return nil, s.failAdd
	}
	if _, exists := s.byAvatar[avatarID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateActor, avatarID)
	}
	if s.capacity > 0 && len(s.actors) >= s.capacity {
		return nil, ErrCapacity
	}

	actor := &Actor{
		ID:       s.nextID,
		AvatarID: avatarID,
		Position: pos,
		Size:     size,
	}
	s.nextID++
	s.actors[actor.ID] = actor
	s.byAvatar[avatarID] = actor.ID
	return actor, nil
}

// RemoveAvatar удаляет тело из сцены
func (s *MemoryScene) RemoveAvatar(actor *Actor) error {
	if actor == nil {
		return ErrUnknownActor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failRemove != nil {
		return s.failRemove
	}
	if _, exists := s.actors[actor.ID]; !exists {
		return fmt.Errorf("%w: %d", ErrUnknownActor, actor.ID)
	}
	delete(s.actors, actor.ID)
	delete(s.byAvatar, actor.AvatarID)
	return nil
}

// ActorFor возвращает тело аватара, если оно есть
func (s *MemoryScene) ActorFor(avatarID uuid.UUID) (*Actor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byAvatar[avatarID]
	if !ok {
		return nil, false
	}
	return s.actors[id], true
}

// Count возвращает количество тел в сцене
func (s *MemoryScene) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actors)
}

// FailAdd заставляет последующие AddAvatar возвращать err (nil отключает сбой)
func (s *MemoryScene) FailAdd(err error) {
	s.mu.Lock()
	s.failAdd = err
	s.mu.Unlock()
}

// FailRemove заставляет последующие RemoveAvatar возвращать err (nil отключает сбой)
func (s *MemoryScene) FailRemove(err error) {
	s.mu.Lock()
	s.failRemove = err
	s.mu.Unlock()
}
