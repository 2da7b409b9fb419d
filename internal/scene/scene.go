package scene

import (
	"fmt"
	"sync"
	"time"

	"github.com/annel0/mmo-seating/internal/eventbus"
	"github.com/annel0/mmo-seating/internal/logging"
	"github.com/annel0/mmo-seating/internal/physics"
	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
)

// Options зависимости сцены
type Options struct {
	Physics physics.Scene     // обязательна
	Bus     eventbus.EventBus // nil: события не публикуются
	Metrics *Metrics          // nil: метрики не собираются
	Logger  *logging.Logger   // nil: логгер по умолчанию
	Params  *SitParams        // nil: DefaultSitParams
	Epoch   uint64            // 0: время создания сцены в секундах Unix
}

// Scene каталог объектов и аватаров региона.
// Аватар ссылается на объект по локальному ID, объект на аватаров: по UUID.
type Scene struct {
	Name string

	physics physics.Scene
	bus     eventbus.EventBus
	metrics *Metrics
	log     *logging.Logger
	params  SitParams
	epoch   uint64

	mu           sync.RWMutex
	parts        map[uuid.UUID]*SceneObjectPart
	partsByLocal map[uint32]*SceneObjectPart
	presences    map[uuid.UUID]*ScenePresence
	nextLocalID  uint32
}

// NewScene создаёт пустую сцену
func NewScene(name string, opts Options) *Scene {
	if opts.Physics == nil {
		panic("scene: physics scene is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	params := DefaultSitParams()
	if opts.Params != nil {
		params = *opts.Params
	}
	epoch := opts.Epoch
	if epoch == 0 {
		epoch = uint64(time.Now().Unix())
	}

	return &Scene{
		Name:         name,
		physics:      opts.Physics,
		bus:          opts.Bus,
		metrics:      opts.Metrics,
		log:          logger,
		params:       params,
		epoch:        epoch,
		parts:        make(map[uuid.UUID]*SceneObjectPart),
		partsByLocal: make(map[uint32]*SceneObjectPart),
		presences:    make(map[uuid.UUID]*ScenePresence),
		nextLocalID:  1,
	}
}

// Epoch возвращает эпоху сцены, которой помечаются события посадки
func (s *Scene) Epoch() uint64 {
	return s.epoch
}

// Params возвращает параметры посадки сцены
func (s *Scene) Params() SitParams {
	return s.params
}

func (s *Scene) avatarSize() vec.Vec3Float {
	size := physics.DefaultAvatarSize
	size.Z = s.params.AvatarHeight
	return size
}

// allocLocalID выдаёт следующий локальный ID; вызывается под s.mu
func (s *Scene) allocLocalID() uint32 {
	id := s.nextLocalID
	s.nextLocalID++
	return id
}

// AddSceneObject создаёт объект в указанной позиции
func (s *Scene) AddSceneObject(name string, pos vec.Vec3Float) *SceneObjectPart {
	s.mu.Lock()
	defer s.mu.Unlock()

	part := newSceneObjectPart(uuid.New(), s.allocLocalID(), name, pos)
	s.parts[part.UUID] = part
	s.partsByLocal[part.LocalID] = part

	s.log.Debug("Объект %q создан: %s (%d)", name, part.UUID, part.LocalID)
	return part
}

// DeleteSceneObject убирает объект из сцены и поднимает всех сидящих на нём аватаров.
// Реестр закрывается до подъёма, поэтому посадка, начатая до удаления, завершится отказом.
func (s *Scene) DeleteSceneObject(id uuid.UUID) error {
	s.mu.Lock()
	part := s.parts[id]
	if part == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	delete(s.parts, part.UUID)
	delete(s.partsByLocal, part.LocalID)
	s.mu.Unlock()

	for _, avatarID := range part.sitting.close() {
		if sp, ok := s.GetScenePresence(avatarID); ok {
			if err := sp.standUpFrom(part); err != nil {
				s.log.Warn("Удаление объекта %s: %v", id, err)
			}
		}
	}

	s.log.Debug("Объект %s (%d) удалён", part.UUID, part.LocalID)
	return nil
}

// AddScenePresence создаёт стоящего аватара с физическим телом.
// Если тело создать не удалось, аватар всё равно добавляется, а ошибка: *PhysicsWarning.
func (s *Scene) AddScenePresence(id uuid.UUID, client ClientAPI, pos vec.Vec3Float) (*ScenePresence, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidAvatarID
	}
	if client == nil {
		client = NewBufferedClient(id)
	}

	s.mu.Lock()
	if _, exists := s.presences[id]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePresence, id)
	}
	sp := &ScenePresence{
		scene:    s,
		client:   client,
		uuid:     id,
		localID:  s.allocLocalID(),
		position: pos,
		rotation: vec.QuatIdentity,
		seat:     StandingState(),
	}
	s.presences[id] = sp
	s.mu.Unlock()

	sp.mu.Lock()
	warn := sp.applySeatState(StandingState())
	sp.mu.Unlock()

	s.log.Debug("Аватар %s добавлен в сцену %s", id, s.Name)
	if warn != nil {
		return sp, warn
	}
	return sp, nil
}

// RemoveScenePresence поднимает аватара, удаляет его тело и убирает из сцены
func (s *Scene) RemoveScenePresence(id uuid.UUID) error {
	sp, ok := s.GetScenePresence(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPresence, id)
	}

	if err := sp.StandUp(); err != nil {
		s.log.Warn("Удаление аватара %s: %v", id, err)
	}

	sp.mu.Lock()
	if sp.actor != nil {
		if err := s.physics.RemoveAvatar(sp.actor); err != nil {
			s.log.Warn("Удаление тела аватара %s: %v", id, err)
			s.metrics.physicsFailure("detach")
		}
		sp.actor = nil
	}
	sp.mu.Unlock()

	s.mu.Lock()
	delete(s.presences, id)
	s.mu.Unlock()

	s.log.Debug("Аватар %s удалён из сцены %s", id, s.Name)
	return nil
}

// GetScenePresence возвращает аватара по UUID
func (s *Scene) GetScenePresence(id uuid.UUID) (*ScenePresence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.presences[id]
	return sp, ok
}

// GetSceneObjectPart возвращает объект по UUID или nil
func (s *Scene) GetSceneObjectPart(id uuid.UUID) *SceneObjectPart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parts[id]
}

// GetSceneObjectPartByLocalID возвращает объект по локальному ID или nil
func (s *Scene) GetSceneObjectPartByLocalID(localID uint32) *SceneObjectPart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partsByLocal[localID]
}

// Presences возвращает всех аватаров сцены
func (s *Scene) Presences() []*ScenePresence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*ScenePresence, 0, len(s.presences))
	for _, sp := range s.presences {
		result = append(result, sp)
	}
	return result
}

// Parts возвращает все объекты сцены
func (s *Scene) Parts() []*SceneObjectPart {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*SceneObjectPart, 0, len(s.parts))
	for _, p := range s.parts {
		result = append(result, p)
	}
	return result
}
