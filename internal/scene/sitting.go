package scene

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// SittingRegistry учитывает аватаров, сидящих на одном объекте.
// Множество создаётся при первом аватаре и обнуляется при уходе последнего.
// Блокировка держится только на время изменения множества.
type SittingRegistry struct {
	mu      sync.Mutex
	avatars map[uuid.UUID]struct{} // nil, когда на объекте никто не сидит
	target  uuid.UUID              // занявший sit target или uuid.Nil
	version uint64                 // растёт при каждом изменении
	closed  bool                   // объект удалён из сцены
}

// AddOccupant добавляет аватара. При isTarget аватар также занимает sit target;
// если тот занят другим аватаром, возвращается ErrSitTargetOccupied и ничего не меняется.
// После удаления объекта из сцены возвращается ErrObjectDeleted.
func (r *SittingRegistry) AddOccupant(id uuid.UUID, isTarget bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrObjectDeleted
	}
	if isTarget && r.target != uuid.Nil && r.target != id {
		return ErrSitTargetOccupied
	}

	if r.avatars == nil {
		r.avatars = make(map[uuid.UUID]struct{})
	}
	r.avatars[id] = struct{}{}
	if isTarget {
		r.target = id
	}
	r.version++
	return nil
}

// close запрещает новые посадки и возвращает текущих сидящих.
// Сидящие остаются в реестре до собственного подъёма.
func (r *SittingRegistry) close() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	ids := make([]uuid.UUID, 0, len(r.avatars))
	for id := range r.avatars {
		ids = append(ids, id)
	}
	return ids
}

// RemoveOccupant убирает аватара; повторное удаление ничего не делает.
// Возвращает true, если аватар был на объекте.
func (r *SittingRegistry) RemoveOccupant(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.avatars[id]; !ok {
		return false
	}

	delete(r.avatars, id)
	if len(r.avatars) == 0 {
		r.avatars = nil
	}
	if r.target == id {
		r.target = uuid.Nil
	}
	r.version++
	return true
}

// Count возвращает число сидящих аватаров
func (r *SittingRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.avatars)
}

// Occupants возвращает копию множества сидящих или nil, если объект свободен
func (r *SittingRegistry) Occupants() map[uuid.UUID]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.avatars == nil {
		return nil
	}
	result := make(map[uuid.UUID]struct{}, len(r.avatars))
	for id := range r.avatars {
		result[id] = struct{}{}
	}
	return result
}

// TargetOccupant возвращает аватара на sit target или uuid.Nil
func (r *SittingRegistry) TargetOccupant() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// Snapshot согласованный срез реестра
type Snapshot struct {
	Occupants []uuid.UUID // отсортированы по строковому представлению
	Target    uuid.UUID
	Version   uint64
}

// Snapshot возвращает согласованный срез состояния реестра
func (r *SittingRegistry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{Target: r.target, Version: r.version}
	if len(r.avatars) > 0 {
		snap.Occupants = make([]uuid.UUID, 0, len(r.avatars))
		for id := range r.avatars {
			snap.Occupants = append(snap.Occupants, id)
		}
		sort.Slice(snap.Occupants, func(i, j int) bool {
			return snap.Occupants[i].String() < snap.Occupants[j].String()
		})
	}
	return snap
}
