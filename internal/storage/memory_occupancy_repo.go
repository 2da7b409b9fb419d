package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryOccupancyRepo реализует OccupancyRepo в памяти.
// Используется, когда внешнее хранилище не настроено, и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryOccupancyRepo struct {
	mu   sync.RWMutex
	data map[uuid.UUID]Occupancy
}

// NewMemoryOccupancyRepo создает новый репозиторий в памяти.
func NewMemoryOccupancyRepo() *MemoryOccupancyRepo {
	return &MemoryOccupancyRepo{
		data: make(map[uuid.UUID]Occupancy),
	}
}

// Save сохраняет срез, если он новее сохранённого.
func (r *MemoryOccupancyRepo) Save(ctx context.Context, occ Occupancy) (bool, error) {
	if occ.ObjectID == uuid.Nil {
		return false, fmt.Errorf("недействительный objectID: %s", occ.ObjectID)
	}

	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, found := r.data[occ.ObjectID]
	if !newer(stored, found, occ) {
		return false, nil
	}
	occ.Occupants = append([]uuid.UUID(nil), occ.Occupants...)
	r.data[occ.ObjectID] = occ
	return true, nil
}

// Load загружает срез объекта.
func (r *MemoryOccupancyRepo) Load(ctx context.Context, objectID uuid.UUID) (Occupancy, bool, error) {
	select {
	case <-ctx.Done():
		return Occupancy{}, false, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	occ, ok := r.data[objectID]
	if !ok || occ.Vacant() {
		return Occupancy{}, false, nil
	}
	occ.Occupants = append([]uuid.UUID(nil), occ.Occupants...)
	return occ, true, nil
}

// Delete удаляет срез объекта.
func (r *MemoryOccupancyRepo) Delete(ctx context.Context, objectID uuid.UUID) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, objectID)
	return nil
}

// Count возвращает количество занятых объектов (для отладки).
func (r *MemoryOccupancyRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, occ := range r.data {
		if !occ.Vacant() {
			count++
		}
	}
	return count
}
