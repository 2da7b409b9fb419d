package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Occupancy проекция реестра сидящих одного объекта.
// Version монотонно растёт с каждым изменением реестра в сцене и между запусками
// процесса (см. ProjectionVersion). Срез без сидящих хранится как надгробие:
// он помнит версию, чтобы запоздавшее старое событие не вернуло объекту сидящих.
type Occupancy struct {
	ObjectID  uuid.UUID   `json:"object_id"`
	LocalID   uint32      `json:"local_id"`
	Scene     string      `json:"scene"`
	Occupants []uuid.UUID `json:"occupants"`
	SitTarget uuid.UUID   `json:"sit_target"`
	Version   uint64      `json:"version"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OccupancyRepo определяет интерфейс хранилища проекции занятости объектов.
// Проекцию читают внешние сервисы, не обращаясь к симуляции.
type OccupancyRepo interface {
	// Save записывает срез, только если его Version больше сохранённой.
	// Срез без Occupants записывается как надгробие.
	// Возвращает false, если срез устарел и был отброшен.
	Save(ctx context.Context, occ Occupancy) (bool, error)

	// Load возвращает срез объекта; false: объект никем не занят (в том числе надгробие).
	Load(ctx context.Context, objectID uuid.UUID) (Occupancy, bool, error)

	// Delete удаляет запись объекта вместе с надгробием, например при удалении объекта из мира.
	// Отсутствующий объект не считается ошибкой.
	Delete(ctx context.Context, objectID uuid.UUID) error
}

// Vacant сообщает, что срез не содержит сидящих
func (o Occupancy) Vacant() bool {
	return len(o.Occupants) == 0
}

// ProjectionVersion объединяет эпоху сцены (время её запуска, в секундах) и версию реестра.
// Версии реестра начинаются заново после перезапуска, а эпоха растёт, поэтому срезы
// нового процесса всегда новее сохранённых старым.
func ProjectionVersion(epoch, version uint64) uint64 {
	return epoch<<32 | version&0xffffffff
}

// newer сообщает, нужно ли заменить сохранённый срез новым
func newer(stored Occupancy, found bool, next Occupancy) bool {
	return !found || next.Version > stored.Version
}
