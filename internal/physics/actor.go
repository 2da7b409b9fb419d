package physics

import (
	"errors"

	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
)

var (
	// ErrCapacity сцена не может принять ещё одного актора
	ErrCapacity = errors.New("physics: scene actor capacity exhausted")
	// ErrUnknownActor актор не зарегистрирован в сцене
	ErrUnknownActor = errors.New("physics: unknown actor")
	// ErrDuplicateActor для аватара уже существует актор
	ErrDuplicateActor = errors.New("physics: avatar already has an actor")
)

// DefaultAvatarSize размер капсулы аватара по умолчанию (ширина, глубина, рост)
var DefaultAvatarSize = vec.Vec3Float{X: 0.45, Y: 0.6, Z: 1.690998674}

// Actor представляет динамическое тело аватара в физической сцене
type Actor struct {
	ID       uint32        // Локальный идентификатор тела в сцене
	AvatarID uuid.UUID     // Владелец тела
	Position vec.Vec3Float // Позиция центра тела на момент создания
	Size     vec.Vec3Float // Габариты капсулы
	Flying   bool
}

// Scene абстрагирует физический движок: создание и удаление тел аватаров.
// Обе операции могут завершиться ошибкой (например, при исчерпании ресурсов).
type Scene interface {
	// AddAvatar создаёт тело для аватара в указанной позиции
	AddAvatar(avatarID uuid.UUID, pos vec.Vec3Float, size vec.Vec3Float) (*Actor, error)

	// RemoveAvatar удаляет тело аватара из сцены
	RemoveAvatar(actor *Actor) error
}
