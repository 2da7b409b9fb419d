package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUnknownObject объект с указанным UUID отсутствует в сцене
	ErrUnknownObject = errors.New("scene: unknown object")
	// ErrUnknownPresence аватар с указанным UUID отсутствует в сцене
	ErrUnknownPresence = errors.New("scene: unknown presence")
	// ErrDuplicatePresence аватар уже присутствует в сцене
	ErrDuplicatePresence = errors.New("scene: presence already exists")
	// ErrAgentMismatch запрос пришёл с идентификатором чужого аватара
	ErrAgentMismatch = errors.New("scene: agent id does not match presence")
	// ErrSitTargetOccupied sit target объекта уже занят другим аватаром
	ErrSitTargetOccupied = errors.New("scene: sit target already occupied")
	// ErrInvalidAvatarID нулевой UUID не может принадлежать аватару
	ErrInvalidAvatarID = errors.New("scene: avatar id must not be nil")
	// ErrObjectDeleted объект удалён из сцены, на него нельзя сесть
	ErrObjectDeleted = errors.New("scene: object deleted")
)

// PhysicsWarning сообщает о сбое физического движка при смене состояния посадки.
// Логическое состояние (ParentID/SitGround) при этом уже обновлено.
type PhysicsWarning struct {
	Op       string // "attach" или "detach"
	AvatarID uuid.UUID
	Err      error
}

func (w *PhysicsWarning) Error() string {
	return fmt.Sprintf("physics %s for avatar %s failed: %v", w.Op, w.AvatarID, w.Err)
}

func (w *PhysicsWarning) Unwrap() error {
	return w.Err
}
