package scene

import "fmt"

// SeatKind вид состояния посадки аватара
type SeatKind uint8

const (
	Standing SeatKind = iota
	SittingOnObject
	SittingOnGround
)

// String возвращает строковое представление вида посадки
func (k SeatKind) String() string {
	switch k {
	case Standing:
		return "standing"
	case SittingOnObject:
		return "sitting_on_object"
	case SittingOnGround:
		return "sitting_on_ground"
	default:
		return "unknown"
	}
}

// SeatState состояние посадки: вид + локальный ID объекта (только для SittingOnObject).
// Создаётся только конструкторами ниже, поэтому ParentID != 0 и SitGround не могут совпасть.
type SeatState struct {
	kind     SeatKind
	parentID uint32
}

// StandingState аватар стоит, физическое тело присутствует
func StandingState() SeatState {
	return SeatState{kind: Standing}
}

// GroundState аватар сидит на земле
func GroundState() SeatState {
	return SeatState{kind: SittingOnGround}
}

// ObjectState аватар сидит на объекте с указанным локальным ID (не 0)
func ObjectState(localID uint32) SeatState {
	if localID == 0 {
		panic("scene: seat state on object with zero local id")
	}
	return SeatState{kind: SittingOnObject, parentID: localID}
}

// Kind возвращает вид состояния
func (s SeatState) Kind() SeatKind { return s.kind }

// ParentID возвращает локальный ID объекта или 0
func (s SeatState) ParentID() uint32 { return s.parentID }

// SitGround сообщает, сидит ли аватар на земле
func (s SeatState) SitGround() bool { return s.kind == SittingOnGround }

// Seated сообщает, что аватар сидит (на объекте или на земле) и физическое тело ему не нужно
func (s SeatState) Seated() bool { return s.kind != Standing }

func (s SeatState) String() string {
	if s.kind == SittingOnObject {
		return fmt.Sprintf("%s(%d)", s.kind, s.parentID)
	}
	return s.kind.String()
}
