package scene

import (
	"context"
	"encoding/json"
	"time"

	"github.com/annel0/mmo-seating/internal/eventbus"
	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
)

// Типы событий посадки
const (
	EventSource            = "seating"
	EventAvatarSat         = "AvatarSat"
	EventAvatarStood       = "AvatarStood"
	EventAvatarSatOnGround = "AvatarSatOnGround"
	EventAvatarSitRejected = "AvatarSitRejected"

	seatEventPriority = 4
)

// SeatEvents все типы событий, публикуемых сценой
var SeatEvents = []string{EventAvatarSat, EventAvatarStood, EventAvatarSatOnGround, EventAvatarSitRejected}

// SeatEvent полезная нагрузка событий посадки (JSON).
// Для событий, связанных с объектом, содержит срез его реестра сидящих.
type SeatEvent struct {
	Scene           string        `json:"scene"`
	AvatarID        uuid.UUID     `json:"avatar_id"`
	State           string        `json:"state"`
	Position        vec.Vec3Float `json:"position"`
	ObjectID        uuid.UUID     `json:"object_id"`
	ObjectLocalID   uint32        `json:"object_local_id,omitempty"`
	Occupants       []uuid.UUID   `json:"occupants,omitempty"`
	SitTargetAvatar uuid.UUID     `json:"sit_target_avatar"`
	Version         uint64        `json:"version,omitempty"`
	Epoch           uint64        `json:"epoch,omitempty"` // время запуска сцены; версии реестра сравнимы в пределах эпохи
	Reason          string        `json:"reason,omitempty"`
}

// DecodeSeatEvent разбирает полезную нагрузку события посадки
func DecodeSeatEvent(ev *eventbus.Envelope) (SeatEvent, error) {
	var se SeatEvent
	err := json.Unmarshal(ev.Payload, &se)
	return se, err
}

// publishSeatEvent публикует событие; вызывается без блокировки аватара
func (s *Scene) publishSeatEvent(eventType string, sp *ScenePresence, part *SceneObjectPart, reason string) {
	if s.bus == nil {
		return
	}

	se := SeatEvent{
		Scene:    s.Name,
		AvatarID: sp.uuid,
		State:    sp.SeatState().String(),
		Position: sp.AbsolutePosition(),
		Reason:   reason,
		Epoch:    s.epoch,
	}
	if part != nil {
		snap := part.sitting.Snapshot()
		se.ObjectID = part.UUID
		se.ObjectLocalID = part.LocalID
		se.Occupants = snap.Occupants
		se.SitTargetAvatar = snap.Target
		se.Version = snap.Version
	}

	payload, err := json.Marshal(se)
	if err != nil {
		s.log.Error("Сериализация события %s: %v", eventType, err)
		return
	}

	env := &eventbus.Envelope{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Source:        EventSource,
		EventType:     eventType,
		Version:       1,
		CorrelationID: sp.uuid.String(),
		Priority:      seatEventPriority,
		Payload:       payload,
		Metadata:      map[string]string{"scene": s.Name},
	}
	if err := s.bus.Publish(context.Background(), env); err != nil {
		s.log.Warn("Публикация события %s: %v", eventType, err)
	}
}
