package api

import (
	"github.com/annel0/mmo-seating/internal/scene"
	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
)

// ObjectView состояние объекта и его реестра сидящих
type ObjectView struct {
	ID                   uuid.UUID      `json:"id"`
	LocalID              uint32         `json:"local_id"`
	Name                 string         `json:"name"`
	Position             vec.Vec3Float  `json:"position"`
	Rotation             vec.Quat       `json:"rotation"`
	SitTarget            *vec.Vec3Float `json:"sit_target,omitempty"`
	SitTargetOrientation vec.Quat       `json:"sit_target_orientation"`
	SitTargetAvatar      uuid.UUID      `json:"sit_target_avatar"`
	Occupants            []uuid.UUID    `json:"occupants"`
	Version              uint64         `json:"version"`
}

func newObjectView(part *scene.SceneObjectPart) ObjectView {
	snap := part.Sitting().Snapshot()
	view := ObjectView{
		ID:                   part.UUID,
		LocalID:              part.LocalID,
		Name:                 part.Name,
		Position:             part.AbsolutePosition(),
		Rotation:             part.Rotation(),
		SitTargetOrientation: part.SitTargetOrientation(),
		SitTargetAvatar:      snap.Target,
		Occupants:            snap.Occupants,
		Version:              snap.Version,
	}
	if part.HasSitTarget() {
		target := part.SitTargetPosition()
		view.SitTarget = &target
	}
	if view.Occupants == nil {
		view.Occupants = []uuid.UUID{}
	}
	return view
}

// AvatarView состояние посадки аватара
type AvatarView struct {
	ID              uuid.UUID     `json:"id"`
	LocalID         uint32        `json:"local_id"`
	State           string        `json:"state"`
	ParentID        uint32        `json:"parent_id"`
	SitGround       bool          `json:"sit_ground"`
	Position        vec.Vec3Float `json:"position"`
	Rotation        vec.Quat      `json:"rotation"`
	HasPhysicsActor bool          `json:"has_physics_actor"`
	Warning         string        `json:"warning,omitempty"`
}

func newAvatarView(sp *scene.ScenePresence, warning error) AvatarView {
	state := sp.SeatState()
	view := AvatarView{
		ID:              sp.UUID(),
		LocalID:         sp.LocalID(),
		State:           state.Kind().String(),
		ParentID:        state.ParentID(),
		SitGround:       state.SitGround(),
		Position:        sp.AbsolutePosition(),
		Rotation:        sp.Rotation(),
		HasPhysicsActor: sp.PhysicsActor() != nil,
	}
	if warning != nil {
		view.Warning = warning.Error()
	}
	return view
}

// SitView результат запроса посадки
type SitView struct {
	Status        string        `json:"status"`
	TargetID      uuid.UUID     `json:"target_id"`
	Offset        vec.Vec3Float `json:"offset"`
	Orientation   vec.Quat      `json:"orientation"`
	UsesSitTarget bool          `json:"uses_sit_target"`
	Distance      float64       `json:"distance"`
	Warning       string        `json:"warning,omitempty"`
}

func newSitView(outcome scene.SitOutcome) SitView {
	view := SitView{
		Status:        outcome.Status.String(),
		TargetID:      outcome.TargetID,
		Offset:        outcome.Offset,
		Orientation:   outcome.Orientation,
		UsesSitTarget: outcome.UsesSitTarget,
		Distance:      outcome.Distance,
	}
	if outcome.Warning != nil {
		view.Warning = outcome.Warning.Error()
	}
	return view
}
