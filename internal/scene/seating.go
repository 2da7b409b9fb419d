package scene

import (
	"errors"
	"fmt"

	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
)

// HandleAgentRequestSit обрабатывает запрос аватара сесть на объект targetID.
// Отказ (дальность, занятый sit target, повторная посадка) возвращается в SitOutcome без ошибки
// и не меняет ни аватара, ни объект. Ошибка означает неверный запрос.
func (sp *ScenePresence) HandleAgentRequestSit(client ClientAPI, agentID, targetID uuid.UUID, offset vec.Vec3Float) (SitOutcome, error) {
	if agentID != sp.uuid {
		return SitOutcome{}, ErrAgentMismatch
	}
	part := sp.scene.GetSceneObjectPart(targetID)
	if part == nil {
		return SitOutcome{}, ErrUnknownObject
	}
	if client == nil {
		client = sp.client
	}

	sp.mu.Lock()

	prev := sp.seat
	if prev.Kind() == SittingOnObject && prev.ParentID() == part.LocalID {
		sp.mu.Unlock()
		return SitOutcome{Status: SitAlreadySeated, TargetID: part.UUID}, nil
	}

	outcome := ResolveSit(sp.uuid, sp.position, part, offset, sp.scene.params)
	if !outcome.Accepted() {
		sp.mu.Unlock()
		sp.rejectSit(client, part, outcome)
		return outcome, nil
	}

	// Пересадка: сначала освобождаем прежнее место
	var oldPart *SceneObjectPart
	if prev.Kind() == SittingOnObject {
		oldPart = sp.scene.GetSceneObjectPartByLocalID(prev.ParentID())
		if oldPart != nil {
			oldPart.sitting.RemoveOccupant(sp.uuid)
		}
	}

	if err := part.sitting.AddOccupant(sp.uuid, outcome.UsesSitTarget); err != nil {
		// Между проверкой и регистрацией sit target занял другой аватар или объект удалили.
		// Прежнее место уже освобождено, поэтому аватар встаёт.
		var warn error
		if prev.Kind() == SittingOnObject {
			warn = sp.applySeatState(StandingState())
		}
		sp.mu.Unlock()
		if prev.Kind() == SittingOnObject {
			sp.scene.metrics.stand()
			sp.scene.metrics.seatedDelta(-1)
			sp.scene.publishSeatEvent(EventAvatarStood, sp, oldPart, "")
		}

		if errors.Is(err, ErrObjectDeleted) {
			return SitOutcome{}, fmt.Errorf("%w: %s", ErrUnknownObject, targetID)
		}
		outcome.Status = SitRejectedSlotConflict
		outcome.Placement = Placement{}
		outcome.Warning = warn
		sp.rejectSit(client, part, outcome)
		return outcome, nil
	}

	sp.position = part.AbsolutePosition().Add(outcome.Offset)
	if outcome.UsesSitTarget {
		sp.rotation = outcome.Orientation
	}
	outcome.Warning = sp.applySeatState(ObjectState(part.LocalID))
	sp.mu.Unlock()

	sp.scene.log.Debug("Аватар %s сел на %s (%d), sit target=%v, dist=%.2f",
		sp.uuid, part.UUID, part.LocalID, outcome.UsesSitTarget, outcome.Distance)
	sp.scene.metrics.sitRequest(outcome.Status)
	if prev.Kind() == Standing {
		sp.scene.metrics.seatedDelta(1)
	}

	client.SendSitResponse(SitResponse{
		TargetID:    part.UUID,
		Offset:      outcome.Offset,
		Orientation: outcome.Orientation,
	})

	if oldPart != nil {
		sp.scene.publishSeatEvent(EventAvatarStood, sp, oldPart, "")
	}
	sp.scene.publishSeatEvent(EventAvatarSat, sp, part, "")
	return outcome, nil
}

// rejectSit уведомляет клиента и наблюдателей об отказе; вызывается без блокировки аватара
func (sp *ScenePresence) rejectSit(client ClientAPI, part *SceneObjectPart, outcome SitOutcome) {
	sp.scene.log.Debug("Аватар %s не может сесть на %s: %s (dist=%.2f)",
		sp.uuid, part.UUID, outcome.Status, outcome.Distance)
	sp.scene.metrics.sitRequest(outcome.Status)

	switch outcome.Status {
	case SitRejectedOutOfRange:
		client.SendAlertMessage(AlertSitTooFar)
	case SitRejectedSlotConflict:
		client.SendAlertMessage(AlertSitTargetTaken)
	}
	sp.scene.publishSeatEvent(EventAvatarSitRejected, sp, part, outcome.Status.String())
}

// HandleAgentSitOnGround сажает стоящего аватара на землю.
// Если аватар уже сидит (на объекте или на земле), ничего не происходит.
func (sp *ScenePresence) HandleAgentSitOnGround() error {
	sp.mu.Lock()
	if sp.seat.Kind() != Standing {
		sp.mu.Unlock()
		return nil
	}
	warn := sp.applySeatState(GroundState())
	sp.mu.Unlock()

	sp.scene.log.Debug("Аватар %s сел на землю", sp.uuid)
	sp.scene.metrics.groundSit()
	sp.scene.metrics.seatedDelta(1)
	sp.scene.publishSeatEvent(EventAvatarSatOnGround, sp, nil, "")
	return warn
}

// StandUp поднимает аватара. Для стоящего аватара вызов ничего не делает.
// Возвращённая ошибка: *PhysicsWarning, аватар уже стоит, но тело создать не удалось.
func (sp *ScenePresence) StandUp() error {
	return sp.standUpFrom(nil)
}

// standUpFrom поднимает аватара. Непустой from ограничивает подъём аватаром,
// сидящим именно на этом объекте: так поднимают сидящих на удалённом объекте,
// которого уже нет в каталоге сцены.
func (sp *ScenePresence) standUpFrom(from *SceneObjectPart) error {
	sp.mu.Lock()
	prev := sp.seat
	if prev.Kind() == Standing || (from != nil && prev.ParentID() != from.LocalID) {
		sp.mu.Unlock()
		return nil
	}

	part := from
	if prev.Kind() == SittingOnObject {
		if part == nil {
			part = sp.scene.GetSceneObjectPartByLocalID(prev.ParentID())
		}
		if part != nil {
			part.sitting.RemoveOccupant(sp.uuid)
		}
	}
	warn := sp.applySeatState(StandingState())
	sp.mu.Unlock()

	sp.scene.log.Debug("Аватар %s встал (%s)", sp.uuid, prev)
	sp.scene.metrics.stand()
	sp.scene.metrics.seatedDelta(-1)
	sp.scene.publishSeatEvent(EventAvatarStood, sp, part, "")
	return warn
}

// applySeatState единственное место, где меняется состояние посадки.
// Сидящий аватар теряет физическое тело, стоящий получает новое.
// Состояние меняется всегда; сбой физики возвращается как *PhysicsWarning.
// Вызывается под sp.mu.
func (sp *ScenePresence) applySeatState(next SeatState) error {
	sp.seat = next

	var warn *PhysicsWarning
	if next.Seated() {
		if sp.actor != nil {
			if err := sp.scene.physics.RemoveAvatar(sp.actor); err != nil {
				warn = &PhysicsWarning{Op: "detach", AvatarID: sp.uuid, Err: err}
			} else {
				sp.actor = nil
			}
		}
	} else if sp.actor == nil {
		actor, err := sp.scene.physics.AddAvatar(sp.uuid, sp.position, sp.scene.avatarSize())
		if err != nil {
			warn = &PhysicsWarning{Op: "attach", AvatarID: sp.uuid, Err: err}
		} else {
			sp.actor = actor
		}
	}

	if warn != nil {
		sp.scene.log.Warn("%v", warn)
		sp.scene.metrics.physicsFailure(warn.Op)
		return warn
	}
	return nil
}
