package storage

import (
	"context"
	"time"

	"github.com/annel0/mmo-seating/internal/eventbus"
	"github.com/annel0/mmo-seating/internal/logging"
	"github.com/annel0/mmo-seating/internal/scene"
	"github.com/google/uuid"
)

// StartOccupancyRecorder подписывается на события посадки и зеркалирует
// реестры сидящих в repo. Пустой реестр сохраняется надгробием с той же проверкой версии,
// поэтому события, пришедшие не по порядку, не откатывают проекцию.
func StartOccupancyRecorder(ctx context.Context, bus eventbus.EventBus, repo OccupancyRepo) (eventbus.Subscription, error) {
	filter := eventbus.Filter{
		Types:   []string{scene.EventAvatarSat, scene.EventAvatarStood},
		Sources: []string{scene.EventSource},
	}
	return bus.Subscribe(ctx, filter, func(ctx context.Context, ev *eventbus.Envelope) {
		recordSeatEvent(ctx, repo, ev)
	})
}

func recordSeatEvent(ctx context.Context, repo OccupancyRepo, ev *eventbus.Envelope) {
	se, err := scene.DecodeSeatEvent(ev)
	if err != nil {
		logging.Warn("Некорректное событие %s (%s): %v", ev.EventType, ev.ID, err)
		return
	}
	// Вставание с земли не затрагивает объекты
	if se.ObjectID == uuid.Nil {
		return
	}

	occ := Occupancy{
		ObjectID:  se.ObjectID,
		LocalID:   se.ObjectLocalID,
		Scene:     se.Scene,
		Occupants: se.Occupants,
		SitTarget: se.SitTargetAvatar,
		Version:   ProjectionVersion(se.Epoch, se.Version),
		UpdatedAt: ev.Timestamp,
	}
	if occ.UpdatedAt.IsZero() {
		occ.UpdatedAt = time.Now().UTC()
	}

	applied, err := repo.Save(ctx, occ)
	if err != nil {
		logging.Warn("Сохранение занятости объекта %s: %v", se.ObjectID, err)
		return
	}
	if !applied {
		logging.Debug("Устаревший срез объекта %s (версия %d) отброшен", se.ObjectID, se.Version)
	}
}
