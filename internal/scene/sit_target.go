package scene

import (
	"github.com/annel0/mmo-seating/internal/config"
	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
)

// SitParams параметры проверки и размещения при посадке
type SitParams struct {
	MaxSitDistance      float64       // дальность посадки на объект без sit target
	SitTargetAdjustment vec.Vec3Float // поправка к sit target
	AvatarHeight        float64       // рост аватара; без sit target он садится на половину роста выше объекта
}

// DefaultSitParams параметры по умолчанию
func DefaultSitParams() SitParams {
	return SitParams{
		MaxSitDistance:      config.DefaultMaxSitDistance,
		SitTargetAdjustment: config.DefaultSitTargetAdjustment,
		AvatarHeight:        config.DefaultAvatarHeight,
	}
}

// SitParamsFromConfig собирает параметры из конфигурации
func SitParamsFromConfig(cfg *config.SeatingConfig) SitParams {
	return SitParams{
		MaxSitDistance:      cfg.GetMaxSitDistance(),
		SitTargetAdjustment: cfg.GetSitTargetAdjustment(),
		AvatarHeight:        cfg.GetAvatarHeight(),
	}
}

// SitStatus результат запроса на посадку
type SitStatus uint8

const (
	SitAccepted SitStatus = iota
	SitRejectedOutOfRange
	SitRejectedSlotConflict
	SitAlreadySeated
)

// String возвращает строковое представление статуса
func (s SitStatus) String() string {
	switch s {
	case SitAccepted:
		return "accepted"
	case SitRejectedOutOfRange:
		return "out_of_range"
	case SitRejectedSlotConflict:
		return "slot_conflict"
	case SitAlreadySeated:
		return "already_seated"
	default:
		return "unknown"
	}
}

// Placement положение аватара относительно объекта
type Placement struct {
	Offset        vec.Vec3Float // прибавляется к позиции объекта
	Orientation   vec.Quat      // задаётся только при посадке на sit target
	UsesSitTarget bool
}

// SitOutcome решение по запросу на посадку
type SitOutcome struct {
	Status   SitStatus
	TargetID uuid.UUID
	Placement
	Distance float64 // расстояние аватар → объект на момент запроса
	Warning  error   // *PhysicsWarning, если физика не смогла обработать переход
}

// Accepted сообщает, что посадка состоялась
func (o SitOutcome) Accepted() bool {
	return o.Status == SitAccepted
}

// ResolveSit решает, может ли аватар сесть на объект, и вычисляет размещение.
// Функция ничего не меняет: изменения выполняет ScenePresence.
// requestedOffset клиента в размещение не входит: без sit target аватар всегда
// садится над позицией объекта на половину роста.
func ResolveSit(avatarID uuid.UUID, avatarPos vec.Vec3Float, part *SceneObjectPart, requestedOffset vec.Vec3Float, params SitParams) SitOutcome {
	outcome := SitOutcome{
		TargetID: part.UUID,
		Distance: avatarPos.DistanceTo(part.AbsolutePosition()),
	}

	// С sit target дальность не проверяется
	if sitTarget := part.SitTargetPosition(); !sitTarget.IsZero() {
		if occupant := part.SitTargetAvatar(); occupant != uuid.Nil && occupant != avatarID {
			outcome.Status = SitRejectedSlotConflict
			return outcome
		}
		outcome.Status = SitAccepted
		outcome.Placement = Placement{
			Offset:        sitTarget.Add(params.SitTargetAdjustment),
			Orientation:   part.SitTargetOrientation(),
			UsesSitTarget: true,
		}
		return outcome
	}

	if outcome.Distance > params.MaxSitDistance {
		outcome.Status = SitRejectedOutOfRange
		return outcome
	}

	outcome.Status = SitAccepted
	outcome.Placement = Placement{
		Offset: vec.Vec3Float{Z: params.AvatarHeight / 2},
	}
	return outcome
}
