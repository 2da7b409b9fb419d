package eventbus

import (
	"context"

	"github.com/annel0/mmo-seating/internal/logging"
)

// StartForwarder пересылает события, прошедшие фильтр, из шины from в шину to.
// Симуляция публикует только в неблокирующую in-memory шину; сетевые задержки
// внешней шины ложатся на горутины подписчика.
func StartForwarder(ctx context.Context, from, to EventBus, f Filter) (Subscription, error) {
	sub, err := from.Subscribe(ctx, f, func(ctx context.Context, ev *Envelope) {
		if err := to.Publish(ctx, ev); err != nil {
			logging.Warn("[EventBus] пересылка %s %s: %v", ev.ID, ev.EventType, err)
		}
	})
	if err != nil {
		return nil, err
	}
	logging.Info("🔀 Forwarder: пересылка событий %v активирована", f.Types)
	return sub, nil
}
