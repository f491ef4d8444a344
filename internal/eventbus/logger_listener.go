package eventbus

import (
	"context"

	"github.com/annel0/voxel-remesher/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог
// компонента "eventbus". Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	logger := logging.GetComponentLogger("eventbus")

	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		if ev.EventType == EventMeshRebuilt {
			var p MeshRebuilt
			if err := DecodePayload(ev, &p); err == nil {
				logger.Debug("%s %s %s rev=%d quads=%d %.2fms",
					ev.ID, ev.EventType, p.Coords, p.Revision, p.Quads, p.DurationMs)
				return
			}
		}
		logger.Debug("%s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logger.Info("LoggingListener: подписка на все события активирована")
	return sub, nil
}
