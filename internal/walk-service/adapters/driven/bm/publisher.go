package bm

import (
	"context"
	"fmt"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/domain/dto"
	"pawwalk/internal/walk-service/core/ports/driven"
)

// Publisher routes walk lifecycle events to walk_topic, keyed by event name
// and dog ("walk.finished.42").
type Publisher struct {
	log    mylogger.Logger
	broker driven.IWalkBroker
}

var _ driven.IWalkEventPublisher = (*Publisher)(nil)

func NewPublisher(broker driven.IWalkBroker, log mylogger.Logger) *Publisher {
	return &Publisher{
		broker: broker,
		log:    log,
	}
}

func RoutingKey(e dto.WalkLifecycleEvent) string {
	return fmt.Sprintf("%s.%d", e.Event, e.DogID)
}

func (p *Publisher) PublishWalkEvent(ctx context.Context, event dto.WalkLifecycleEvent) error {
	l := p.log.Action("publish_walk_event")
	key := RoutingKey(event)
	if err := p.broker.PublishJSON(ctx, WalkExchangeName, key, event); err != nil {
		l.Error("failed to publish walk event", err, "routing_key", key)
		return err
	}
	l.Info("walk event published", "routing_key", key, "walk_id", event.WalkID)
	return nil
}
