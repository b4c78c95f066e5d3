package driven

import (
	"context"

	"pawwalk/internal/walk-service/core/domain/dto"
)

type IWalkBroker interface {
	// PublishJSON публикует объект как JSON в указанный exchange/routing key.
	PublishJSON(ctx context.Context, exchange, routingKey string, msg any) error

	IsAlive() bool

	Close() error
}

type IWalkEventPublisher interface {
	PublishWalkEvent(ctx context.Context, event dto.WalkLifecycleEvent) error
}
