package driver

import (
	"context"
	"time"

	"pawwalk/internal/walk-service/core/domain/model"
)

type IWalkService interface {
	Start(ctx context.Context) (string, error)
	End(ctx context.Context) error
	Cancel() error
	SubscribeArea(areaKey string) error
	UnsubscribeArea()
	Status() model.WalkStatus
	Blocks() model.BlockSnapshot
	SubscribeBlocks(fn func(model.BlockSnapshot)) (cancel func())
	Preview(ctx context.Context) ([]byte, error)
	Footprints(ctx context.Context, year int, month time.Month) ([]model.Footprint, error)
}
