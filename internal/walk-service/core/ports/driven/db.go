package driven

import (
	"context"
	"time"

	"pawwalk/internal/walk-service/core/domain/model"
)

type IFootprintRepository interface {
	Record(ctx context.Context, fp model.Footprint) error
	ListByMonth(ctx context.Context, dogID model.DogID, year int, month time.Month) ([]model.Footprint, error)
}
