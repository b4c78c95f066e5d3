package driven

import (
	"context"

	"pawwalk/internal/walk-service/core/domain/model"
)

// IGeolocator streams fixes to onFix until the returned cancel func is called
// or ctx ends.
type IGeolocator interface {
	Watch(ctx context.Context, onFix func(model.Fix)) (cancel func(), err error)
}
