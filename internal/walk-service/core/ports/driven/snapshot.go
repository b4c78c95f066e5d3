package driven

import (
	"context"

	"pawwalk/internal/walk-service/core/domain/model"
)

type ISnapshotRenderer interface {
	DrawSnapshot(ctx context.Context, input model.SnapshotInput)
	IsReady() bool
	// Err is non-nil once the current drawing has failed.
	Err() error
	ExportPNG() []byte
}

// SnapshotRendererFactory hands out a fresh canvas per snapshot.
type SnapshotRendererFactory func() ISnapshotRenderer

type IBaseMapFetcher interface {
	FetchBaseMap(ctx context.Context, req model.BaseMapRequest) ([]byte, error)
}
