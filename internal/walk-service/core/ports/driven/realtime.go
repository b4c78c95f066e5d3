package driven

import (
	"context"
	"time"

	"pawwalk/internal/walk-service/core/domain/model"
)

type IRealtimeClient interface {
	Connect(ctx context.Context, walkID, token string) error
	SendLocation(lat, lng float64)
	SubscribeToArea(areaKey string)
	UnsubscribeFromArea()
	AreaKey() string
	Disconnect()
	State() model.ConnState
}

// IBlockStore is the write side of the block state used by the realtime client.
type IBlockStore interface {
	SetMine(cells []model.Cell)
	SetOthers(cells []model.Cell)
	Replace(mine, others []model.Cell)
	AddMine(cell model.Cell)
	RemoveMine(cellID string)
	UpsertOthers(cell model.Cell)
	RemoveOthers(cellID string)
	ApplyTakeover(cellID string, fromDogID, toDogID model.DogID, byMe bool, at time.Time) (matched bool)
	Snapshot() model.BlockSnapshot
}
