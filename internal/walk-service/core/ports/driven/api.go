package driven

import (
	"context"

	"pawwalk/internal/walk-service/core/domain/dto"
	"pawwalk/internal/walk-service/core/domain/model"
)

// IWalkAPI is the REST backend that owns walks and blocks.
type IWalkAPI interface {
	StartWalk(ctx context.Context, req dto.StartWalkRequest) (dto.StartWalkResponse, error)
	EndWalk(ctx context.Context, walkID string, req dto.EndWalkRequest) (dto.EndWalkResponse, error)
	NearbyBlocks(ctx context.Context, center model.GeoPoint, radiusM int) ([]dto.BlockDTO, error)
	MyBlocks(ctx context.Context) ([]dto.BlockDTO, error)
}

// IFileUploader stores a file through the presigned-upload flow and returns its object key.
type IFileUploader interface {
	UploadImage(ctx context.Context, fileName, contentType string, data []byte) (string, error)
}
