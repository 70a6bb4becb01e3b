package core

import (
	"context"

	"water_service/internal/domain/model"
)

// RequestRecorder persists the inputs of accepted calculation requests.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, rec model.RequestRecord) error
}

// RegionFinder resolves a region name to population data.
type RegionFinder interface {
	FindRegion(ctx context.Context, name string) (model.RegionInfo, error)
}
