package core

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/klog/v2"

	"water_service/internal/domain/model"
	"water_service/internal/infrastructure/telemetry"
)

// ProjectionService wraps the engine with tracing, metrics and the optional
// request audit and region lookup collaborators.
type ProjectionService struct {
	engine   ProjectionEngine
	recorder RequestRecorder
	regions  RegionFinder
	tracer   trace.Tracer
	now      func() time.Time
}

// NewProjectionService builds a service. recorder and regions may be nil to
// disable request auditing and region lookups.
func NewProjectionService(recorder RequestRecorder, regions RegionFinder) *ProjectionService {
	return &ProjectionService{
		recorder: recorder,
		regions:  regions,
		tracer:   telemetry.Tracer(),
		now:      time.Now,
	}
}

// Project computes the demand horizon for in. The calculation itself cannot
// fail; an error is returned only when ctx is already done.
func (s *ProjectionService) Project(ctx context.Context, in model.InputParameters, source string) (model.ProjectionResult, error) {
	if err := ctx.Err(); err != nil {
		return model.ProjectionResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "ProjectionService.Project",
		trace.WithAttributes(
			attribute.String("water.region", in.Region),
			attribute.Int("water.base_year", in.BaseYear),
			attribute.String("water.source", source),
		),
	)
	defer span.End()

	start := s.now()
	result := s.engine.Project(in)
	telemetry.ObserveProjection(source, s.now().Sub(start))

	if s.recorder != nil {
		rec := model.RequestRecord{Input: in, ReceivedAt: start, Source: source}
		if err := s.recorder.RecordRequest(ctx, rec); err != nil {
			// Auditing must not turn a valid calculation into a failure.
			telemetry.IncRecordFailure()
			span.RecordError(err)
			klog.ErrorS(err, "Failed to record calculation request", "region", in.Region, "source", source)
		}
	}

	klog.V(4).InfoS("Projection computed", "region", in.Region, "baseYear", in.BaseYear, "years", len(result.Parameters))
	return result, nil
}

// LookupRegion returns population data for a named region.
func (s *ProjectionService) LookupRegion(ctx context.Context, name string) (model.RegionInfo, error) {
	if s.regions == nil {
		telemetry.IncRegionLookup("disabled")
		return model.RegionInfo{}, model.ErrRegionLookupDisabled
	}

	ctx, span := s.tracer.Start(ctx, "ProjectionService.LookupRegion",
		trace.WithAttributes(attribute.String("water.region", name)),
	)
	defer span.End()

	info, err := s.regions.FindRegion(ctx, name)
	switch {
	case err == nil:
		telemetry.IncRegionLookup("found")
	case errors.Is(err, model.ErrRegionNotFound):
		telemetry.IncRegionLookup("not_found")
	default:
		telemetry.IncRegionLookup("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "region lookup failed")
	}
	return info, err
}
