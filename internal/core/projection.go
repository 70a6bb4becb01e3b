package core

import (
	"iter"

	"water_service/internal/domain/model"
)

const (
	// HorizonYears is the number of yearly projections, offsets 0 through 5.
	HorizonYears = 6

	populationGrowthPerYear   = 2500
	precipitationDecayPerYear = 0.05
)

// YearInputs holds the time-varying inputs for one offset of the horizon.
type YearInputs struct {
	Offset        int
	Year          int
	Population    int64
	Precipitation float64
}

// ProjectionEngine steps the demand model across the fixed horizon. Population
// grows and precipitation decays linearly from the base values; every other
// input is held constant. It has no state, the zero value is ready to use.
type ProjectionEngine struct{}

// Horizon yields the inputs for each offset in ascending order. Each offset is
// derived from the base values, never from the previous offset. The sequence
// can be ranged over any number of times.
func (ProjectionEngine) Horizon(in model.InputParameters) iter.Seq[YearInputs] {
	return func(yield func(YearInputs) bool) {
		for offset := 0; offset < HorizonYears; offset++ {
			y := YearInputs{
				Offset:        offset,
				Year:          in.BaseYear + offset,
				Population:    in.PopulationSize + populationGrowthPerYear*int64(offset),
				Precipitation: in.Precipitation * decayFactor(offset),
			}
			if !yield(y) {
				return
			}
		}
	}
}

// Project computes the yearly projections for in.
func (e ProjectionEngine) Project(in model.InputParameters) model.ProjectionResult {
	result := model.ProjectionResult{
		Region:     in.Region,
		Parameters: make([]model.YearlyProjection, 0, HorizonYears),
	}
	for y := range e.Horizon(in) {
		result.Parameters = append(result.Parameters, ProjectYear(in, y))
	}
	return result
}

// ProjectYear runs baseline, predicted and actual for a single year.
func ProjectYear(in model.InputParameters, y YearInputs) model.YearlyProjection {
	baseline := Baseline(y.Population, in.GPCD, in.PlantFactor)
	predicted := Predicted(baseline, in.DemographicShift, y.Precipitation)
	actual := Actual(predicted, in.CultivatedLand)

	return model.YearlyProjection{
		Year:                 y.Year,
		Baseline:             baseline,
		PredictedRequirement: predicted,
		ActualRequirement:    actual,
	}
}

func decayFactor(offset int) float64 {
	// The conversion rounds the product so it is never fused into the subtraction.
	return 1 - float64(precipitationDecayPerYear*float64(offset))
}
