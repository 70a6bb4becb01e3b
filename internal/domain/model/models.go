package model

import (
	"errors"
	"time"
)

// InputParameters is a snapshot of current conditions for one region.
type InputParameters struct {
	Region           string  `json:"region"`
	PopulationSize   int64   `json:"population_size"`
	GPCD             float64 `json:"gpcd"`              // gallons per capita per day
	PlantFactor      float64 `json:"plant_factor"`      // expected in [0, 1], not enforced
	Precipitation    float64 `json:"precipitation"`     // percent
	CultivatedLand   float64 `json:"cultivated_land"`   // percent change
	DemographicShift float64 `json:"demographic_shift"` // percent change
	BaseYear         int     `json:"base_year"`
}

// YearlyProjection is the demand estimate for a single year of the horizon, in BMC.
type YearlyProjection struct {
	Year                 int     `json:"year"`
	Baseline             float64 `json:"baseline"`
	PredictedRequirement float64 `json:"predicted_requirement"`
	ActualRequirement    float64 `json:"actual_requirement"`
}

type ProjectionResult struct {
	Region     string             `json:"region"`
	Parameters []YearlyProjection `json:"parameters"`
}

// RequestRecord is an audit entry for an accepted calculation request.
// Only the inputs are kept.
type RequestRecord struct {
	Input      InputParameters
	ReceivedAt time.Time
	Source     string
}

// RegionInfo describes an administrative boundary found in OpenStreetMap.
type RegionInfo struct {
	Name       string `json:"region"`
	OSMID      int64  `json:"osm_id"`
	AdminLevel int    `json:"admin_level"`
	Population int64  `json:"population"`
}

var (
	ErrRegionNotFound       = errors.New("region not found")
	ErrRegionLookupDisabled = errors.New("region lookup is disabled")
)
