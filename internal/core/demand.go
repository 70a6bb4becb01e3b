package core

// baselineScale is a second ×100 applied after ToBMC. Together with bmcScale
// the baseline is 1e4 times the plain unit conversion. Both factors are kept
// for output compatibility; the intended scale is unknown.
const baselineScale = 100

// Baseline returns demand in BMC implied by population, per-capita use and the
// plant factor, before any climate or land-use adjustment.
func Baseline(population int64, gpcd, plantFactor float64) float64 {
	gallons := float64(population) * gpcd * plantFactor
	return ToBMC(gallons) * baselineScale
}

// Predicted adjusts a baseline for demographic shift and precipitation, both
// given in percent. More rainfall lowers the requirement.
func Predicted(baselineBMC, demographicShiftPct, precipitationPct float64) float64 {
	return baselineBMC * (1 + demographicShiftPct/100) * (1 - precipitationPct/100)
}

// Actual adjusts a predicted requirement for the change in cultivated land, in percent.
func Actual(predictedBMC, cultivatedLandPct float64) float64 {
	return predictedBMC * (1 + cultivatedLandPct/100)
}
