package enhance

import (
	"math"

	"github.com/uniedit/enhancer/internal/model"
)

// Cost returns the credit price of running m with the given options.
func Cost(m *model.ModelDescriptor, scale int, faceEnhance bool) float64 {
	cost := m.Pricing.Base
	if scale == 4 {
		cost += m.Pricing.Scale4
	}
	if faceEnhance {
		cost += m.Pricing.FaceEnhance
	}
	return model.FromTenths(model.ToTenths(math.Max(0, cost)))
}

// SplitCharge covers cost from the monthly allowance first and charges the
// remainder to credits, rounded half up to the nearest tenth. The plan
// portion is floored to whole tenths so it never exceeds monthlyRemaining.
func SplitCharge(cost, monthlyRemaining float64) model.Charge {
	if cost <= 0 || math.IsNaN(cost) {
		return model.Charge{}
	}
	if math.IsNaN(monthlyRemaining) || monthlyRemaining < 0 {
		monthlyRemaining = 0
	}

	plan := floorTenths(math.Min(cost, monthlyRemaining))
	credits := roundTenthsHalfUp(cost - plan)
	if credits < 0 {
		credits = 0
	}
	return model.Charge{
		Total:          cost,
		PlanPortion:    plan,
		CreditsPortion: credits,
	}
}

// roundTenthsHalfUp rounds x to one decimal, with exact .x5 going up. x*10 is
// first snapped to 1e-6 so binary noise such as 3.4999999999999996 counts as
// the half it represents.
func roundTenthsHalfUp(x float64) float64 {
	scaled := math.Round(x*10*1e6) / 1e6
	return math.Floor(scaled+0.5) / 10
}

// floorTenths truncates x to one decimal, using the same 1e-6 snap as
// roundTenthsHalfUp.
func floorTenths(x float64) float64 {
	scaled := math.Round(x*10*1e6) / 1e6
	return math.Floor(scaled) / 10
}
