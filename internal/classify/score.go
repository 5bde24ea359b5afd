package classify

import (
	"math"
	"sort"
)

// Contribution is the number of risk points one vital adds to the score.
type Contribution struct {
	Feature string  `json:"feature"`
	Points  float64 `json:"points"`
}

// band describes how far a vital may stray from its healthy midpoint before
// it starts adding risk, and how quickly it saturates.
type band struct {
	feature   string
	midpoint  float64
	tolerance float64
	span      float64
	weight    float64
	lowOnly   bool // only values below the midpoint count
}

// Weights sum to 100 so a fully deranged patient scores 100.
var (
	hrBand       = band{feature: FieldHeartRate, midpoint: 80, tolerance: 20, span: 50, weight: 30}
	spo2Band     = band{feature: FieldSpO2, midpoint: 98, tolerance: 2, span: 10, weight: 35, lowOnly: true}
	tempBand     = band{feature: FieldTemperature, midpoint: 37.0, tolerance: 0.8, span: 2.5, weight: 20}
	systolicBand = band{feature: FieldBloodPressure, midpoint: 120, tolerance: 20, span: 60, weight: 15}
)

// deviation is 0 inside the tolerance band, rising linearly to 1 at
// tolerance+span away from the midpoint.
func (b band) deviation(x float64) float64 {
	d := x - b.midpoint
	if b.lowOnly {
		d = -d
	} else {
		d = math.Abs(d)
	}
	d = (d - b.tolerance) / b.span
	return math.Max(0, math.Min(1, d))
}

func (b band) points(x float64) float64 {
	return b.weight * b.deviation(x)
}

// riskScore returns the clipped 0..100 score and the per-vital points,
// highest first with ties in feature name order.
func riskScore(r reading) (int, []Contribution) {
	contrib := []Contribution{
		{Feature: hrBand.feature, Points: round1(hrBand.points(float64(r.hr)))},
		{Feature: systolicBand.feature, Points: round1(systolicBand.points(float64(r.bp.Systolic)))},
		{Feature: spo2Band.feature, Points: round1(spo2Band.points(r.spo2))},
		{Feature: tempBand.feature, Points: round1(tempBand.points(r.temp))},
	}

	total := hrBand.points(float64(r.hr)) +
		systolicBand.points(float64(r.bp.Systolic)) +
		spo2Band.points(r.spo2) +
		tempBand.points(r.temp)

	sort.SliceStable(contrib, func(i, j int) bool {
		if contrib[i].Points != contrib[j].Points {
			return contrib[i].Points > contrib[j].Points
		}
		return contrib[i].Feature < contrib[j].Feature
	})

	score := int(math.Round(total))
	return min(max(score, 0), 100), contrib
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
