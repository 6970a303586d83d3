package domain

import "math"

// Calculator thresholds.
const (
	diseaseMinRainMm  = 0.2
	diseaseMinTempC   = 18.0
	diseaseMaxTempC   = 25.0
	diseaseHighRatio  = 0.5
	diseaseMedRatio   = 0.2
	sprayMaxWindKmh   = 10.0
	radiationToMJ     = 0.0864 // W/m² daily mean → MJ/m²/day
	radiationFloorMJ  = 10.0
	hargreavesCoeff   = 0.0023
	hargreavesTOffset = 17.8
)

// ComputeMetrics runs every calculator over the in-range records and their
// day buckets. Empty input yields zero metrics and LOW risk.
func ComputeMetrics(records []NormalizedRecord, days []*DailyBucket, params AgroReportParams) MetricsBundle {
	eto := ReferenceEvapotranspiration(days)
	return MetricsBundle{
		GDD:            GrowingDegreeDays(days, params.CropBaseTempC),
		StressHours:    CountStressHours(records, params.CropBaseTempC, params.CropMaxTempC),
		WaterBalance:   ComputeWaterBalance(records, eto),
		ETo:            eto,
		DiseaseRisk:    ClassifyDiseaseRisk(days),
		OptimalWindows: CountOptimalWindows(records),
	}
}

// DailyGDD is one day's degree-day contribution, clamped at zero.
func DailyGDD(tMax, tMin, baseTemp float64) float64 {
	return math.Max(0, (tMax+tMin)/2-baseTemp)
}

// GrowingDegreeDays accumulates DailyGDD over all days.
func GrowingDegreeDays(days []*DailyBucket, baseTemp float64) float64 {
	var total float64
	for _, d := range days {
		if len(d.Records) == 0 {
			continue
		}
		total += DailyGDD(d.TMax, d.TMin, baseTemp)
	}
	return Round2(total)
}

// CountStressHours counts hourly readings above maxTemp and below baseTemp.
// With maxTemp < baseTemp a single reading can count for both.
func CountStressHours(records []NormalizedRecord, baseTemp, maxTemp float64) StressHours {
	var s StressHours
	for _, r := range records {
		if r.TemperatureC > maxTemp {
			s.Heat++
		}
		if r.TemperatureC < baseTemp {
			s.Cold++
		}
	}
	return s
}

// DailyETo estimates one day's reference evapotranspiration in mm.
func DailyETo(d *DailyBucket) float64 {
	tMean := (d.TMax + d.TMin) / 2
	ra := d.AvgRadiation * radiationToMJ
	if ra == 0 {
		ra = radiationFloorMJ
	}
	return hargreavesCoeff * ra * (tMean + hargreavesTOffset) * math.Sqrt(math.Max(0, d.TMax-d.TMin))
}

// ReferenceEvapotranspiration sums DailyETo over all days, skipping NaN days.
func ReferenceEvapotranspiration(days []*DailyBucket) float64 {
	var total float64
	for _, d := range days {
		if len(d.Records) == 0 {
			continue
		}
		eto := DailyETo(d)
		if math.IsNaN(eto) {
			continue
		}
		total += eto
	}
	return Round2(total)
}

// ComputeWaterBalance compares total precipitation with the ETo total. The
// balance is derived from the rounded operands so the identity
// Balance == TotalInput - TotalOutput holds at two decimals.
func ComputeWaterBalance(records []NormalizedRecord, eto float64) WaterBalance {
	var rain float64
	for _, r := range records {
		rain += r.PrecipitationMm
	}
	in := Round2(rain)
	out := Round2(eto)
	return WaterBalance{
		TotalInput:  in,
		TotalOutput: out,
		Balance:     Round2(in - out),
	}
}

// IsDiseaseRiskDay reports whether a day is wet and mild enough for fungal
// infection.
func IsDiseaseRiskDay(d *DailyBucket) bool {
	return d.TotalPrecipitation > diseaseMinRainMm &&
		d.AvgTemp >= diseaseMinTempC && d.AvgTemp <= diseaseMaxTempC
}

// ClassifyDiseaseRisk rates the share of risky days.
func ClassifyDiseaseRisk(days []*DailyBucket) RiskLevel {
	var total, risky int
	for _, d := range days {
		if len(d.Records) == 0 {
			continue
		}
		total++
		if IsDiseaseRiskDay(d) {
			risky++
		}
	}
	if total == 0 {
		return RiskLow
	}
	return RiskFromRatio(float64(risky) / float64(total))
}

// RiskFromRatio maps a risky-day ratio onto a RiskLevel. It is monotonic.
func RiskFromRatio(ratio float64) RiskLevel {
	switch {
	case ratio > diseaseHighRatio:
		return RiskHigh
	case ratio > diseaseMedRatio:
		return RiskMedium
	default:
		return RiskLow
	}
}

// CountOptimalWindows counts spray-suitable hours. Missing wind readings
// count as calm.
func CountOptimalWindows(records []NormalizedRecord) OptimalWindows {
	var w OptimalWindows
	for _, r := range records {
		wind := 0.0
		if r.WindSpeedKmh != nil {
			wind = *r.WindSpeedKmh
		}
		if wind < sprayMaxWindKmh && r.PrecipitationMm == 0 {
			w.SprayHours++
		}
	}
	return w
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
