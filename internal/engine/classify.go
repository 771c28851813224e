package engine

import (
	"fmt"
	"strings"
)

const (
	hotAboveC     = 24.0
	coldBelowC    = 8.0
	windyAboveKmh = 30.0
)

// Classify derives suitability flags from a day's weather
func Classify(s DailySummary) Suitability {
	return Suitability{
		Rainy: s.TotalRainMM > 0,
		Hot:   s.AvgTempC > hotAboveC,
		Cold:  s.AvgTempC < coldBelowC,
		Windy: s.AvgWindKmh > windyAboveKmh,
	}
}

type airTier struct {
	label string
	risk  string
}

// airTiers maps AQI 2-5 to a severity label and advice. AQI 1 has no warning.
var airTiers = map[int]airTier{
	2: {"Fair", "Air quality is acceptable; unusually sensitive people should consider limiting prolonged outdoor exertion."},
	3: {"Moderate", "Sensitive groups may experience health effects; consider shorter outdoor activities."},
	4: {"Poor", "Everyone may begin to experience health effects; prefer indoor activities."},
	5: {"Very Poor", "Health alert: avoid prolonged outdoor activity."},
}

type pollutantAlert struct {
	key       string // component key as reported by the air pollution API
	name      string
	threshold float64 // µg/m³
}

// pollutantAlerts are checked in this order
var pollutantAlerts = []pollutantAlert{
	{"pm2_5", "PM2.5", 10},
	{"no2", "NO₂", 40},
	{"o3", "O₃", 60},
}

// PoorAirAQI is the first AQI tier at which outdoor slots move indoors
const PoorAirAQI = 4

// ClassifyAir returns a warning for the air sample, or "" when there is
// nothing to warn about or the AQI is outside 1..5.
func ClassifyAir(aq *AirQuality) string {
	if aq == nil {
		return ""
	}
	tier, ok := airTiers[aq.AQI]
	if !ok {
		return ""
	}

	warning := fmt.Sprintf("%s: %s", tier.label, tier.risk)

	var elevated []string
	for _, p := range pollutantAlerts {
		if v, ok := aq.Components[p.key]; ok && v > p.threshold {
			elevated = append(elevated, fmt.Sprintf("%s %.1f µg/m³", p.name, v))
		}
	}
	if len(elevated) > 0 {
		warning += " Elevated: " + strings.Join(elevated, ", ")
	}

	return warning
}
