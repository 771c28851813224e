package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// DefaultMaxDays caps how many forecast days end up in an itinerary
const DefaultMaxDays = 3

// msToKmh converts meters per second to kilometres per hour
const msToKmh = 3.6

// GroupByDay buckets forecast records into calendar days in loc and keeps
// the first maxDays of them in chronological order. A nil loc means UTC.
func GroupByDay(records []ForecastRecord, loc *time.Location, maxDays int) ([]DailyGroup, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no forecast records", ErrInvalidInput)
	}
	if loc == nil {
		loc = time.UTC
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}

	for i, r := range records {
		if err := validateRecord(r); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidInput, i, err)
		}
	}

	sorted := make([]ForecastRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	groups := []DailyGroup{}
	for _, r := range sorted {
		day := dayStart(r.Timestamp, loc)
		if n := len(groups); n > 0 && groups[n-1].Date.Equal(day) {
			groups[n-1].Records = append(groups[n-1].Records, r)
			continue
		}
		groups = append(groups, DailyGroup{Date: day, Records: []ForecastRecord{r}})
	}

	if len(groups) > maxDays {
		groups = groups[:maxDays]
	}

	return groups, nil
}

// dayStart returns midnight of the calendar day containing ts in loc
func dayStart(ts int64, loc *time.Location) time.Time {
	t := time.Unix(ts, 0).In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func validateRecord(r ForecastRecord) error {
	if r.Timestamp <= 0 {
		return errors.New("missing timestamp")
	}
	if !isFinite(r.TempC) {
		return errors.New("temperature is not a number")
	}
	if !isFinite(r.WindMps) || r.WindMps < 0 {
		return errors.New("wind speed must be a non-negative number")
	}
	if !isFinite(r.RainMM3h) || r.RainMM3h < 0 {
		return errors.New("rain volume must be a non-negative number")
	}
	return nil
}

// ValidateCoordinates checks that c is a usable point on the globe
func ValidateCoordinates(c *Coordinates) error {
	if c == nil {
		return fmt.Errorf("%w: missing coordinates", ErrInvalidInput)
	}
	if !isFinite(c.Lat) || !isFinite(c.Lon) {
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidInput)
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: coordinates out of range (%.4f, %.4f)", ErrInvalidInput, c.Lat, c.Lon)
	}
	return nil
}

// Summarize reduces a day's records into a DailySummary
func Summarize(group DailyGroup) (DailySummary, error) {
	n := len(group.Records)
	if n == 0 {
		return DailySummary{}, fmt.Errorf("%w: empty daily group", ErrInternal)
	}

	first := group.Records[0]
	sum := DailySummary{
		Date:      group.Date,
		MinTempC:  first.TempC,
		MaxTempC:  first.TempC,
		Condition: first.Condition,
	}

	totalTemp, totalWind := 0.0, 0.0
	for _, r := range group.Records {
		totalTemp += r.TempC
		totalWind += r.WindMps
		sum.TotalRainMM += r.RainMM3h
		if r.TempC < sum.MinTempC {
			sum.MinTempC = r.TempC
		}
		if r.TempC > sum.MaxTempC {
			sum.MaxTempC = r.TempC
		}
	}

	sum.AvgTempC = totalTemp / float64(n)
	sum.AvgWindKmh = totalWind / float64(n) * msToKmh
	sum.AvgRainMM = sum.TotalRainMM / float64(n)

	return sum, nil
}

// Describe renders a one-line description of the day's weather
func Describe(s DailySummary) string {
	desc := fmt.Sprintf("%s, averaging %.1f°C (%.1f to %.1f°C) with %.1f km/h winds",
		s.Condition, s.AvgTempC, s.MinTempC, s.MaxTempC, s.AvgWindKmh)
	if s.TotalRainMM > 0 {
		desc += fmt.Sprintf(" and %.1f mm of rain", s.TotalRainMM)
	}
	return desc
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
