package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// ForecastRecord is a single 3-hour forecast step
type ForecastRecord struct {
	Timestamp int64   `json:"timestamp"`    // epoch seconds
	TempC     float64 `json:"temperature"`  // Celsius
	WindMps   float64 `json:"windSpeed"`    // meters per second
	RainMM3h  float64 `json:"rainVolume3h"` // mm over the 3h step, 0 when absent
	Condition string  `json:"conditionText"`
}

// UnmarshalJSON rejects records missing a required field. rainVolume3h is
// optional and defaults to 0.
func (r *ForecastRecord) UnmarshalJSON(b []byte) error {
	var raw struct {
		Timestamp *int64   `json:"timestamp"`
		TempC     *float64 `json:"temperature"`
		WindMps   *float64 `json:"windSpeed"`
		RainMM3h  *float64 `json:"rainVolume3h"`
		Condition *string  `json:"conditionText"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch {
	case raw.Timestamp == nil:
		return fmt.Errorf("%w: missing timestamp", ErrInvalidInput)
	case raw.TempC == nil:
		return fmt.Errorf("%w: missing temperature", ErrInvalidInput)
	case raw.WindMps == nil:
		return fmt.Errorf("%w: missing windSpeed", ErrInvalidInput)
	case raw.Condition == nil:
		return fmt.Errorf("%w: missing conditionText", ErrInvalidInput)
	}

	*r = ForecastRecord{
		Timestamp: *raw.Timestamp,
		TempC:     *raw.TempC,
		WindMps:   *raw.WindMps,
		Condition: *raw.Condition,
	}
	if raw.RainMM3h != nil {
		r.RainMM3h = *raw.RainMM3h
	}
	return nil
}

// Coordinates is a point used for place lookups
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

var errMissingCoordinates = fmt.Errorf("%w: missing coordinates", ErrInvalidInput)

// UnmarshalJSON requires both lat and lon
func (c *Coordinates) UnmarshalJSON(b []byte) error {
	var raw struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Lat == nil || raw.Lon == nil {
		return errMissingCoordinates
	}
	c.Lat, c.Lon = *raw.Lat, *raw.Lon
	return nil
}

// DailyGroup holds the records that fall on one calendar day
type DailyGroup struct {
	Date    time.Time // midnight in the grouping location
	Records []ForecastRecord
}

// DailySummary is the reduced weather for one day
type DailySummary struct {
	Date        time.Time `json:"-"`
	AvgTempC    float64   `json:"avgTemp"`
	MinTempC    float64   `json:"minTemp"`
	MaxTempC    float64   `json:"maxTemp"`
	AvgWindKmh  float64   `json:"avgWindKmh"`
	TotalRainMM float64   `json:"totalRainMm"`
	AvgRainMM   float64   `json:"avgRainMm"`
	Condition   string    `json:"conditionText"`
}

// Suitability flags derived from a DailySummary
type Suitability struct {
	Rainy bool `json:"isRainy"`
	Hot   bool `json:"isHot"`
	Cold  bool `json:"isCold"`
	Windy bool `json:"isWindy"`
}

// AirQuality is one air pollution sample
type AirQuality struct {
	AQI        int                `json:"aqi"`        // 1 (good) to 5 (very poor)
	Components map[string]float64 `json:"components"` // µg/m³ keyed by pollutant, e.g. "pm2_5"
}

// PlaceCategory is the place type requested from the places service
type PlaceCategory string

const (
	CategoryMuseum     PlaceCategory = "museum"
	CategoryPark       PlaceCategory = "park"
	CategoryRestaurant PlaceCategory = "restaurant"
	CategoryAttraction PlaceCategory = "tourist_attraction"
	CategoryCafe       PlaceCategory = "cafe"
	CategoryShopping   PlaceCategory = "shopping_mall"
	CategoryNightlife  PlaceCategory = "bar"
)

// Label returns the human-readable name of the category
func (c PlaceCategory) Label() string {
	switch c {
	case CategoryMuseum:
		return "Museum"
	case CategoryPark:
		return "Park"
	case CategoryRestaurant:
		return "Restaurant"
	case CategoryAttraction:
		return "Tourist Attraction"
	case CategoryCafe:
		return "Cafe"
	case CategoryShopping:
		return "Shopping Centre"
	case CategoryNightlife:
		return "Nightlife"
	default:
		return "Place"
	}
}

// Keyword returns the free-text search term for the category
func (c PlaceCategory) Keyword() string {
	switch c {
	case CategoryAttraction:
		return "tourist attraction"
	case CategoryShopping:
		return "shopping centre"
	case CategoryNightlife:
		return "bar"
	default:
		return string(c)
	}
}

// Rating is a venue rating that may be unknown
type Rating struct {
	Value float64
	Known bool
}

// UnknownSentinel is what unknown ratings and open states serialize to
const UnknownSentinel = "unknown"

// KnownRating wraps a rating value
func KnownRating(v float64) Rating {
	return Rating{Value: v, Known: true}
}

func (r Rating) MarshalJSON() ([]byte, error) {
	if !r.Known {
		return json.Marshal(UnknownSentinel)
	}
	return json.Marshal(r.Value)
}

func (r *Rating) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		*r = Rating{}
		return nil
	}
	*r = KnownRating(v)
	return nil
}

// OpenNow is a venue's open state that may be unknown
type OpenNow struct {
	Value bool
	Known bool
}

func (o OpenNow) MarshalJSON() ([]byte, error) {
	if !o.Known {
		return json.Marshal(UnknownSentinel)
	}
	return json.Marshal(o.Value)
}

func (o *OpenNow) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		*o = OpenNow{}
		return nil
	}
	*o = OpenNow{Value: v, Known: true}
	return nil
}

// VenueSource records whether a venue came from the places service
type VenueSource string

const (
	SourcePlaces   VenueSource = "places"
	SourceFallback VenueSource = "fallback"
)

// Venue is a recommended place; every field is always populated
type Venue struct {
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	Category string      `json:"category"`
	Rating   Rating      `json:"rating"`
	OpenNow  OpenNow     `json:"openNow"`
	Source   VenueSource `json:"source"`
}

// TimeSlot is one part of a day with a single recommended venue
type TimeSlot struct {
	Label     string        `json:"label"`
	Activity  string        `json:"activity"`
	Category  PlaceCategory `json:"category"`
	Venue     Venue         `json:"venue"`
	Rationale string        `json:"rationale"`
}

// DayPlan is the suggested schedule for one forecast day
type DayPlan struct {
	Day         int          `json:"day"`  // 1-based
	Date        string       `json:"date"` // YYYY-MM-DD
	Summary     DailySummary `json:"weather"`
	Suitability Suitability  `json:"suitability"`
	Narrative   string       `json:"narrative"`
	Slots       []TimeSlot   `json:"slots"`
}

// Itinerary is the full plan returned to the caller
type Itinerary struct {
	City       string    `json:"city,omitempty"`
	AirWarning string    `json:"airWarning,omitempty"`
	Days       []DayPlan `json:"days"`
}

// Location is a named point saved for repeat planning
type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	CreatedAt time.Time `json:"createdAt"`
}

// Coordinates returns the location as a forecast point
func (l Location) Coordinates() Coordinates {
	return Coordinates{Lat: l.Latitude, Lon: l.Longitude}
}
