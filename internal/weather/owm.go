package weather

import (
	"errors"
	"fmt"

	"github.com/awaistahir/skyplan/internal/engine"
)

// ListEntry is one element of an OpenWeatherMap forecast "list"
type ListEntry struct {
	Dt   int64 `json:"dt"`
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Rain *struct {
		ThreeHour float64 `json:"3h"`
	} `json:"rain,omitempty"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// Record converts the entry, failing when a required field is absent
func (e ListEntry) Record() (engine.ForecastRecord, error) {
	if e.Dt == 0 {
		return engine.ForecastRecord{}, errors.New("missing dt")
	}
	if e.Main == nil || e.Main.Temp == nil {
		return engine.ForecastRecord{}, errors.New("missing main.temp")
	}
	if e.Wind == nil || e.Wind.Speed == nil {
		return engine.ForecastRecord{}, errors.New("missing wind.speed")
	}

	r := engine.ForecastRecord{
		Timestamp: e.Dt,
		TempC:     *e.Main.Temp,
		WindMps:   *e.Wind.Speed,
	}
	if e.Rain != nil {
		r.RainMM3h = e.Rain.ThreeHour
	}
	if len(e.Weather) > 0 {
		r.Condition = e.Weather[0].Description
		if r.Condition == "" {
			r.Condition = e.Weather[0].Main
		}
	}
	return r, nil
}

// Records converts a forecast list. Errors wrap engine.ErrInvalidInput.
func Records(entries []ListEntry) ([]engine.ForecastRecord, error) {
	records := make([]engine.ForecastRecord, 0, len(entries))
	for i, e := range entries {
		r, err := e.Record()
		if err != nil {
			return nil, fmt.Errorf("%w: weatherData[%d]: %v", engine.ErrInvalidInput, i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// forecastResponse is the /data/2.5/forecast document
type forecastResponse struct {
	Cod  any         `json:"cod"`
	List []ListEntry `json:"list"`
	City *struct {
		Name  string `json:"name"`
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
		Timezone int `json:"timezone"` // seconds from UTC
	} `json:"city"`
}

// airResponse is the /data/2.5/air_pollution document
type airResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components map[string]float64 `json:"components"`
	} `json:"list"`
}
