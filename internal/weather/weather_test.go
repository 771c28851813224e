package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/awaistahir/skyplan/internal/engine"
	"github.com/awaistahir/skyplan/internal/lookup"
)

const forecastJSON = `{
	"cod": "200",
	"list": [
		{"dt": 1733011200, "main": {"temp": 9.5}, "wind": {"speed": 4.1}, "weather": [{"main": "Rain", "description": "light rain"}], "rain": {"3h": 0.8}},
		{"dt": 1733022000, "main": {"temp": 11.0}, "wind": {"speed": 5.0}, "weather": [{"main": "Clouds", "description": "broken clouds"}]}
	],
	"city": {"name": "Dublin", "coord": {"lat": 53.3498, "lon": -6.2603}, "timezone": 0}
}`

const airJSON = `{"list": [{"dt": 1733011200, "main": {"aqi": 3}, "components": {"pm2_5": 15.2, "no2": 12.0, "o3": 30.1}}]}`

func testPolicy() lookup.Policy {
	return lookup.Policy{Timeout: time.Second}
}

func newTestServer(t *testing.T, forecast, air http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/forecast", forecast)
	mux.HandleFunc("/air_pollution", air)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func TestForecastByCity(t *testing.T) {
	var forecastQuery string
	srv := newTestServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			forecastQuery = r.URL.RawQuery
			writeBody(forecastJSON)(w, r)
		},
		writeBody(airJSON),
	)

	c := NewClient("owm-key", 0).WithBaseURL(srv.URL).WithPolicy(testPolicy())
	report, err := c.ForecastByCity(context.Background(), "Dublin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"q=Dublin", "units=metric", "cnt=24", "appid=owm-key"} {
		if !strings.Contains(forecastQuery, want) {
			t.Errorf("query %q missing %q", forecastQuery, want)
		}
	}

	if report.City != "Dublin" || report.Coordinates.Lat != 53.3498 {
		t.Errorf("unexpected report header: %+v", report)
	}
	if len(report.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(report.Records))
	}
	first := report.Records[0]
	if first.TempC != 9.5 || first.WindMps != 4.1 || first.RainMM3h != 0.8 || first.Condition != "light rain" {
		t.Errorf("first record = %+v", first)
	}
	if report.Records[1].RainMM3h != 0 {
		t.Errorf("missing rain should be 0, got %f", report.Records[1].RainMM3h)
	}
	if report.Air == nil || report.Air.AQI != 3 {
		t.Fatalf("air = %+v, want AQI 3", report.Air)
	}
	if !strings.Contains(report.AirWarning, "Moderate") || !strings.Contains(report.AirWarning, "PM2.5") {
		t.Errorf("air warning = %q", report.AirWarning)
	}
}

func TestForecastAirFailureIsTolerated(t *testing.T) {
	srv := newTestServer(t,
		writeBody(forecastJSON),
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	)

	c := NewClient("owm-key", 0).WithBaseURL(srv.URL).WithPolicy(testPolicy())
	report, err := c.ForecastByCoordinates(context.Background(), engine.Coordinates{Lat: 53.35, Lon: -6.26})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Air != nil || report.AirWarning != "" {
		t.Errorf("expected no air data, got %+v / %q", report.Air, report.AirWarning)
	}
}

func TestForecastErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "city not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"cod":"404","message":"city not found"}`)
			},
			wantErr: engine.ErrInvalidInput,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr: ErrUpstream,
		},
		{
			name:    "missing list",
			handler: writeBody(`{"cod":"200","city":{"name":"Dublin"}}`),
			wantErr: ErrUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.handler, writeBody(airJSON))
			c := NewClient("owm-key", 0).WithBaseURL(srv.URL).WithPolicy(testPolicy())

			_, err := c.ForecastByCity(context.Background(), "Nowhere")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestForecastWithoutAPIKey(t *testing.T) {
	_, err := NewClient("", 0).ForecastByCity(context.Background(), "Dublin")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("got %v, want ErrNoAPIKey", err)
	}
}

func TestParseForecast(t *testing.T) {
	report, err := ParseForecast(strings.NewReader(forecastJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Records) != 2 || report.Air != nil {
		t.Errorf("unexpected report: %+v", report)
	}

	_, err = ParseForecast(strings.NewReader(`{"list": [{"dt": 1733011200}], "city": {"name": "X"}}`))
	if !errors.Is(err, engine.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}
