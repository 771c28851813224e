package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/awaistahir/skyplan/internal/engine"
	"github.com/awaistahir/skyplan/internal/lookup"
)

const openWeatherAPIBase = "https://api.openweathermap.org/data/2.5"

// DefaultRecords is how many 3-hour steps are requested (about 3 days)
const DefaultRecords = 24

var (
	// ErrUpstream means the forecast could not be fetched
	ErrUpstream = errors.New("weather service unavailable")
	// ErrNoAPIKey is returned when no OpenWeatherMap key is configured
	ErrNoAPIKey = errors.New("server configuration error: missing OpenWeatherMap API key")
)

// Report is the weather input for one itinerary
type Report struct {
	City        string                  `json:"city"`
	Coordinates engine.Coordinates      `json:"coordinates"`
	Records     []engine.ForecastRecord `json:"list"`
	Air         *engine.AirQuality      `json:"air,omitempty"`
	AirWarning  string                  `json:"airWarning,omitempty"`
}

// Client fetches forecasts and air quality from OpenWeatherMap
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	records    int
	policy     lookup.Policy
}

// NewClient creates an OpenWeatherMap client
func NewClient(apiKey string, records int) *Client {
	if records <= 0 {
		records = DefaultRecords
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    openWeatherAPIBase,
		apiKey:     apiKey,
		records:    records,
		policy:     lookup.Policy{Timeout: 10 * time.Second, MaxRetries: 1, RetryDelay: 500 * time.Millisecond},
	}
}

// WithBaseURL points the client at a different endpoint
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// WithPolicy overrides the timeout and retry policy
func (c *Client) WithPolicy(p lookup.Policy) *Client {
	c.policy = p
	return c
}

// ForecastByCity fetches the forecast and air quality for a city name
func (c *Client) ForecastByCity(ctx context.Context, city string) (*Report, error) {
	if city == "" {
		return nil, fmt.Errorf("%w: city is required", engine.ErrInvalidInput)
	}
	params := url.Values{}
	params.Add("q", city)
	return c.report(ctx, params)
}

// ForecastByCoordinates fetches the forecast and air quality for a point
func (c *Client) ForecastByCoordinates(ctx context.Context, coords engine.Coordinates) (*Report, error) {
	if err := engine.ValidateCoordinates(&coords); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Add("lat", fmt.Sprintf("%.4f", coords.Lat))
	params.Add("lon", fmt.Sprintf("%.4f", coords.Lon))
	return c.report(ctx, params)
}

func (c *Client) report(ctx context.Context, params url.Values) (*Report, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	params.Add("units", "metric")
	params.Add("cnt", fmt.Sprintf("%d", c.records))

	fetch := func(ctx context.Context) (*forecastResponse, error) {
		var data forecastResponse
		if err := c.get(ctx, "forecast", params, &data); err != nil {
			return nil, err
		}
		return &data, nil
	}

	data, err := lookup.Do(ctx, "openweather_forecast", c.policy, fetch)
	if err != nil {
		var statusErr *lookup.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: city not found", engine.ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	report, err := reportFromResponse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	report.Air = lookup.WithFallback(ctx, "openweather_air", c.policy,
		func(ctx context.Context) (*engine.AirQuality, error) {
			return c.AirQuality(ctx, report.Coordinates)
		},
		func(error) *engine.AirQuality { return nil },
	)
	report.AirWarning = engine.ClassifyAir(report.Air)

	return report, nil
}

// AirQuality fetches the current air pollution sample for a point
func (c *Client) AirQuality(ctx context.Context, coords engine.Coordinates) (*engine.AirQuality, error) {
	params := url.Values{}
	params.Add("lat", fmt.Sprintf("%.4f", coords.Lat))
	params.Add("lon", fmt.Sprintf("%.4f", coords.Lon))

	var data airResponse
	if err := c.get(ctx, "air_pollution", params, &data); err != nil {
		return nil, err
	}
	if len(data.List) == 0 {
		return nil, lookup.Permanent(errors.New("no air pollution data received"))
	}

	sample := data.List[0]
	return &engine.AirQuality{
		AQI:        sample.Main.AQI,
		Components: sample.Components,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("appid", c.apiKey)

	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return lookup.Permanent(fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if err := lookup.CheckStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return lookup.Permanent(fmt.Errorf("decoding %s response: %w", endpoint, err))
	}
	return nil
}

// ParseForecast reads a saved OpenWeatherMap forecast document
func ParseForecast(r io.Reader) (*Report, error) {
	var data forecastResponse
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decoding forecast: %v", engine.ErrInvalidInput, err)
	}
	report, err := reportFromResponse(&data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidInput, err)
	}
	return report, nil
}

func reportFromResponse(data *forecastResponse) (*Report, error) {
	if data.City == nil || data.List == nil {
		return nil, errors.New("invalid forecast data: missing city or list")
	}

	records, err := Records(data.List)
	if err != nil {
		return nil, err
	}

	return &Report{
		City: data.City.Name,
		Coordinates: engine.Coordinates{
			Lat: data.City.Coord.Lat,
			Lon: data.City.Coord.Lon,
		},
		Records: records,
	}, nil
}
