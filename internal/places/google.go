package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/awaistahir/skyplan/internal/engine"
	"github.com/awaistahir/skyplan/internal/lookup"
)

const googlePlacesAPIBase = "https://maps.googleapis.com/maps/api/place/textsearch/json"

// DefaultRadiusMeters is the search radius around the itinerary coordinates
const DefaultRadiusMeters = 5000

// ErrNoAPIKey is returned when the client has no Places API key configured
var ErrNoAPIKey = errors.New("places API key not configured")

// Candidate is one search result as returned by the places service
type Candidate struct {
	Name    string
	Address string
	Type    string
	Rating  *float64
	OpenNow *bool
}

// GoogleClient searches Google Places (Text Search)
type GoogleClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	radius     int
}

// NewGoogleClient creates a Places client for the given API key
func NewGoogleClient(apiKey string, radiusMeters int) *GoogleClient {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return &GoogleClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    googlePlacesAPIBase,
		apiKey:     apiKey,
		radius:     radiusMeters,
	}
}

// WithBaseURL points the client at a different endpoint
func (c *GoogleClient) WithBaseURL(u string) *GoogleClient {
	c.baseURL = u
	return c
}

// textSearchResponse represents the API response
type textSearchResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Name             string   `json:"name"`
		FormattedAddress string   `json:"formatted_address"`
		Vicinity         string   `json:"vicinity"`
		Types            []string `json:"types"`
		Rating           *float64 `json:"rating"`
		OpeningHours     *struct {
			OpenNow *bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"results"`
}

// Search returns candidates of the given category near coords
func (c *GoogleClient) Search(ctx context.Context, category engine.PlaceCategory, coords engine.Coordinates) ([]Candidate, error) {
	if c.apiKey == "" {
		return nil, lookup.Permanent(ErrNoAPIKey)
	}

	params := url.Values{}
	params.Add("query", category.Keyword())
	params.Add("location", fmt.Sprintf("%.6f,%.6f", coords.Lat, coords.Lon))
	params.Add("radius", fmt.Sprintf("%d", c.radius))
	params.Add("type", string(category))
	params.Add("key", c.apiKey)

	fullURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, lookup.Permanent(fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching places: %w", err)
	}
	defer resp.Body.Close()

	if err := lookup.CheckStatus(resp); err != nil {
		return nil, err
	}

	var data textSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, lookup.Permanent(fmt.Errorf("decoding response: %w", err))
	}

	switch data.Status {
	case "OK", "ZERO_RESULTS":
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return nil, fmt.Errorf("places status %s: %s", data.Status, data.ErrorMessage)
	default:
		return nil, lookup.Permanent(fmt.Errorf("places status %s: %s", data.Status, data.ErrorMessage))
	}

	candidates := make([]Candidate, 0, len(data.Results))
	for _, r := range data.Results {
		cand := Candidate{
			Name:    r.Name,
			Address: r.FormattedAddress,
			Rating:  r.Rating,
		}
		if cand.Address == "" {
			cand.Address = r.Vicinity
		}
		if len(r.Types) > 0 {
			cand.Type = r.Types[0]
		}
		if r.OpeningHours != nil {
			cand.OpenNow = r.OpeningHours.OpenNow
		}
		candidates = append(candidates, cand)
	}

	return candidates, nil
}
