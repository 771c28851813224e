package planner

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awaistahir/skyplan/internal/engine"
	"github.com/awaistahir/skyplan/internal/lookup"
	"github.com/awaistahir/skyplan/internal/places"
)

var dublin = &engine.Coordinates{Lat: 53.3498, Lon: -6.2603}

func records(base time.Time, n int, temp, wind, rain float64) []engine.ForecastRecord {
	out := []engine.ForecastRecord{}
	for i := 0; i < n; i++ {
		out = append(out, engine.ForecastRecord{
			Timestamp: base.Add(time.Duration(i) * 3 * time.Hour).Unix(),
			TempC:     temp,
			WindMps:   wind,
			RainMM3h:  rain,
			Condition: "scattered clouds",
		})
	}
	return out
}

// stubRecommender names venues after their category and tracks concurrency
type stubRecommender struct {
	mu       sync.Mutex
	calls    []engine.PlaceCategory
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (s *stubRecommender) Recommend(ctx context.Context, category engine.PlaceCategory, coords engine.Coordinates) engine.Venue {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.calls = append(s.calls, category)
	s.mu.Unlock()

	return engine.Venue{
		Name:     "Best " + category.Label(),
		Address:  "1 Test Street",
		Category: string(category),
		Rating:   engine.KnownRating(4.5),
		Source:   engine.SourcePlaces,
	}
}

func TestPlanDayCount(t *testing.T) {
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		records  []engine.ForecastRecord
		wantDays int
	}{
		{"five days capped at three", records(base, 40, 18, 3, 0), 3},
		{"exactly three days", records(base, 24, 18, 3, 0), 3},
		{"two days", records(base, 16, 18, 3, 0), 2},
		{"part of one day", records(base.Add(9*time.Hour), 3, 18, 3, 0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(&stubRecommender{}, Options{})
			it, err := p.Plan(context.Background(), Request{Records: tt.records, Coordinates: dublin})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(it.Days) != tt.wantDays {
				t.Fatalf("got %d days, want %d", len(it.Days), tt.wantDays)
			}
			for i, d := range it.Days {
				if d.Day != i+1 {
					t.Errorf("day %d has index %d", i+1, d.Day)
				}
				if i > 0 && d.Date <= it.Days[i-1].Date {
					t.Errorf("days out of order: %s after %s", d.Date, it.Days[i-1].Date)
				}
				if len(d.Slots) != 4 {
					t.Errorf("day %d: got %d slots, want 4", d.Day, len(d.Slots))
				}
			}
		})
	}
}

func TestPlanSlotsFollowWeather(t *testing.T) {
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	recs := append(records(base, 8, 15, 2, 0.5), records(base.Add(24*time.Hour), 8, 28, 2, 0)...)

	p := New(&stubRecommender{}, Options{})
	it, err := p.Plan(context.Background(), Request{Records: recs, Coordinates: dublin, City: "Dublin"})
	if err != nil {
		t.Fatal(err)
	}

	wet, hot := it.Days[0], it.Days[1]
	if !wet.Suitability.Rainy {
		t.Fatalf("day 1 should be rainy: %+v", wet.Suitability)
	}
	if wet.Slots[0].Category != engine.CategoryMuseum || wet.Slots[2].Category != engine.CategoryShopping {
		t.Errorf("rainy day slots = %s / %s", wet.Slots[0].Category, wet.Slots[2].Category)
	}
	if !hot.Suitability.Hot {
		t.Fatalf("day 2 should be hot: %+v", hot.Suitability)
	}
	if hot.Slots[0].Category != engine.CategoryPark || hot.Slots[2].Category != engine.CategoryCafe {
		t.Errorf("hot day slots = %s / %s", hot.Slots[0].Category, hot.Slots[2].Category)
	}
	for _, d := range it.Days {
		if d.Slots[3].Category != engine.CategoryNightlife {
			t.Errorf("day %d evening = %s, want nightlife", d.Day, d.Slots[3].Category)
		}
		for _, s := range d.Slots {
			if s.Venue.Name != "Best "+s.Category.Label() {
				t.Errorf("slot %s got venue %q", s.Label, s.Venue.Name)
			}
		}
	}
	if it.City != "Dublin" {
		t.Errorf("city = %q", it.City)
	}
}

func TestPlanPoorAirMovesMorningIndoors(t *testing.T) {
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	air := &engine.AirQuality{AQI: 4, Components: map[string]float64{"pm2_5": 40}}

	p := New(&stubRecommender{}, Options{})
	it, err := p.Plan(context.Background(), Request{Records: records(base, 8, 18, 2, 0), Coordinates: dublin, Air: air})
	if err != nil {
		t.Fatal(err)
	}
	if it.Days[0].Slots[0].Category != engine.CategoryMuseum {
		t.Errorf("morning = %s, want museum", it.Days[0].Slots[0].Category)
	}
	if it.AirWarning == "" {
		t.Error("expected an air warning")
	}
}

func TestPlanInvalidInput(t *testing.T) {
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  Request
	}{
		{"no records", Request{Coordinates: dublin}},
		{"no coordinates", Request{Records: records(base, 8, 18, 2, 0)}},
		{"bad coordinates", Request{Records: records(base, 8, 18, 2, 0), Coordinates: &engine.Coordinates{Lat: 200}}},
		{"bad record", Request{Records: []engine.ForecastRecord{{TempC: 10}}, Coordinates: dublin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &stubRecommender{}
			_, err := New(rec, Options{}).Plan(context.Background(), tt.req)
			if !errors.Is(err, engine.ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
			if len(rec.calls) != 0 {
				t.Errorf("no lookups expected, got %d", len(rec.calls))
			}
		})
	}
}

// slowSearcher never answers before its context expires
type slowSearcher struct{}

func (slowSearcher) Search(ctx context.Context, category engine.PlaceCategory, coords engine.Coordinates) ([]places.Candidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPlanAllLookupsTimeOut(t *testing.T) {
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	opts := places.DefaultOptions()
	opts.Policy = lookup.Policy{Timeout: 20 * time.Millisecond, MaxRetries: 1}
	rec := places.NewRecommender(slowSearcher{}, opts)

	start := time.Now()
	it, err := New(rec, Options{}).Plan(context.Background(), Request{Records: records(base, 24, 18, 2, 0), Coordinates: dublin})
	if err != nil {
		t.Fatalf("plan should not fail when places time out: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("lookups did not run concurrently, took %s", elapsed)
	}

	for _, d := range it.Days {
		for _, s := range d.Slots {
			want := places.FallbackVenue(s.Category)
			if s.Venue != want {
				t.Errorf("day %d %s: got %+v, want fallback", d.Day, s.Label, s.Venue)
			}
		}
	}
}

func TestPlanConcurrencyIsBounded(t *testing.T) {
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	rec := &stubRecommender{delay: 20 * time.Millisecond}

	_, err := New(rec, Options{Concurrency: 3}).Plan(context.Background(), Request{Records: records(base, 24, 18, 2, 0), Coordinates: dublin})
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 12 {
		t.Errorf("got %d lookups, want 12", len(rec.calls))
	}
	if peak := rec.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency %d exceeds 3", peak)
	}
}

func TestPlanIsIdempotent(t *testing.T) {
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	req := Request{Records: records(base, 24, 12, 6, 0.2), Coordinates: dublin}
	p := New(&stubRecommender{}, Options{})

	first, err := p.Plan(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Plan(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical requests produced different itineraries")
	}
}

type stubNarrator struct {
	err error
}

func (s stubNarrator) Narrate(ctx context.Context, city string, day engine.DayPlan) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "Narrated " + day.Date, nil
}

func TestPlanNarrative(t *testing.T) {
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	req := Request{Records: records(base, 8, 18, 2, 0), Coordinates: dublin}

	it, err := New(&stubRecommender{}, Options{Narrator: stubNarrator{}}).Plan(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if got := it.Days[0].Narrative; got != "Narrated 2024-12-01" {
		t.Errorf("narrative = %q", got)
	}

	it, err = New(&stubRecommender{}, Options{Narrator: stubNarrator{err: errors.New("quota")}}).Plan(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if got := it.Days[0].Narrative; got != "Scattered clouds, averaging 18.0°C (18.0 to 18.0°C) with 7.2 km/h winds." {
		t.Errorf("fallback narrative = %q", got)
	}
}
