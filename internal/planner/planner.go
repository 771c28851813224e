// Package planner turns forecast records into a day-by-day itinerary.
package planner

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/awaistahir/skyplan/internal/engine"
	"github.com/awaistahir/skyplan/internal/lookup"
	"github.com/sourcegraph/conc/pool"
)

// Recommender picks a venue for a slot. Implementations must not fail.
type Recommender interface {
	Recommend(ctx context.Context, category engine.PlaceCategory, coords engine.Coordinates) engine.Venue
}

// Narrator writes a short description of a planned day
type Narrator interface {
	Narrate(ctx context.Context, city string, day engine.DayPlan) (string, error)
}

// DefaultConcurrency bounds simultaneous place lookups per request
const DefaultConcurrency = 12

// Options configures a Planner
type Options struct {
	Location      *time.Location // day boundaries, nil means UTC
	MaxDays       int
	Concurrency   int
	Narrator      Narrator // optional
	NarratePolicy lookup.Policy
}

// Request is the input for one itinerary
type Request struct {
	Records     []engine.ForecastRecord
	Coordinates *engine.Coordinates
	Air         *engine.AirQuality
	City        string // passed through, not used for aggregation
}

// Planner builds itineraries. It holds no per-request state and is safe for
// concurrent use.
type Planner struct {
	recommender Recommender
	opts        Options
}

// New creates a planner that looks venues up with rec
func New(rec Recommender, opts Options) *Planner {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = engine.DefaultMaxDays
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Planner{recommender: rec, opts: opts}
}

// Plan builds the itinerary for req. Only engine.ErrInvalidInput and
// engine.ErrInternal are returned; venue lookups never cause a failure.
func (p *Planner) Plan(ctx context.Context, req Request) (*engine.Itinerary, error) {
	if len(req.Records) == 0 {
		return nil, fmt.Errorf("%w: missing weather data", engine.ErrInvalidInput)
	}
	if err := engine.ValidateCoordinates(req.Coordinates); err != nil {
		return nil, err
	}

	groups, err := engine.GroupByDay(req.Records, p.opts.Location, p.opts.MaxDays)
	if err != nil {
		return nil, err
	}

	aqi := 0
	if req.Air != nil {
		aqi = req.Air.AQI
	}

	days := make([]engine.DayPlan, 0, len(groups))
	for i, g := range groups {
		sum, err := engine.Summarize(g)
		if err != nil {
			return nil, err
		}
		tags := engine.Classify(sum)

		choices := engine.ScheduleDay(sum, tags, aqi)
		slots := make([]engine.TimeSlot, len(choices))
		for j, c := range choices {
			slots[j] = engine.TimeSlot{
				Label:     c.Label,
				Activity:  c.Activity,
				Category:  c.Category,
				Rationale: c.Rationale,
			}
		}

		days = append(days, engine.DayPlan{
			Day:         i + 1,
			Date:        g.Date.Format("2006-01-02"),
			Summary:     sum,
			Suitability: tags,
			Narrative:   defaultNarrative(sum),
			Slots:       slots,
		})
	}

	p.attachVenues(ctx, days, *req.Coordinates)
	p.narrate(ctx, req.City, days)

	return &engine.Itinerary{
		City:       req.City,
		AirWarning: engine.ClassifyAir(req.Air),
		Days:       days,
	}, nil
}

// attachVenues looks up every slot's venue on a bounded pool. Each goroutine
// writes only its own slot.
func (p *Planner) attachVenues(ctx context.Context, days []engine.DayPlan, coords engine.Coordinates) {
	wp := pool.New().WithMaxGoroutines(p.opts.Concurrency)
	for i := range days {
		for j := range days[i].Slots {
			slot := &days[i].Slots[j]
			wp.Go(func() {
				slot.Venue = p.recommender.Recommend(ctx, slot.Category, coords)
			})
		}
	}
	wp.Wait()
}

func (p *Planner) narrate(ctx context.Context, city string, days []engine.DayPlan) {
	if p.opts.Narrator == nil {
		return
	}

	wp := pool.New().WithMaxGoroutines(p.opts.Concurrency)
	for i := range days {
		day := &days[i]
		wp.Go(func() {
			fallback := day.Narrative
			day.Narrative = lookup.WithFallback(ctx, "narrative", p.opts.NarratePolicy,
				func(ctx context.Context) (string, error) {
					return p.opts.Narrator.Narrate(ctx, city, *day)
				},
				func(err error) string {
					log.Printf("narrative for day %d unavailable: %v", day.Day, err)
					return fallback
				},
			)
		})
	}
	wp.Wait()
}

func defaultNarrative(s engine.DailySummary) string {
	text := engine.Describe(s) + "."
	r, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToUpper(r)) + text[size:]
}
