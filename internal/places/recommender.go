package places

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/awaistahir/skyplan/internal/engine"
	"github.com/awaistahir/skyplan/internal/lookup"
	"github.com/awaistahir/skyplan/internal/metrics"
)

// Searcher finds candidate venues for a category near a point
type Searcher interface {
	Search(ctx context.Context, category engine.PlaceCategory, coords engine.Coordinates) ([]Candidate, error)
}

// Selection decides which of the top candidates is recommended
type Selection string

const (
	SelectBest   Selection = "best"   // highest rated
	SelectRandom Selection = "random" // uniform among the top K
)

// FallbackAddress is used for venues that did not come from the places service
const FallbackAddress = "Address unavailable"

// errNoResults means the search worked but nothing usable came back
var errNoResults = errors.New("no qualifying places found")

// Options tunes candidate selection
type Options struct {
	MinRating float64 // preferred minimum rating, 0 disables the filter
	TopK      int
	Selection Selection
	Rand      *rand.Rand // used by SelectRandom; required for reproducible picks
	Policy    lookup.Policy
}

// DefaultOptions returns the selection settings used by the server
func DefaultOptions() Options {
	return Options{
		MinRating: 3.5,
		TopK:      5,
		Selection: SelectBest,
		Policy:    lookup.DefaultPolicy,
	}
}

// Recommender turns a category and location into a single venue. It never
// fails: any problem with the places service yields a fallback venue.
type Recommender struct {
	searcher Searcher
	opts     Options

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewRecommender creates a recommender on top of searcher
func NewRecommender(searcher Searcher, opts Options) *Recommender {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.Selection == "" {
		opts.Selection = SelectBest
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Recommender{
		searcher: searcher,
		opts:     opts,
		rng:      rng,
	}
}

// Recommend returns a venue for category near coords
func (r *Recommender) Recommend(ctx context.Context, category engine.PlaceCategory, coords engine.Coordinates) engine.Venue {
	if r.searcher == nil {
		return r.fallback(category, "no_searcher")
	}

	search := func(ctx context.Context) (engine.Venue, error) {
		candidates, err := r.searcher.Search(ctx, category, coords)
		if err != nil {
			return engine.Venue{}, err
		}
		chosen, ok := r.choose(candidates)
		if !ok {
			return engine.Venue{}, lookup.Permanent(errNoResults)
		}
		return toVenue(chosen, category), nil
	}

	return lookup.WithFallback(ctx, "places", r.opts.Policy, search, func(err error) engine.Venue {
		return r.fallback(category, fallbackReason(err))
	})
}

// choose applies the rating filter, sorts by rating and picks from the top K
func (r *Recommender) choose(candidates []Candidate) (Candidate, bool) {
	usable := []Candidate{}
	for _, c := range candidates {
		if c.Name != "" {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return Candidate{}, false
	}

	if r.opts.MinRating > 0 {
		rated := []Candidate{}
		for _, c := range usable {
			if c.Rating != nil && *c.Rating >= r.opts.MinRating {
				rated = append(rated, c)
			}
		}
		if len(rated) > 0 {
			usable = rated
		}
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return ratingOf(usable[i]) > ratingOf(usable[j])
	})

	top := usable
	if len(top) > r.opts.TopK {
		top = top[:r.opts.TopK]
	}

	if r.opts.Selection == SelectRandom {
		r.mu.Lock()
		idx := r.rng.IntN(len(top))
		r.mu.Unlock()
		return top[idx], true
	}
	return top[0], true
}

// ratingOf orders unrated candidates after every rated one
func ratingOf(c Candidate) float64 {
	if c.Rating == nil {
		return -1
	}
	return *c.Rating
}

func toVenue(c Candidate, category engine.PlaceCategory) engine.Venue {
	v := engine.Venue{
		Name:     c.Name,
		Address:  c.Address,
		Category: c.Type,
		Source:   engine.SourcePlaces,
	}
	if v.Address == "" {
		v.Address = FallbackAddress
	}
	if v.Category == "" {
		v.Category = string(category)
	}
	if c.Rating != nil {
		v.Rating = engine.KnownRating(*c.Rating)
	}
	if c.OpenNow != nil {
		v.OpenNow = engine.OpenNow{Value: *c.OpenNow, Known: true}
	}
	return v
}

// FallbackVenue is the placeholder used when no real venue is available.
// It depends only on category.
func FallbackVenue(category engine.PlaceCategory) engine.Venue {
	return engine.Venue{
		Name:     fmt.Sprintf("Recommended %s", category.Label()),
		Address:  FallbackAddress,
		Category: string(category),
		Source:   engine.SourceFallback,
	}
}

func (r *Recommender) fallback(category engine.PlaceCategory, reason string) engine.Venue {
	metrics.FallbackVenues.WithLabelValues(string(category), reason).Inc()
	return FallbackVenue(category)
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errNoResults):
		return "no_results"
	case errors.Is(err, ErrNoAPIKey):
		return "no_api_key"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
