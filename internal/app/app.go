// Package app wires configuration into the clients and planner shared by the
// CLI and the server.
package app

import (
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/awaistahir/skyplan/internal/config"
	"github.com/awaistahir/skyplan/internal/lookup"
	"github.com/awaistahir/skyplan/internal/narrative"
	"github.com/awaistahir/skyplan/internal/places"
	"github.com/awaistahir/skyplan/internal/planner"
	"github.com/awaistahir/skyplan/internal/weather"
)

// App bundles the services built from one configuration
type App struct {
	Weather *weather.Client
	Planner *planner.Planner
}

// New builds the weather client and planner described by cfg. Missing
// places or OpenAI keys are not errors: venues fall back to placeholders and
// narratives to the built-in weather description.
func New(cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	wc := weather.NewClient(cfg.OpenWeather.APIKey, cfg.OpenWeather.Records).
		WithPolicy(lookup.Policy{
			Timeout:    cfg.OpenWeather.Timeout,
			MaxRetries: 1,
			RetryDelay: 500 * time.Millisecond,
		})

	popts := places.DefaultOptions()
	popts.MinRating = cfg.Places.MinRating
	popts.TopK = cfg.Places.TopK
	popts.Selection = places.Selection(cfg.Places.Selection)
	popts.Policy.Timeout = cfg.Places.Timeout
	popts.Policy.MaxRetries = cfg.Places.MaxRetries
	if cfg.Places.Seed != 0 {
		popts.Rand = rand.New(rand.NewPCG(cfg.Places.Seed, cfg.Places.Seed))
	}
	if cfg.Places.APIKey == "" {
		log.Println("places API key not configured, venues will use fallback data")
	}
	rec := places.NewRecommender(places.NewGoogleClient(cfg.Places.APIKey, cfg.Places.RadiusM), popts)

	opts := planner.Options{
		Location:    loc,
		MaxDays:     cfg.Planner.Days,
		Concurrency: cfg.Planner.Concurrency,
		NarratePolicy: lookup.Policy{
			Timeout: cfg.OpenAI.Timeout,
		},
	}
	if cfg.OpenAI.APIKey != "" {
		w, err := narrative.NewWriter(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		if err != nil {
			return nil, fmt.Errorf("creating narrative writer: %w", err)
		}
		opts.Narrator = w
	}

	return &App{
		Weather: wc,
		Planner: planner.New(rec, opts),
	}, nil
}
