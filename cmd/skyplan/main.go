package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/awaistahir/skyplan/internal/app"
	"github.com/awaistahir/skyplan/internal/config"
	"github.com/awaistahir/skyplan/internal/engine"
	"github.com/awaistahir/skyplan/internal/planner"
	"github.com/awaistahir/skyplan/internal/store"
	"github.com/awaistahir/skyplan/internal/weather"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	dbPath  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "skyplan",
		Short: "Skyplan - weather-aware day plans",
		Long: `Skyplan fetches a short-range forecast for a place and turns it into a
three-day itinerary of morning, lunch, afternoon and evening stops.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.skyplan/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default is $HOME/.skyplan/skyplan.db)")

	rootCmd.AddCommand(weatherCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(locationCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.New(), cfgFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DB = dbPath
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DB), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	st, err := store.NewStore(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func weatherCmd() *cobra.Command {
	var city string

	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Fetch the forecast and air quality for a city",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}

			report, err := a.Weather.ForecastByCity(cmd.Context(), city)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	cmd.Flags().StringVarP(&city, "city", "c", "", "City name (required)")
	cmd.MarkFlagRequired("city")

	return cmd
}

func planCmd() *cobra.Command {
	var city, locationName, file string
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate an itinerary",
		Long: `Generate an itinerary from one of:
  --city NAME          fetch the forecast for a city
  --location NAME      fetch the forecast for a saved location
  --lat LAT --lon LON  fetch the forecast for a point
  --file PATH          read a saved forecast document (--lat/--lon override its coordinates)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}

			hasPoint := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
			if hasPoint && !(cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon")) {
				return errors.New("--lat and --lon must be given together")
			}
			point := engine.Coordinates{Lat: lat, Lon: lon}

			var report *weather.Report
			switch {
			case file != "":
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				if report, err = weather.ParseForecast(f); err != nil {
					return err
				}
				if hasPoint {
					report.Coordinates = point
				}
			case city != "":
				if report, err = a.Weather.ForecastByCity(ctx, city); err != nil {
					return err
				}
			case locationName != "":
				st, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer st.Close()

				loc, err := st.GetLocationByName(locationName)
				if err != nil {
					return fmt.Errorf("%s: %w", locationName, err)
				}
				if report, err = a.Weather.ForecastByCoordinates(ctx, loc.Coordinates()); err != nil {
					return err
				}
				if report.City == "" {
					report.City = loc.Name
				}
			case hasPoint:
				if report, err = a.Weather.ForecastByCoordinates(ctx, point); err != nil {
					return err
				}
			default:
				return errors.New("one of --city, --location, --lat/--lon or --file is required")
			}

			fmt.Fprintf(os.Stderr, "Planning with %d forecast records for %s\n", len(report.Records), report.City)

			coords := report.Coordinates
			it, err := a.Planner.Plan(ctx, planner.Request{
				Records:     report.Records,
				Coordinates: &coords,
				Air:         report.Air,
				City:        report.City,
			})
			if err != nil {
				return err
			}
			return printJSON(it)
		},
	}

	cmd.Flags().StringVarP(&city, "city", "c", "", "City name")
	cmd.Flags().StringVarP(&locationName, "location", "l", "", "Saved location name")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	cmd.Flags().StringVarP(&file, "file", "f", "", "OpenWeatherMap forecast JSON file")
	cmd.MarkFlagsMutuallyExclusive("city", "location", "file")

	return cmd
}

func locationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Manage saved locations",
	}

	cmd.AddCommand(locationAddCmd())
	cmd.AddCommand(locationListCmd())
	cmd.AddCommand(locationRemoveCmd())

	return cmd
}

func locationAddCmd() *cobra.Command {
	var name string
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a named location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			loc := &engine.Location{Name: name, Latitude: lat, Longitude: lon}
			if err := st.SaveLocation(loc); err != nil {
				return err
			}

			fmt.Printf("✓ Saved location: %s\n", loc.Name)
			fmt.Printf("  ID: %s\n", loc.ID)
			fmt.Printf("  Coordinates: %.4f, %.4f\n", loc.Latitude, loc.Longitude)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Location name (required)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude (required)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude (required)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")

	return cmd
}

func locationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			locations, err := st.ListLocations()
			if err != nil {
				return err
			}

			if len(locations) == 0 {
				fmt.Println("No locations saved")
				return nil
			}

			fmt.Printf("%-24s %-36s %10s %11s\n", "NAME", "ID", "LAT", "LON")
			fmt.Println("----------------------------------------------------------------------------------")
			for _, l := range locations {
				fmt.Printf("%-24s %-36s %10.4f %11.4f\n", l.Name, l.ID, l.Latitude, l.Longitude)
			}
			return nil
		},
	}
}

func locationRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME|ID",
		Short: "Remove a saved location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			id := args[0]
			if loc, err := st.GetLocationByName(args[0]); err == nil {
				id = loc.ID
			}
			if err := st.DeleteLocation(id); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			fmt.Printf("✓ Removed location: %s\n", args[0])
			return nil
		},
	}
}
