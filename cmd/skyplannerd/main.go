package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/awaistahir/skyplan/internal/app"
	"github.com/awaistahir/skyplan/internal/config"
	"github.com/awaistahir/skyplan/internal/store"
	"github.com/awaistahir/skyplan/internal/uiapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var cfgFile string
	var port int
	var dbPath string

	rootCmd := &cobra.Command{
		Use:   "skyplannerd",
		Short: "Skyplan HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := v.BindPFlag("server.port", cmd.Flags().Lookup("port")); err != nil {
				return err
			}
			if err := v.BindPFlag("db", cmd.Flags().Lookup("db")); err != nil {
				return err
			}

			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(cfg.DB), 0755); err != nil {
				return fmt.Errorf("creating data directory: %w", err)
			}
			st, err := store.NewStore(cfg.DB)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer st.Close()

			a, err := app.New(cfg)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           uiapi.NewServer(st, a.Planner, a.Weather).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("Skyplan server starting on port %d", cfg.Server.Port)
				log.Printf("Database: %s", cfg.DB)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Println("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.skyplan/config.yaml)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "database path (default is $HOME/.skyplan/skyplan.db)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
