package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tray-weather/api"
	"tray-weather/config"
	"tray-weather/logger"
	"tray-weather/models"
	"tray-weather/refresher"

	"github.com/spf13/cobra"
)

var (
	portFlag     int
	settingsFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tray-weather",
		Short: "Weather backend for the tray popup",
		Long: `Fetches short-range forecasts from Open-Meteo, keeps the latest one cached
and serves display-ready views to the tray UI over a local HTTP API.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "Port for the local API (overrides TRAY_PORT)")
	rootCmd.PersistentFlags().StringVar(&settingsFlag, "settings", "", "Path to the settings file (overrides SETTINGS_PATH)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local API and the background refresher",
		RunE:  runServe,
	}

	var timeFormat string
	nowCmd := &cobra.Command{
		Use:   "now",
		Short: "Fetch and print the forecast for the saved location",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNow(cmd.Context(), models.TimeFormat(timeFormat))
		},
	}
	nowCmd.Flags().StringVar(&timeFormat, "time-format", "", "12hr or 24hr (defaults to the saved preference)")

	var save bool
	detectCmd := &cobra.Command{
		Use:   "detect-location",
		Short: "Detect the location from the public IP address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetectLocation(cmd.Context(), save)
		},
	}
	detectCmd.Flags().BoolVar(&save, "save", false, "Store the detected coordinates in the settings")

	clearCmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop the cached forecast snapshot",
		Long:  `Drop the cached forecast snapshot. Only useful with REDIS_URL set; the in-memory store dies with the process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClearCache(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd, nowCmd, detectCmd, clearCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if settingsFlag != "" {
		cfg.SettingsPath = settingsFlag
	}
	return cfg, logger.New(cfg.LogLevel, cfg.AppEnv), nil
}

func setup(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return newApp(ctx, cfg, log)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(a.forecasts, a.settings, a.locations, a.cfg.Port, a.log)
	stopRefresher := refresher.New(a.forecasts, a.settings, a.cfg.RefreshInterval, a.log).Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		a.log.Info("Shutting down")
	case err := <-serverErr:
		stopRefresher()
		return fmt.Errorf("server stopped: %w", err)
	}

	stopRefresher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Errorf("Server shutdown error: %v", err)
	}

	a.log.Info("Shutdown complete")
	return nil
}

func runNow(ctx context.Context, timeFormat models.TimeFormat) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	params, err := a.requestParameters()
	if err != nil {
		return err
	}
	if timeFormat != "" {
		params.TimeFormat = timeFormat
	}

	view, err := a.forecasts.FetchAndProcess(ctx, params)
	if err != nil {
		return err
	}
	return printJSON(view)
}

func runDetectLocation(ctx context.Context, save bool) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	location, err := a.locations.DetectLocation(ctx)
	if err != nil {
		return err
	}

	if save {
		updated, result := a.settings.Update(func(s *models.Settings) {
			s.Latitude = &location.Latitude
			s.Longitude = &location.Longitude
		})
		if !result.Success {
			return fmt.Errorf("failed to save location: %s", result.Error)
		}
		a.log.Infof("Saved location %.4f, %.4f to %s", *updated.Latitude, *updated.Longitude, a.settings.Path())
	}

	return printJSON(location)
}

func runClearCache(ctx context.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.forecasts.ClearCache(ctx); err != nil {
		return err
	}
	fmt.Println("Cache cleared")
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
