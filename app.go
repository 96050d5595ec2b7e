package main

import (
	"context"
	"fmt"

	"tray-weather/api"
	"tray-weather/cache"
	"tray-weather/catalog"
	"tray-weather/config"
	"tray-weather/datasource"
	"tray-weather/forecast"
	"tray-weather/logger"
	"tray-weather/models"
	"tray-weather/providers/ipapi"
	"tray-weather/providers/openmeteo"
	"tray-weather/publish"
	"tray-weather/settings"

	"github.com/redis/go-redis/v9"
)

// app holds the wired components shared by the commands
type app struct {
	cfg       *config.Config
	log       logger.Logger
	settings  *settings.Store
	forecasts *forecast.Client
	locations datasource.LocationSource

	redis     *redis.Client
	publisher *publish.KafkaPublisher
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisURL != "" {
		client, err := cache.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = client
		store = cache.NewRedisStore(client, cfg.CacheTTL)
		log.Info("Using Redis snapshot store")
	}

	var opts []forecast.Option
	opts = append(opts, forecast.WithLogger(log))
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := publish.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = publisher
		opts = append(opts, forecast.WithPublisher(publisher))
		log.Infof("Publishing forecasts to Kafka topic %s", cfg.KafkaTopic)
	}

	// Open-Meteo and ip-api are both free tiers, so pace every request
	source := datasource.NewRateLimitedForecastSource(
		openmeteo.NewForecastSource(cfg.OpenMeteoURL, cfg.HTTPTimeout, log),
		cfg.RateLimitRPS,
		cfg.RateLimitBurst,
	)
	a.locations = datasource.NewRateLimitedLocationSource(
		ipapi.NewLocationSource(cfg.IPAPIURL, cfg.HTTPTimeout, log),
		45.0/60.0,
		1,
	)

	snapshots := cache.NewSnapshotCache(store, nil, log)
	a.forecasts = forecast.NewClient(source, catalog.Default(), snapshots, opts...)
	a.settings = settings.NewStore(cfg.SettingsPath, log)

	return a, nil
}

// Close waits for pending publishes and releases connections
func (a *app) Close() {
	if a.forecasts != nil {
		a.forecasts.Close()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Errorf("Redis close error: %v", err)
		}
	}
}

// requestParameters reads the saved settings, failing when no location has
// been chosen yet
func (a *app) requestParameters() (models.RequestParameters, error) {
	s := a.settings.Get()
	if !s.HasLocation() {
		return models.RequestParameters{}, fmt.Errorf("%w: save one with `detect-location --save` or edit %s",
			api.ErrLocationNotSet, a.settings.Path())
	}
	return s.RequestParameters(), nil
}
