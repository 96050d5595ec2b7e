// Package settings persists the user's preferences as a JSON document.
package settings

import (
	"os"
	"path/filepath"
	"sync"

	"tray-weather/logger"
	"tray-weather/models"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	keyLatitude   = "latitude"
	keyLongitude  = "longitude"
	keyTempUnit   = "temp_unit"
	keySpeedUnit  = "speed_unit"
	keyTimeFormat = "time_format"
)

// Defaults returns the settings used before anything is saved
func Defaults() models.Settings {
	return models.Settings{
		TempUnit:   models.Fahrenheit,
		SpeedUnit:  models.MPH,
		TimeFormat: models.TwelveHour,
	}
}

// Store reads and writes settings at a fixed path. Stored values are merged
// over Defaults on every read.
type Store struct {
	mutex  sync.Mutex
	path   string
	logger logger.Logger
}

// NewStore creates a store for the JSON file at path. The file does not need
// to exist yet.
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		path:   path,
		logger: log.WithField("component", "settings"),
	}
}

// Path returns the settings file location
func (s *Store) Path() string {
	return s.path
}

// Get returns the stored settings. A missing or unreadable file yields the
// defaults.
func (s *Store) Get() models.Settings {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	settings, err := s.load()
	if err != nil {
		s.logger.Warnf("Using default settings: %v", err)
		return Defaults()
	}
	return settings
}

// Set replaces the stored settings. Empty unit fields fall back to the
// defaults; nil coordinates clear the location.
func (s *Store) Set(settings models.Settings) models.SaveResult {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.save(settings); err != nil {
		s.logger.Errorf("Failed to save settings: %v", err)
		return models.SaveResult{Success: false, Error: err.Error()}
	}
	return models.SaveResult{Success: true}
}

// Update applies fn to the current settings and saves the result
func (s *Store) Update(fn func(*models.Settings)) (models.Settings, models.SaveResult) {
	current := s.Get()
	fn(&current)
	return current, s.Set(current)
}

func (s *Store) newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	defaults := Defaults()
	v.SetDefault(keyTempUnit, string(defaults.TempUnit))
	v.SetDefault(keySpeedUnit, string(defaults.SpeedUnit))
	v.SetDefault(keyTimeFormat, string(defaults.TimeFormat))
	return v
}

func (s *Store) load() (models.Settings, error) {
	v := s.newViper()

	if _, err := os.Stat(s.path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return models.Settings{}, errors.Wrapf(err, "failed to read %s", s.path)
		}
	} else if !os.IsNotExist(err) {
		return models.Settings{}, errors.Wrapf(err, "failed to stat %s", s.path)
	}

	var settings models.Settings
	if err := v.Unmarshal(&settings); err != nil {
		return models.Settings{}, errors.Wrap(err, "failed to decode settings")
	}
	return settings, nil
}

func (s *Store) save(settings models.Settings) error {
	v := s.newViper()

	if settings.Latitude != nil {
		v.Set(keyLatitude, *settings.Latitude)
	}
	if settings.Longitude != nil {
		v.Set(keyLongitude, *settings.Longitude)
	}
	if settings.TempUnit != "" {
		v.Set(keyTempUnit, string(settings.TempUnit))
	}
	if settings.SpeedUnit != "" {
		v.Set(keySpeedUnit, string(settings.SpeedUnit))
	}
	if settings.TimeFormat != "" {
		v.Set(keyTimeFormat, string(settings.TimeFormat))
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create settings directory")
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return errors.Wrapf(err, "failed to write %s", s.path)
	}
	return nil
}
