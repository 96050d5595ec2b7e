package refresher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tray-weather/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeForecasts struct {
	mutex   sync.Mutex
	cached  models.CachedView
	err     error
	fetches []models.RequestParameters
}

func (f *fakeForecasts) FetchAndProcess(_ context.Context, params models.RequestParameters) (*models.ViewModel, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.fetches = append(f.fetches, params)
	if f.err != nil {
		return nil, f.err
	}
	f.cached = models.CachedView{Data: &models.ViewModel{}}
	return f.cached.Data, nil
}

func (f *fakeForecasts) GetCachedView(context.Context, models.TimeFormat) models.CachedView {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.cached
}

func (f *fakeForecasts) fetchCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.fetches)
}

type staticSettings models.Settings

func (s staticSettings) Get() models.Settings {
	return models.Settings(s)
}

func located() staticSettings {
	lat, lon := 40.7, -74.0
	return staticSettings{
		Latitude:   &lat,
		Longitude:  &lon,
		TempUnit:   models.Fahrenheit,
		SpeedUnit:  models.MPH,
		TimeFormat: models.TwelveHour,
	}
}

func TestRunOnce(t *testing.T) {
	tests := []struct {
		name        string
		settings    staticSettings
		cached      models.CachedView
		fetchErr    error
		wantFetched bool
		wantErr     bool
	}{
		{
			name:     "no location",
			settings: staticSettings{},
		},
		{
			name:        "empty cache",
			settings:    located(),
			wantFetched: true,
		},
		{
			name:     "fresh snapshot",
			settings: located(),
			cached:   models.CachedView{Data: &models.ViewModel{}},
		},
		{
			name:        "stale snapshot",
			settings:    located(),
			cached:      models.CachedView{Data: &models.ViewModel{}, IsStale: true},
			wantFetched: true,
		},
		{
			name:        "fetch failure",
			settings:    located(),
			fetchErr:    errors.New("provider down"),
			wantFetched: true,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forecasts := &fakeForecasts{cached: tt.cached, err: tt.fetchErr}
			r := New(forecasts, tt.settings, time.Hour, nil)

			fetched, err := r.RunOnce(context.Background())
			assert.Equal(t, tt.wantFetched, fetched)
			if tt.wantErr {
				assert.ErrorContains(t, err, "failed to refresh forecast")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunOnceUsesSettings(t *testing.T) {
	forecasts := &fakeForecasts{}
	settings := located()
	settings.SpeedUnit = models.KPH

	_, err := New(forecasts, settings, time.Hour, nil).RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, forecasts.fetches, 1)
	assert.Equal(t, 40.7, forecasts.fetches[0].Latitude)
	assert.Equal(t, models.KPH, forecasts.fetches[0].SpeedUnit)
}

func TestStartRefreshesImmediately(t *testing.T) {
	forecasts := &fakeForecasts{}
	r := New(forecasts, located(), time.Hour, nil)

	stop := r.Start(context.Background())
	assert.Eventually(t, func() bool {
		return forecasts.fetchCount() == 1
	}, time.Second, 10*time.Millisecond)

	stop()
	stop()
	assert.Equal(t, 1, forecasts.fetchCount())
}

func TestDefaultInterval(t *testing.T) {
	r := New(&fakeForecasts{}, located(), 0, nil)
	assert.Equal(t, DefaultInterval, r.interval)
}
