package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	assert.Equal(t, 28, c.Len())
}

func TestDescribe(t *testing.T) {
	c := Default()

	tests := []struct {
		name  string
		code  int
		isDay bool
		want  string
	}{
		{"clear day", 0, true, "sunny"},
		{"clear night", 0, false, "clear"},
		{"mainly clear night", 1, false, "mainly clear"},
		{"partly cloudy", 2, true, "partly cloudy"},
		{"thunderstorm with hail", 99, true, "thunderstorm with hail"},
		{"unknown code", 999, true, "code 999"},
		{"unknown code at night", 4, false, "code 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Describe(tt.code, tt.isDay))
		})
	}
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`{"7":{"day":{"description":"Dusty"},"night":{"description":""}}}`))
	require.NoError(t, err)

	assert.Equal(t, "dusty", c.Describe(7, true))
	assert.Equal(t, "code 7", c.Describe(7, false))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"abc":{}}`))
	assert.Error(t, err)
}
