// Package catalog maps WMO weather interpretation codes to human readable
// descriptions, with separate wording for day and night.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

//go:embed descriptions.json
var defaultDescriptions []byte

type variant struct {
	Description string `json:"description"`
}

type entry struct {
	Day   variant `json:"day"`
	Night variant `json:"night"`
}

// Catalog is an immutable code -> description lookup
type Catalog struct {
	entries map[int]entry
}

// Default returns the catalog built from the embedded WMO code table
func Default() *Catalog {
	c, err := Parse(defaultDescriptions)
	if err != nil {
		panic(fmt.Sprintf("embedded weather code table is invalid: %v", err))
	}
	return c
}

// Parse builds a catalog from a JSON object keyed by numeric code
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse weather code table: %w", err)
	}

	entries := make(map[int]entry, len(raw))
	for key, e := range raw {
		code, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid weather code %q: %w", key, err)
		}
		entries[code] = e
	}

	return &Catalog{entries: entries}, nil
}

// Describe returns the lowercase description for code, or "code <N>" when
// the code is not in the table.
func (c *Catalog) Describe(code int, isDay bool) string {
	e, ok := c.entries[code]
	if !ok {
		return fmt.Sprintf("code %d", code)
	}

	desc := e.Night.Description
	if isDay {
		desc = e.Day.Description
	}
	if desc == "" {
		return fmt.Sprintf("code %d", code)
	}
	return strings.ToLower(desc)
}

// Len returns the number of known codes
func (c *Catalog) Len() int {
	return len(c.entries)
}
