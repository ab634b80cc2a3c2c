package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	"gopkg.in/yaml.v3"
)

// LoadNeighborhoodsFile reads a zip -> neighborhoods YAML mapping. An empty
// path yields an empty lookup.
func LoadNeighborhoodsFile(path string) (domain.NeighborhoodLookup, error) {
	if path == "" {
		return domain.NeighborhoodLookup{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open neighborhoods: %w", err)
	}
	defer f.Close()
	return LoadNeighborhoods(f)
}

// LoadNeighborhoods decodes a YAML document of the form
//
//	"19102": [Center City, Logan Square]
//	"19103": [Rittenhouse]
//
// Keys must be 5-digit zip codes.
func LoadNeighborhoods(r io.Reader) (domain.NeighborhoodLookup, error) {
	raw := map[string][]string{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode neighborhoods: %w", err)
	}
	lookup := make(domain.NeighborhoodLookup, len(raw))
	for zip, names := range raw {
		if !domain.ValidZip(zip) {
			return nil, fmt.Errorf("neighborhoods: %w: %q", domain.ErrInvalidZip, zip)
		}
		lookup[zip] = names
	}
	return lookup, nil
}

// LoadGeoJSONFile reads the zip polygon file served to the map. The content is
// passed through untouched after checking it is a GeoJSON object.
func LoadGeoJSONFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	if probe.Type == "" {
		return nil, errors.New("parse geojson: missing \"type\"")
	}
	return data, nil
}
