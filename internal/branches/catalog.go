// Package branches holds the catalog of physical branch and ATM locations
// the portal ranks by proximity. The catalog ships with a compiled-in
// default set and can be replaced wholesale from a JSON file at startup.
package branches

import (
	"encoding/json"
	"fmt"
	"os"

	"portal/internal/core"
)

// Defaults is the built-in branch set used when no catalog file is
// configured.
func Defaults() []core.Branch {
	return []core.Branch{
		{Name: "San Luis", Location: core.Point{Lat: -0.30828, Lng: -78.45077}},
		{Name: "Av. Luis Cordero", Location: core.Point{Lat: -0.32733, Lng: -78.44646}},
		{Name: "Av. General Enríquez", Location: core.Point{Lat: -0.32771, Lng: -78.45037}},
	}
}

type branchFile struct {
	Branches []struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Lng  float64 `json:"lng"`
	} `json:"branches"`
}

// LoadFile reads a branch catalog from a JSON file. Every entry must
// validate; a catalog with a single bad row is rejected whole rather than
// silently truncated.
func LoadFile(path string) ([]core.Branch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read branch catalog: %w", err)
	}

	var parsed branchFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse branch catalog: %w", err)
	}
	if len(parsed.Branches) == 0 {
		return nil, fmt.Errorf("branch catalog %s contains no branches", path)
	}

	branches := make([]core.Branch, len(parsed.Branches))
	for i, b := range parsed.Branches {
		branch := core.Branch{
			Name:     b.Name,
			Location: core.Point{Lat: b.Lat, Lng: b.Lng},
		}
		if err := branch.Validate(); err != nil {
			return nil, fmt.Errorf("branch catalog entry %d: %w", i, err)
		}
		branches[i] = branch
	}
	return branches, nil
}

// Load returns the catalog from path, or the defaults when path is empty.
func Load(path string) ([]core.Branch, error) {
	if path == "" {
		return Defaults(), nil
	}
	return LoadFile(path)
}
