package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/booking-import/internal/classifier"
	"github.com/ginjaninja78/booking-import/internal/csvparser"
	"github.com/ginjaninja78/booking-import/internal/types"
)

// =============================================================================
// REFERENCE SNAPSHOT
// =============================================================================

// LoadReference loads and validates the reference snapshot.
//
// VALIDATION:
//   - Agents, yachts, users and catalog entries need an id and a name
//   - Yacht ids and package ids within a yacht must be unique
func LoadReference(path string) (*types.ReferenceData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference file: %w", err)
	}

	var ref types.ReferenceData
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("failed to parse reference file: %w", err)
	}

	if err := validate.Struct(&ref); err != nil {
		return nil, fmt.Errorf("invalid reference file: %w", describeValidation(err))
	}
	if err := checkUniqueIDs(&ref); err != nil {
		return nil, fmt.Errorf("invalid reference file: %w", err)
	}

	return &ref, nil
}

func checkUniqueIDs(ref *types.ReferenceData) error {
	yachts := make(map[string]bool)
	for _, y := range ref.Yachts {
		if yachts[y.ID] {
			return fmt.Errorf("duplicate yacht id %q", y.ID)
		}
		yachts[y.ID] = true

		pkgs := make(map[string]bool)
		for _, p := range y.Packages {
			if pkgs[p.ID] {
				return fmt.Errorf("yacht %q: duplicate package id %q", y.ID, p.ID)
			}
			pkgs[p.ID] = true
		}
	}
	return nil
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// Location resolves the configured timezone.
func (c *MainConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	return loc, nil
}

// Source returns the configured source override, or nil to detect.
func (c *MainConfig) Source() (*classifier.Source, error) {
	return parseSource(c.DefaultSource)
}

// SourceOverride returns the profile's source override, or nil to detect.
func (p *ProfileConfig) SourceOverride() (*classifier.Source, error) {
	return parseSource(p.Source)
}

func parseSource(name string) (*classifier.Source, error) {
	if name = strings.TrimSpace(name); name == "" || strings.EqualFold(name, "auto") {
		return nil, nil
	}
	s, err := classifier.ParseSource(name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// MasterTable converts the configured master columns. Headers are
// normalized the way file headers are.
func (c *MainConfig) MasterTable() (classifier.MasterTable, error) {
	table := make(classifier.MasterTable, len(c.MasterColumns))
	for header, col := range c.MasterColumns {
		bucket, ok := classifier.ParseBucket(col.Bucket)
		if !ok {
			return nil, fmt.Errorf("master column %q: unknown bucket %q", header, col.Bucket)
		}
		table[csvparser.NormalizeHeader(header)] = classifier.MasterColumn{Yacht: col.Yacht, Bucket: bucket}
	}
	return table, nil
}
