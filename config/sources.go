package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Source kinds: listing feeds go to the listings table, trade feeds to the
// per-source trade table.
const (
	KindListing = "listing"
	KindTrade   = "trade"
)

// Source describes one crawl source in the YAML registry.
type Source struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// VanishedStatus is the lifecycle label for URLs missing from a
	// completed run. Defaults to DELISTED for listings, INACTIVE for
	// trades.
	VanishedStatus string `yaml:"vanished_status"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// DefaultSources is the registry used when no sources.yaml exists.
var DefaultSources = []Source{
	{Name: "5168", Kind: KindListing, VanishedStatus: "DELISTED"},
	{Name: "樂屋網", Kind: KindListing, VanishedStatus: "DELISTED"},
	{Name: "信義房屋", Kind: KindListing, VanishedStatus: "DELISTED"},
	{Name: "永慶房屋", Kind: KindListing, VanishedStatus: "DELISTED"},
	{Name: "好房網", Kind: KindListing, VanishedStatus: "DELISTED"},
	{Name: "rakuya_trades", Kind: KindTrade, VanishedStatus: "INACTIVE"},
}

// LoadSources reads the YAML source registry at path. A missing file yields
// the default registry; a malformed one is an error.
func LoadSources(path string) ([]Source, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSources, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sources: read %q: %w", path, err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("sources: parse %q: %w", path, err)
	}
	if len(f.Sources) == 0 {
		return DefaultSources, nil
	}

	for i := range f.Sources {
		s := &f.Sources[i]
		if s.Name == "" {
			return nil, fmt.Errorf("sources: entry %d has no name", i)
		}
		if s.Kind == "" {
			s.Kind = KindListing
		}
		if s.Kind != KindListing && s.Kind != KindTrade {
			return nil, fmt.Errorf("sources: %s has unknown kind %q", s.Name, s.Kind)
		}
		if s.VanishedStatus == "" {
			if s.Kind == KindTrade {
				s.VanishedStatus = "INACTIVE"
			} else {
				s.VanishedStatus = "DELISTED"
			}
		}
	}
	return f.Sources, nil
}
