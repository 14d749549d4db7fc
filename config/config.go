// Package config loads a mbus.RoutingSpec from disk, in either of two
// textual forms: the platform's native config-string format (spec.md §6)
// or a TOML document, for deployments that prefer a single ecosystem
// config format across every service rather than a bespoke one.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"

	"github.com/vespaext/mbus"
	"github.com/vespaext/mbus/log"
)

// tomlSpec mirrors mbus.RoutingSpec's shape for BurntSushi/toml decoding;
// field names are lowercased to match idiomatic TOML keys.
type tomlSpec struct {
	RoutingTable []tomlTable `toml:"routingtable"`
}

type tomlTable struct {
	Protocol string     `toml:"protocol"`
	Hop      []tomlHop   `toml:"hop"`
	Route    []tomlRoute `toml:"route"`
}

type tomlHop struct {
	Name         string   `toml:"name"`
	Selector     string   `toml:"selector"`
	IgnoreResult bool     `toml:"ignoreresult"`
	Recipient    []string `toml:"recipient"`
}

type tomlRoute struct {
	Name string   `toml:"name"`
	Hop  []string `toml:"hop"`
}

// LoadTOML reads and decodes a TOML routing config from path.
func LoadTOML(path string) (*mbus.RoutingSpec, error) {
	var doc tomlSpec
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, xerrors.Errorf("decoding TOML routing config %s: %w", path, err)
	}
	spec := &mbus.RoutingSpec{}
	for _, t := range doc.RoutingTable {
		ts := mbus.RoutingTableSpec{Protocol: t.Protocol}
		for _, h := range t.Hop {
			ts.Hops = append(ts.Hops, mbus.HopSpec{
				Name:         h.Name,
				Selector:     h.Selector,
				IgnoreResult: h.IgnoreResult,
				Recipients:   h.Recipient,
			})
		}
		for _, r := range t.Route {
			ts.Routes = append(ts.Routes, mbus.RouteSpec{Name: r.Name, Hops: r.Hop})
		}
		spec.Tables = append(spec.Tables, ts)
	}
	log.Lvl2("loaded TOML routing config", path, "with", len(spec.Tables), "tables")
	return spec, nil
}

// LoadConfigString reads and parses a native config-string routing config
// from path (the inverse of mbus.RoutingSpec.ToConfigString).
func LoadConfigString(path string) (*mbus.RoutingSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading routing config %s: %w", path, err)
	}
	spec, err := mbus.ParseConfigString(string(data))
	if err != nil {
		return nil, xerrors.Errorf("parsing routing config %s: %w", path, err)
	}
	log.Lvl2("loaded config-string routing config", path, "with", len(spec.Tables), "tables")
	return spec, nil
}
