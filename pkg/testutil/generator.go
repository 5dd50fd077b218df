// Package testutil provides dataset generators for various hierarchy shapes.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/assettree/pkg/model"
)

// GeneratorConfig controls dataset generation.
type GeneratorConfig struct {
	Seed          int64   // Random seed for determinism (0 = 42)
	IDPrefix      string  // Prefix for record IDs (default: "T")
	SensorRatio   float64 // Share of leaf assets that carry a sensor (0..1)
	EnergyRatio   float64 // Share of sensors that are energy sensors (0..1)
	AlertRatio    float64 // Share of sensor-bearing assets in alert (0..1)
	DanglingRatio float64 // Share of records whose reference points nowhere (0..1)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42,
		IDPrefix:    "T",
		SensorRatio: 0.5,
		EnergyRatio: 0.5,
		AlertRatio:  0.3,
	}
}

// Generator creates datasets with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
	seq int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "T"
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

var assetNames = []string{"Pump", "Motor", "Conveyor", "Fan", "Compressor", "Boiler", "Valve", "Turbine"}
var sensorNames = []string{"Bearing", "Shaft", "Coupling", "Power Meter", "Vibration Probe", "Current Clamp"}

func (g *Generator) nextID(kind string) string {
	g.seq++
	return fmt.Sprintf("%s-%s%d", g.cfg.IDPrefix, kind, g.seq)
}

func (g *Generator) pick(names []string) string {
	return fmt.Sprintf("%s %d", names[g.rng.Intn(len(names))], g.seq)
}

func (g *Generator) chance(ratio float64) bool {
	return ratio > 0 && g.rng.Float64() < ratio
}

// reference returns id, or a dangling reference when the dice say so.
func (g *Generator) reference(id string) string {
	if g.chance(g.cfg.DanglingRatio) {
		return "missing-" + id
	}
	return id
}

func (g *Generator) component(name string) model.Asset {
	a := model.Asset{ID: g.nextID("C"), Name: name}
	if g.chance(g.cfg.SensorRatio) {
		a.SensorType = model.SensorVibration
		if g.chance(g.cfg.EnergyRatio) {
			a.SensorType = model.SensorEnergy
		}
		a.SensorID = g.nextID("S")
		a.Status = model.StatusOperating
		if g.chance(g.cfg.AlertRatio) {
			a.Status = model.StatusAlert
		}
	}
	return a
}

// ============================================================================
// Topology Generators
// ============================================================================

// Plant creates sites → areas → assets → components:
// `sites` root locations, each with `areas` sub-locations, each holding
// `assets` assets with `components` nested components. A few assets sit
// directly at the root with no location.
func (g *Generator) Plant(sites, areas, assets, components int) model.Dataset {
	var ds model.Dataset
	ds.Company = model.Company{ID: g.cfg.IDPrefix + "-company", Name: "Generated Plant"}

	for s := 0; s < sites; s++ {
		site := model.Location{ID: g.nextID("L"), Name: fmt.Sprintf("Site %d", s+1)}
		ds.Locations = append(ds.Locations, site)
		for a := 0; a < areas; a++ {
			area := model.Location{
				ID:       g.nextID("L"),
				Name:     fmt.Sprintf("Area %d.%d", s+1, a+1),
				ParentID: g.reference(site.ID),
			}
			ds.Locations = append(ds.Locations, area)
			for i := 0; i < assets; i++ {
				asset := model.Asset{ID: g.nextID("A"), Name: g.pick(assetNames), LocationID: g.reference(area.ID)}
				ds.Assets = append(ds.Assets, asset)
				for c := 0; c < components; c++ {
					comp := g.component(g.pick(sensorNames))
					comp.ParentID = g.reference(asset.ID)
					ds.Assets = append(ds.Assets, comp)
				}
			}
		}
	}

	// Unattached assets are roots of their own.
	for i := 0; i < sites; i++ {
		ds.Assets = append(ds.Assets, g.component(g.pick(sensorNames)))
	}

	g.rng.Shuffle(len(ds.Assets), func(i, j int) {
		ds.Assets[i], ds.Assets[j] = ds.Assets[j], ds.Assets[i]
	})
	return ds
}

// Random creates a dataset of n locations and m assets where every record
// references a uniformly chosen earlier record (or nothing). Referencing only
// earlier records keeps the result acyclic.
func (g *Generator) Random(n, m int) model.Dataset {
	var ds model.Dataset
	ds.Company = model.Company{ID: g.cfg.IDPrefix + "-company", Name: "Random"}

	for i := 0; i < n; i++ {
		loc := model.Location{ID: g.nextID("L"), Name: fmt.Sprintf("Location %d", i)}
		if i > 0 && g.rng.Intn(3) > 0 {
			loc.ParentID = g.reference(ds.Locations[g.rng.Intn(i)].ID)
		}
		ds.Locations = append(ds.Locations, loc)
	}
	for i := 0; i < m; i++ {
		asset := g.component(g.pick(append(assetNames, sensorNames...)))
		switch g.rng.Intn(3) {
		case 0:
			if i > 0 {
				asset.ParentID = g.reference(ds.Assets[g.rng.Intn(i)].ID)
			}
		case 1:
			if n > 0 {
				asset.LocationID = g.reference(ds.Locations[g.rng.Intn(n)].ID)
			}
		}
		ds.Assets = append(ds.Assets, asset)
	}
	return ds
}

// AssetCycle creates `size` assets where each one's parent is the next:
// a0 → a1 → ... → a{size-1} → a0. size 1 gives a self reference.
func (g *Generator) AssetCycle(size int) []model.Asset {
	assets := make([]model.Asset, size)
	for i := range assets {
		assets[i] = model.Asset{ID: fmt.Sprintf("%s-cyc%d", g.cfg.IDPrefix, i), Name: fmt.Sprintf("Cycle %d", i)}
	}
	for i := range assets {
		assets[i].ParentID = assets[(i+1)%size].ID
	}
	return assets
}
