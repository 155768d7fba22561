package detector

import (
	"sort"

	"Conflux/internal/domain/models"
)

// Config is one entry of the detector registry configuration.
type Config struct {
	Enabled bool    `yaml:"enabled"`
	Weight  float64 `yaml:"weight" default:"1.0"`
	Params  Params  `yaml:"params"`
}

// Constructor builds a detector from its parameters.
type Constructor func(p Params) Detector

var constructors = map[string]Constructor{}

// Register adds a detector constructor under a stable id. Called from the
// classic and smc packages' init functions.
func Register(id string, c Constructor) {
	constructors[id] = c
}

// Known returns all registered detector ids, sorted.
func Known() []string {
	ids := make([]string, 0, len(constructors))
	for id := range constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Set is the enabled detector collection plus its weights, built once per run.
type Set struct {
	Detectors []Detector
	Weights   map[string]float64
}

// Build instantiates every enabled, known detector from cfg. Unknown ids are
// ignored; ids missing from cfg stay disabled. Weights <= 0 are invalid and
// reported as a ConfigurationError.
func Build(cfg map[string]Config) (*Set, error) {
	s := &Set{Weights: make(map[string]float64)}

	ids := make([]string, 0, len(cfg))
	for id := range cfg {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := cfg[id]
		ctor, known := constructors[id]
		if !known || !c.Enabled {
			continue
		}
		w := c.Weight
		if w == 0 {
			w = 1.0
		}
		if w < 0 {
			return nil, &models.ConfigurationError{Field: "detectors." + id + ".weight", Msg: "must be positive"}
		}
		s.Detectors = append(s.Detectors, ctor(c.Params))
		s.Weights[id] = w
	}
	return s, nil
}
