// Package config loads experiment definitions from YAML files: which
// sampler to run, the forward model geometry, and the chain parameters.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noders-team/go-proxmc/pkg/mcmc"
	"github.com/noders-team/go-proxmc/pkg/wavelet"
)

// Chain holds the sampler parameters as they appear in experiment files.
type Chain struct {
	NSamples  int     `yaml:"nsamples"`
	NBurn     int     `yaml:"nburn"`
	NGap      int     `yaml:"ngap"`
	Delta     float64 `yaml:"delta"`
	Lambda    float64 `yaml:"lambda"`
	Mu        float64 `yaml:"mu"`
	Complex   bool    `yaml:"complex"`
	Verbosity int     `yaml:"verbosity"`
	Seed      uint64  `yaml:"seed"`
}

// Params converts the YAML form into sampler parameters.
func (c Chain) Params() mcmc.Params {
	return mcmc.Params{
		NSamples:  c.NSamples,
		NBurn:     c.NBurn,
		NGap:      c.NGap,
		Delta:     c.Delta,
		Lambda:    c.Lambda,
		Mu:        c.Mu,
		Complex:   c.Complex,
		Verbosity: c.Verbosity,
		Seed:      c.Seed,
	}
}

// Experiment is a full experiment definition.
type Experiment struct {
	Name     string  `yaml:"name"`
	Sampler  string  `yaml:"sampler"`  // myula, pxmala or skrock
	Operator string  `yaml:"operator"` // identity, iswt, swc2pix or pathintegral
	Setting  string  `yaml:"setting"`  // analysis or synthesis
	L        int     `yaml:"L"`
	B        float64 `yaml:"B"`
	JMin     int     `yaml:"j_min"`
	SigD     float64 `yaml:"sig_d"`
	Chain    Chain   `yaml:"chain"`
	NChains  int     `yaml:"nchains"`

	// Synthetic observations are generated from this seed; experiments
	// carry no external data dependencies.
	DataSeed uint64 `yaml:"data_seed"`

	// Path-integral geometry.
	NPaths     int `yaml:"npaths"`
	PathPoints int `yaml:"path_points"`

	// Output is the chain database location.
	Output string `yaml:"output"`
}

var samplers = map[string]bool{"myula": true, "pxmala": true, "skrock": true}
var operators = map[string]bool{"identity": true, "iswt": true, "swc2pix": true, "pathintegral": true}

// Load reads and validates an experiment file.
func Load(path string) (*Experiment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config '%s': %w", path, err)
	}
	exp := &Experiment{
		Setting:    "synthesis",
		NChains:    1,
		PathPoints: 100,
	}
	if err := yaml.Unmarshal(raw, exp); err != nil {
		return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	if err := exp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", path, err)
	}
	return exp, nil
}

// Validate checks the experiment for range errors before anything is
// allocated.
func (e *Experiment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("experiment name is required")
	}
	if !samplers[e.Sampler] {
		return fmt.Errorf("unknown sampler %q", e.Sampler)
	}
	if !operators[e.Operator] {
		return fmt.Errorf("unknown operator %q", e.Operator)
	}
	if e.Setting != "analysis" && e.Setting != "synthesis" {
		return fmt.Errorf("setting must be analysis or synthesis, got %q", e.Setting)
	}
	if e.Setting == "analysis" && e.Operator != "identity" {
		return fmt.Errorf("analysis setting is only wired for the identity operator")
	}
	if e.L < 2 {
		return fmt.Errorf("band-limit must be at least 2, got %d", e.L)
	}
	if e.Operator != "identity" || e.Setting == "analysis" {
		if e.B <= 1 {
			return fmt.Errorf("dilation parameter must exceed 1, got %g", e.B)
		}
		if jMax := wavelet.JMax(e.B, e.L); e.JMin < 0 || e.JMin > jMax {
			return fmt.Errorf("minimum scale %d outside [0, %d]", e.JMin, jMax)
		}
	}
	if e.SigD <= 0 {
		return fmt.Errorf("noise level must be positive, got %g", e.SigD)
	}
	if e.NChains < 1 {
		return fmt.Errorf("need at least one chain, got %d", e.NChains)
	}
	if e.Operator == "pathintegral" {
		if e.NPaths < 1 {
			return fmt.Errorf("path-integral operator needs npaths >= 1, got %d", e.NPaths)
		}
		if e.PathPoints < 2 {
			return fmt.Errorf("path discretisation needs at least 2 points, got %d", e.PathPoints)
		}
	}
	if e.Output == "" {
		return fmt.Errorf("output database path is required")
	}
	return e.Chain.Params().Validate()
}
