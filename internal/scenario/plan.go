// Package scenario loads the run plan: which personas run, where, and what
// they order.
package scenario

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"diagflow/internal/actor"
	"diagflow/internal/address"
	"diagflow/internal/cart"
	"diagflow/internal/slot"
	dErrors "diagflow/pkg/domain-errors"
	pstrings "diagflow/pkg/platform/strings"
)

//go:embed default.yaml
var defaultPlan []byte

// Plan describes one verification run.
type Plan struct {
	Name     string   `yaml:"name"`
	Location string   `yaml:"location"`
	Brand    string   `yaml:"brand"`
	Tests    []string `yaml:"tests"`

	// CartCap bounds the items added per persona. Zero means cart.DefaultCap.
	CartCap int `yaml:"cart_cap,omitempty"`
	// SlotWindow is the number of days scanned for a slot. Zero means slot.DefaultWindow.
	SlotWindow int `yaml:"slot_window,omitempty"`
	// SlotOwner is the persona whose address the shared slot is resolved for.
	SlotOwner actor.Persona `yaml:"slot_owner"`

	Address  address.Address `yaml:"address"`
	Personas []PersonaPlan   `yaml:"personas"`
}

// PersonaPlan says how one persona obtains its mobile number.
type PersonaPlan struct {
	Persona actor.Persona `yaml:"persona"`
	// Mobile is used verbatim when set.
	Mobile string `yaml:"mobile,omitempty"`
	// MobileSetting names a configuration key holding the mobile.
	MobileSetting string `yaml:"mobile_setting,omitempty"`
	// Register creates a fresh user instead of logging in an existing one.
	Register bool `yaml:"register,omitempty"`
}

// Default returns the built-in plan.
func Default() (*Plan, error) {
	return Parse(defaultPlan)
}

// Load reads a plan file, rejecting unknown fields.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a plan document.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode plan")
	}
	if p.CartCap <= 0 {
		p.CartCap = cart.DefaultCap
	}
	if p.SlotWindow <= 0 {
		p.SlotWindow = slot.DefaultWindow
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// PersonaList returns the persona tags in plan order.
func (p *Plan) PersonaList() []actor.Persona {
	out := make([]actor.Persona, 0, len(p.Personas))
	for _, pp := range p.Personas {
		out = append(out, pp.Persona)
	}
	return out
}

func (p *Plan) validate() error {
	p.Tests = pstrings.DedupeFold(p.Tests)
	switch {
	case p.Location == "":
		return dErrors.New(dErrors.CodeInvalidInput, "plan: location is required")
	case p.Brand == "":
		return dErrors.New(dErrors.CodeInvalidInput, "plan: brand is required")
	case len(p.Tests) == 0:
		return dErrors.New(dErrors.CodeInvalidInput, "plan: at least one test is required")
	case len(p.Personas) == 0:
		return dErrors.New(dErrors.CodeInvalidInput, "plan: at least one persona is required")
	}

	seen := make(map[actor.Persona]bool, len(p.Personas))
	for i, pp := range p.Personas {
		if _, err := actor.ParsePersona(string(pp.Persona)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("plan: personas[%d]", i))
		}
		if seen[pp.Persona] {
			return dErrors.Newf(dErrors.CodeInvalidInput, "plan: persona %s listed twice", pp.Persona)
		}
		seen[pp.Persona] = true
		if !pp.Register && pp.Mobile == "" && pp.MobileSetting == "" {
			return dErrors.Newf(dErrors.CodeInvalidInput, "plan: persona %s needs mobile, mobile_setting or register", pp.Persona)
		}
	}

	if p.SlotOwner == "" {
		p.SlotOwner = p.Personas[0].Persona
	}
	if !seen[p.SlotOwner] {
		return dErrors.Newf(dErrors.CodeInvalidInput, "plan: slot_owner %s is not a planned persona", p.SlotOwner)
	}
	return nil
}
