package rules

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SetConfig is the on-disk rule set.
//
//	rules:
//	  - name: title_length
//	    params: {min_length: 2}
//	  - name: creation_date
//	    params: {max_date: 2023-01-01}
type SetConfig struct {
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig selects one catalog rule and its parameters.
type RuleConfig struct {
	Name     string `yaml:"name"`
	Params   Params `yaml:"params,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// DefaultRules is the rule set used when no rules file is configured.
var DefaultRules = []string{
	"title_length",
	"creation_date",
	"first_row_sum",
	"footer_metadata",
	"row_width",
}

// DefaultSet builds DefaultRules with default parameters.
func DefaultSet() []Validator {
	set := make([]Validator, 0, len(DefaultRules))
	for _, name := range DefaultRules {
		v, err := Build(name, nil)
		if err != nil {
			// Built-ins with default parameters always build.
			panic(err)
		}
		set = append(set, v)
	}
	return set
}

// LoadSet reads a rule set from a YAML file.
func LoadSet(path string) ([]Validator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()

	set, err := ParseSet(f)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return set, nil
}

// ParseSet decodes a YAML rule set and builds every enabled rule in file
// order. All invalid entries are reported together.
func ParseSet(r io.Reader) ([]Validator, error) {
	var cfg SetConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("rule set is empty")
		}
		return nil, fmt.Errorf("decode rule set: %w", err)
	}
	return BuildSet(cfg)
}

// BuildSet builds the enabled rules of cfg. A set that enables no rule is
// an error.
func BuildSet(cfg SetConfig) ([]Validator, error) {
	var (
		set  []Validator
		errs []error
		seen = make(map[string]bool)
	)
	for i, rc := range cfg.Rules {
		if rc.Name == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: missing name", i))
			continue
		}
		if seen[rc.Name] {
			errs = append(errs, fmt.Errorf("rules[%d]: %s listed twice", i, rc.Name))
			continue
		}
		seen[rc.Name] = true
		if rc.Disabled {
			continue
		}
		v, err := Build(rc.Name, rc.Params)
		if err != nil {
			errs = append(errs, fmt.Errorf("rules[%d]: %w", i, err))
			continue
		}
		set = append(set, v)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, errors.New("rule set enables no rules")
	}
	return set, nil
}
