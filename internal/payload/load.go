package payload

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided, intentional
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	return ParseCatalog(data)
}

// ParseCatalog parses and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks ids are present and unique and that every reference
// between environments, groups and packages resolves.
func (c *Catalog) Validate() error {
	errs := &ValidationErrors{}

	groups := make(map[GroupID]bool, len(c.Groups))
	for i, g := range c.Groups {
		if g.ID == "" {
			errs.Add(fmt.Errorf("group #%d: missing id", i+1))
			continue
		}
		if groups[g.ID] {
			errs.Add(fmt.Errorf("group %s: duplicate id", g.ID))
		}
		groups[g.ID] = true
	}

	envs := make(map[EnvironmentID]bool, len(c.Environments))
	for i, env := range c.Environments {
		if env.ID == "" {
			errs.Add(fmt.Errorf("environment #%d: missing id", i+1))
			continue
		}
		if envs[env.ID] {
			errs.Add(fmt.Errorf("environment %s: duplicate id", env.ID))
		}
		envs[env.ID] = true

		for _, g := range env.Groups {
			if !groups[g] {
				errs.Add(fmt.Errorf("environment %s: group %s: %w", env.ID, g, ErrNoSuchGroup))
			}
		}
		for _, opt := range env.Options {
			if !groups[opt.Group] {
				errs.Add(fmt.Errorf("environment %s: option %s: %w", env.ID, opt.Group, ErrNoSuchGroup))
			}
		}
	}

	pkgs := make(map[string]bool, len(c.Packages))
	for i, p := range c.Packages {
		if p.Name == "" {
			errs.Add(fmt.Errorf("package #%d: missing name", i+1))
			continue
		}
		if pkgs[p.Name] {
			errs.Add(fmt.Errorf("package %s: duplicate name", p.Name))
		}
		pkgs[p.Name] = true
	}

	if errs.HasErrors() {
		return errs
	}

	return nil
}
