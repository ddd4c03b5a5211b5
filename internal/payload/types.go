// Package payload provides the package repository backend that software
// selection resolves against.
package payload

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// EnvironmentID identifies a top-level selectable software set, such as a
// desktop flavor.
type EnvironmentID string

// GroupID identifies an optional package group layered on an environment.
type GroupID string

// Catalog is the on-disk description of a repository: the environments it
// offers, the package groups, and the packages those groups pull in.
type Catalog struct {
	Name         string        `yaml:"name"`
	BaseRepo     string        `yaml:"base_repo,omitempty"`
	Environments []Environment `yaml:"environments"`
	Groups       []Group       `yaml:"groups"`
	Packages     []Package     `yaml:"packages"`
}

// Environment describes a selectable environment. Groups are always
// installed with the environment; Options are the add-on groups the
// environment offers specifically, some of them selected by default.
type Environment struct {
	ID          EnvironmentID `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Groups      []GroupID     `yaml:"groups,omitempty"`
	Options     []Option      `yaml:"options,omitempty"`
}

// Option is an add-on group offered by an environment.
type Option struct {
	Group   GroupID `yaml:"group"`
	Default bool    `yaml:"default,omitempty"`
}

// UnmarshalYAML accepts either a bare group id or a {group, default} mapping.
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	var id string
	if err := node.Decode(&id); err == nil {
		o.Group = GroupID(id)
		o.Default = false
		return nil
	}

	type optionAlias struct {
		Group   GroupID `yaml:"group"`
		Default bool    `yaml:"default"`
	}

	var alias optionAlias
	if err := node.Decode(&alias); err != nil {
		return fmt.Errorf("failed to decode option: expected group id or object with group/default: %w", err)
	}

	o.Group = alias.Group
	o.Default = alias.Default

	return nil
}

// Group is a package group. Hidden groups are only installable through an
// environment that lists them.
type Group struct {
	ID          GroupID  `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Visible     *bool    `yaml:"visible,omitempty"`
	Packages    []string `yaml:"packages,omitempty"`
}

// IsVisible reports whether the group may be offered on its own. Groups are
// visible unless explicitly hidden.
func (g Group) IsVisible() bool {
	return g.Visible == nil || *g.Visible
}

// Package is a single installable package with its dependency metadata.
type Package struct {
	Name      string   `yaml:"name"`
	Requires  []string `yaml:"requires,omitempty"`
	Conflicts []string `yaml:"conflicts,omitempty"`
}

// UnmarshalYAML accepts either a bare package name or a full mapping.
func (p *Package) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err == nil {
		p.Name = name
		p.Requires = nil
		p.Conflicts = nil
		return nil
	}

	type packageAlias struct {
		Name      string   `yaml:"name"`
		Requires  []string `yaml:"requires,omitempty"`
		Conflicts []string `yaml:"conflicts,omitempty"`
	}

	var alias packageAlias
	if err := node.Decode(&alias); err != nil {
		return fmt.Errorf("failed to decode package: expected name or object with name/requires/conflicts: %w", err)
	}

	p.Name = alias.Name
	p.Requires = alias.Requires
	p.Conflicts = alias.Conflicts

	return nil
}
