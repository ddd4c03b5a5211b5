package software

import (
	"fmt"
	"slices"
)

// Catalog maps every environment to the add-ons offered with it. It is
// rebuilt wholesale on each metadata refresh.
type Catalog struct {
	addons       map[Environment]Addons
	environments []Environment
	groups       []Group
}

// BuildCatalog reads the payload catalog and partitions the groups of every
// environment: groups the environment lists as options are specific to it;
// of the remaining groups, the visible ones with installable members are
// generic; the rest are not offered. Both lists keep catalog order. The
// returned AddonStates has every group at AddonDefault.
func BuildCatalog(p Payload) (*Catalog, AddonStates, error) {
	envs, err := p.Environments()
	if err != nil {
		return nil, nil, fmt.Errorf("listing environments: %w", err)
	}

	groups, err := p.Groups()
	if err != nil {
		return nil, nil, fmt.Errorf("listing groups: %w", err)
	}

	c := &Catalog{
		addons:       make(map[Environment]Addons, len(envs)),
		environments: slices.Clone(envs),
		groups:       slices.Clone(groups),
	}

	for _, env := range envs {
		var a Addons
		for _, grp := range groups {
			if p.EnvironmentHasOption(env, grp) {
				a.Specific = append(a.Specific, grp)
			} else if p.IsGroupVisible(grp) && p.HasInstallableMembers(grp) {
				a.Generic = append(a.Generic, grp)
			}
		}
		c.addons[env] = a
	}

	states := make(AddonStates, len(groups))
	for _, grp := range groups {
		states[grp] = AddonDefault
	}

	return c, states, nil
}

// Environments returns the environments in catalog order.
func (c *Catalog) Environments() []Environment {
	return slices.Clone(c.environments)
}

// Groups returns every group known to the catalog.
func (c *Catalog) Groups() []Group {
	return slices.Clone(c.groups)
}

// HasEnvironment reports whether env is part of the catalog.
func (c *Catalog) HasEnvironment(env Environment) bool {
	_, ok := c.addons[env]
	return ok
}

// Addons returns the add-ons offered with env.
func (c *Catalog) Addons(env Environment) (Addons, bool) {
	a, ok := c.addons[env]
	return a, ok
}
