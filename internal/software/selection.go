package software

import (
	"fmt"
	"slices"
)

// EffectiveSelection reports whether g is checked under env. An explicit
// user choice wins; untouched groups fall back to the payload default for
// env.
func (c *Controller) EffectiveSelection(env Environment, g Group) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.effectiveLocked(env, g)
}

func (c *Controller) effectiveLocked(env Environment, g Group) bool {
	switch c.states.Get(g) {
	case AddonSelected:
		return true
	case AddonDeselected:
		return false
	}

	return c.payload.EnvironmentOptionIsDefault(env, g)
}

// ToggleAddon flips the displayed state of g under the current environment
// and records the result as an explicit user choice. It returns the new
// state.
func (c *Controller) ToggleAddon(g Group) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalog == nil {
		return false, ErrNoCatalog
	}

	addons, ok := c.catalog.Addons(c.environment)
	if !ok || !addons.Contains(g) {
		return false, fmt.Errorf("%w: %s", ErrUnknownGroup, g)
	}

	if c.effectiveLocked(c.environment, g) {
		c.selectedGroups = slices.DeleteFunc(c.selectedGroups, func(s Group) bool { return s == g })
		c.states[g] = AddonDeselected
		return false, nil
	}

	if !slices.Contains(c.selectedGroups, g) {
		c.selectedGroups = append(c.selectedGroups, g)
	}
	c.excludedGroups = slices.DeleteFunc(c.excludedGroups, func(s Group) bool { return s == g })
	c.states[g] = AddonSelected

	return true, nil
}

// SwitchEnvironment makes env current. Groups that belonged to the previous
// environment are dropped from the selection; recorded user choices are
// kept, so toggled add-ons render the same way when they are offered again.
func (c *Controller) SwitchEnvironment(env Environment) error {
	c.mu.Lock()

	if c.catalog == nil {
		c.mu.Unlock()
		return ErrNoCatalog
	}
	if !c.catalog.HasEnvironment(env) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownEnvironment, env)
	}
	if env == c.environment {
		c.mu.Unlock()
		return nil
	}

	if old := c.environment; old != "" {
		drop := c.payload.EnvironmentGroups(old)
		if addons, ok := c.catalog.Addons(old); ok {
			drop = append(drop, addons.All()...)
		}
		c.selectedGroups = slices.DeleteFunc(c.selectedGroups, func(g Group) bool {
			return slices.Contains(drop, g)
		})
	}

	next, _ := c.catalog.Addons(env)
	c.selectedGroups = slices.DeleteFunc(c.selectedGroups, func(g Group) bool {
		return !next.Contains(g)
	})
	c.environment = env
	c.mu.Unlock()

	return c.refreshAddons()
}

// SelectedAddons returns the add-ons currently checked for the current
// environment, specific ones first.
func (c *Controller) SelectedAddons() []Group {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selectedAddonsLocked()
}

func (c *Controller) selectedAddonsLocked() []Group {
	if c.catalog == nil || c.environment == "" {
		return nil
	}

	addons, _ := c.catalog.Addons(c.environment)

	var out []Group
	for _, g := range addons.All() {
		if c.effectiveLocked(c.environment, g) {
			out = append(out, g)
		}
	}

	return out
}

// SelectedGroups returns the groups that will be submitted on apply, in
// selection order.
func (c *Controller) SelectedGroups() []Group {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.selectedGroups)
}

// Snapshot returns what would be committed if the user left the screen now.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	selected := slices.Clone(c.selectedGroups)
	for _, g := range c.selectedAddonsLocked() {
		if !slices.Contains(selected, g) {
			selected = append(selected, g)
		}
	}

	return Snapshot{
		Environment:    c.environment,
		SelectedGroups: selected,
		ExcludedGroups: slices.Clone(c.excludedGroups),
	}
}
