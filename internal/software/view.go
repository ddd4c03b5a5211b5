package software

// EnvironmentRow is one entry of the single-select environment list.
type EnvironmentRow struct {
	ID          Environment `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Selected    bool        `json:"selected"`
}

// AddonRow is one entry of the multi-select add-on list. Separator rows
// carry no group and split specific add-ons from generic ones.
type AddonRow struct {
	ID          Group  `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Selected    bool   `json:"selected"`
	Specific    bool   `json:"specific,omitempty"`
	Separator   bool   `json:"separator,omitempty"`
}

// View is everything a presentation surface needs to draw the screen.
type View struct {
	Status       string           `json:"status"`
	Warning      string           `json:"warning,omitempty"`
	Environments []EnvironmentRow `json:"environments"`
	Addons       []AddonRow       `json:"addons"`
	Ready        bool             `json:"ready"`
	Completed    bool             `json:"completed"`
}

// View renders the current state into rows.
func (c *Controller) View() View {
	v := View{
		Status:    c.Status(),
		Warning:   c.Warning(),
		Ready:     c.Ready(),
		Completed: c.Completed(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalog == nil {
		return v
	}

	for _, env := range c.catalog.Environments() {
		name, desc, err := c.payload.EnvironmentDescription(env)
		if err != nil {
			name = string(env)
		}
		v.Environments = append(v.Environments, EnvironmentRow{
			ID:          env,
			Name:        name,
			Description: desc,
			Selected:    env == c.environment,
		})
	}

	addons, ok := c.catalog.Addons(c.environment)
	if !ok {
		return v
	}

	for _, g := range addons.Specific {
		v.Addons = append(v.Addons, c.addonRowLocked(g, true))
	}
	if len(addons.Specific) > 0 && len(addons.Generic) > 0 {
		v.Addons = append(v.Addons, AddonRow{Separator: true})
	}
	for _, g := range addons.Generic {
		v.Addons = append(v.Addons, c.addonRowLocked(g, false))
	}

	return v
}

func (c *Controller) addonRowLocked(g Group, specific bool) AddonRow {
	name, desc, err := c.payload.GroupDescription(g)
	if err != nil {
		name = string(g)
	}

	return AddonRow{
		ID:          g,
		Name:        name,
		Description: desc,
		Selected:    c.effectiveLocked(c.environment, g),
		Specific:    specific,
	}
}
