package software

import (
	"errors"
	"slices"
	"testing"

	"github.com/AntoineGS/swselect/internal/tasks"
)

func TestEffectiveSelection_ExplicitChoiceWins(t *testing.T) {
	tests := []struct {
		name  string
		state AddonState
		want  bool
	}{
		{"selected", AddonSelected, true},
		{"deselected", AddonDeselected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newLoadedController(newWorkstationPayload())
			c.states["gnome"] = tt.state
			c.states["games"] = tt.state

			for _, env := range []Environment{"workstation", "server"} {
				for _, g := range []Group{"gnome", "games"} {
					if got := c.EffectiveSelection(env, g); got != tt.want {
						t.Errorf("EffectiveSelection(%s, %s) = %v, want %v", env, g, got, tt.want)
					}
				}
			}
		})
	}
}

func TestEffectiveSelection_DefaultFollowsPayload(t *testing.T) {
	p := newWorkstationPayload()
	c := newLoadedController(p)

	tests := []struct {
		env   Environment
		group Group
		want  bool
	}{
		{"workstation", "gnome", true},
		{"workstation", "office", false},
		{"server", "gnome", false},
		{"server", "dns", false},
	}

	for _, tt := range tests {
		got := c.EffectiveSelection(tt.env, tt.group)
		if got != tt.want {
			t.Errorf("EffectiveSelection(%s, %s) = %v, want %v", tt.env, tt.group, got, tt.want)
		}
		if got != p.EnvironmentOptionIsDefault(tt.env, tt.group) {
			t.Errorf("EffectiveSelection(%s, %s) disagrees with payload default", tt.env, tt.group)
		}
	}
}

func TestToggleAddon(t *testing.T) {
	c := newLoadedController(newWorkstationPayload())

	// gnome is checked by default, so the first toggle deselects it.
	on, err := c.ToggleAddon("gnome")
	if err != nil {
		t.Fatalf("ToggleAddon() error = %v", err)
	}
	if on {
		t.Error("first toggle of a default add-on should uncheck it")
	}
	if got := c.AddonState("gnome"); got != AddonDeselected {
		t.Errorf("AddonState(gnome) = %v, want deselected", got)
	}
	if got := c.SelectedAddons(); len(got) != 0 {
		t.Errorf("SelectedAddons() = %v, want none", got)
	}

	on, err = c.ToggleAddon("gnome")
	if err != nil {
		t.Fatalf("ToggleAddon() error = %v", err)
	}
	if !on {
		t.Error("second toggle should check the add-on")
	}
	if got := c.SelectedGroups(); !slices.Equal(got, []Group{"gnome"}) {
		t.Errorf("SelectedGroups() = %v, want [gnome]", got)
	}
}

func TestToggleAddon_ClearsExclusion(t *testing.T) {
	c := New(newWorkstationPayload(), WithRunner(&tasks.Inline{}))
	c.Preselect(Snapshot{Environment: "workstation", ExcludedGroups: []Group{"games"}})
	if err := c.loadCatalog(); err != nil {
		t.Fatal(err)
	}
	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}

	if c.EffectiveSelection("workstation", "games") {
		t.Fatal("excluded group should start unchecked")
	}

	if _, err := c.ToggleAddon("games"); err != nil {
		t.Fatalf("ToggleAddon() error = %v", err)
	}

	if s := c.Snapshot(); slices.Contains(s.ExcludedGroups, "games") {
		t.Errorf("ExcludedGroups = %v, games should be removed", s.ExcludedGroups)
	}
}

func TestToggleAddon_Errors(t *testing.T) {
	c := New(newWorkstationPayload(), WithRunner(&tasks.Inline{}))
	if _, err := c.ToggleAddon("gnome"); !errors.Is(err, ErrNoCatalog) {
		t.Errorf("ToggleAddon() before load error = %v, want ErrNoCatalog", err)
	}

	c = newLoadedController(newWorkstationPayload())
	if _, err := c.ToggleAddon("core"); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("ToggleAddon(core) error = %v, want ErrUnknownGroup", err)
	}
}

func TestSwitchEnvironment_DropsPreviousGroups(t *testing.T) {
	c := newLoadedController(newWorkstationPayload())

	for _, g := range []Group{"office", "games", "dns"} {
		if _, err := c.ToggleAddon(g); err != nil {
			t.Fatalf("ToggleAddon(%s) error = %v", g, err)
		}
	}

	old, _ := c.Catalog().Addons("workstation")

	if err := c.SwitchEnvironment("server"); err != nil {
		t.Fatalf("SwitchEnvironment() error = %v", err)
	}

	for _, g := range c.SelectedGroups() {
		if old.Contains(g) {
			t.Errorf("selected group %s belonged to the previous environment", g)
		}
	}
	if got := c.AddonState("office"); got != AddonSelected {
		t.Errorf("AddonState(office) = %v, switching must keep user choices", got)
	}
	if c.Environment() != "server" {
		t.Errorf("Environment() = %s, want server", c.Environment())
	}
}

func TestSwitchEnvironment_Errors(t *testing.T) {
	c := newLoadedController(newWorkstationPayload())
	if _, err := c.ToggleAddon("office"); err != nil {
		t.Fatal(err)
	}

	if err := c.SwitchEnvironment("desktop"); !errors.Is(err, ErrUnknownEnvironment) {
		t.Errorf("SwitchEnvironment(desktop) error = %v, want ErrUnknownEnvironment", err)
	}

	if err := c.SwitchEnvironment("workstation"); err != nil {
		t.Errorf("SwitchEnvironment(current) error = %v", err)
	}
	if got := c.SelectedGroups(); !slices.Equal(got, []Group{"office"}) {
		t.Errorf("switching to the current environment changed the selection: %v", got)
	}
}

func TestEnvironmentSwitchKeepsAddonState(t *testing.T) {
	p := &fakePayload{
		envs:   []Environment{"E1", "E2"},
		groups: []Group{"A", "B", "C", "D"},
	}
	c := New(p, WithRunner(&tasks.Inline{}))
	c.catalog = &Catalog{
		environments: []Environment{"E1", "E2"},
		groups:       []Group{"A", "B", "C", "D"},
		addons: map[Environment]Addons{
			"E1": {Specific: []Group{"A"}, Generic: []Group{"B", "C"}},
			"E2": {Specific: []Group{"D"}, Generic: []Group{"B"}},
		},
	}
	c.states = AddonStates{"A": AddonDefault, "B": AddonDefault, "C": AddonDefault, "D": AddonDefault}

	if err := c.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if c.Environment() != "E1" {
		t.Fatalf("Environment() = %s, first environment should be selected", c.Environment())
	}
	assertAddonRows(t, c.View(), "A", "|", "B", "C")

	if _, err := c.ToggleAddon("C"); err != nil {
		t.Fatal(err)
	}
	if got := c.SelectedGroups(); !slices.Equal(got, []Group{"C"}) {
		t.Errorf("SelectedGroups() = %v, want [C]", got)
	}
	if c.AddonState("C") != AddonSelected {
		t.Errorf("AddonState(C) = %v, want selected", c.AddonState("C"))
	}

	if err := c.SwitchEnvironment("E2"); err != nil {
		t.Fatal(err)
	}
	if got := c.SelectedGroups(); len(got) != 0 {
		t.Errorf("SelectedGroups() after switch = %v, want none", got)
	}
	assertAddonRows(t, c.View(), "D", "|", "B")

	if err := c.SwitchEnvironment("E1"); err != nil {
		t.Fatal(err)
	}
	if got := c.SelectedGroups(); len(got) != 0 {
		t.Errorf("switching back reselected groups: %v", got)
	}
	if !c.EffectiveSelection("E1", "C") {
		t.Error("C should still render checked under E1")
	}

	for _, row := range c.View().Addons {
		if row.ID == "C" && !row.Selected {
			t.Error("row C should be checked")
		}
	}
}

// assertAddonRows compares add-on row ids, "|" standing for a separator.
func assertAddonRows(t *testing.T, v View, want ...string) {
	t.Helper()

	got := make([]string, 0, len(v.Addons))
	for _, row := range v.Addons {
		if row.Separator {
			got = append(got, "|")
			continue
		}
		got = append(got, string(row.ID))
	}

	if !slices.Equal(got, want) {
		t.Errorf("add-on rows = %v, want %v", got, want)
	}
}
