package software

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/AntoineGS/swselect/internal/payload"
	"github.com/AntoineGS/swselect/internal/tasks"
)

// fakePayload is an in-memory Payload with switchable failures.
type fakePayload struct {
	defaults    map[Environment][]Group
	options     map[Environment][]Group
	mandatory   map[Environment][]Group
	hidden      map[Group]bool
	empty       map[Group]bool
	names       map[string]string
	metadataErr error
	checkErr    error
	// gate, when set, holds every dependency check until it is closed.
	gate        chan struct{}
	txID        string
	selectedEnv Environment
	envs        []Environment
	groups      []Group
	selected    []Group
	checks      int
	noBaseRepo  bool
	released    bool
	mu          sync.Mutex
}

func (f *fakePayload) Environments() ([]Environment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.metadataErr != nil {
		return nil, f.metadataErr
	}

	return slices.Clone(f.envs), nil
}

func (f *fakePayload) Groups() ([]Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.metadataErr != nil {
		return nil, f.metadataErr
	}

	return slices.Clone(f.groups), nil
}

func (f *fakePayload) EnvironmentDescription(env Environment) (string, string, error) {
	if !slices.Contains(f.envs, env) {
		return "", "", payload.ErrNoSuchEnvironment
	}
	if name, ok := f.names[string(env)]; ok {
		return name, "the " + name + " environment", nil
	}

	return string(env), "", nil
}

func (f *fakePayload) GroupDescription(grp Group) (string, string, error) {
	if !slices.Contains(f.groups, grp) {
		return "", "", payload.ErrNoSuchGroup
	}
	if name, ok := f.names[string(grp)]; ok {
		return name, "", nil
	}

	return string(grp), "", nil
}

func (f *fakePayload) EnvironmentHasOption(env Environment, grp Group) bool {
	return slices.Contains(f.options[env], grp)
}

func (f *fakePayload) EnvironmentOptionIsDefault(env Environment, grp Group) bool {
	return slices.Contains(f.defaults[env], grp)
}

func (f *fakePayload) EnvironmentGroups(env Environment) []Group {
	return append(slices.Clone(f.mandatory[env]), f.options[env]...)
}

func (f *fakePayload) IsGroupVisible(grp Group) bool { return !f.hidden[grp] }

func (f *fakePayload) HasInstallableMembers(grp Group) bool { return !f.empty[grp] }

func (f *fakePayload) ResetGroups() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.selectedEnv = ""
	f.selected = nil
}

func (f *fakePayload) SelectEnvironment(env Environment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !slices.Contains(f.envs, env) {
		return payload.ErrNoSuchEnvironment
	}
	f.selectedEnv = env

	return nil
}

func (f *fakePayload) SelectGroup(grp Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !slices.Contains(f.groups, grp) {
		return payload.ErrNoSuchGroup
	}
	f.selected = append(f.selected, grp)

	return nil
}

func (f *fakePayload) CheckSoftwareSelection(context.Context) error {
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.checks++
	f.txID = fmt.Sprintf("tx-%d", f.checks)

	return f.checkErr
}

func (f *fakePayload) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.checks
}

func (f *fakePayload) TxID() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.txID
}

func (f *fakePayload) BaseRepo() (string, bool) {
	if f.noBaseRepo {
		return "", false
	}

	return "file:///repo", true
}

func (f *fakePayload) Release() { f.released = true }

// sourceChanged simulates a new installation source.
func (f *fakePayload) sourceChanged() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.txID = ""
}

// newWorkstationPayload has two environments sharing the generic groups
// "games" and "web". "core" is mandatory and hidden, "empty" has nothing
// to install.
func newWorkstationPayload() *fakePayload {
	return &fakePayload{
		envs:   []Environment{"workstation", "server"},
		groups: []Group{"core", "gnome", "office", "dns", "games", "web", "empty"},
		options: map[Environment][]Group{
			"workstation": {"gnome", "office"},
			"server":      {"dns"},
		},
		defaults: map[Environment][]Group{
			"workstation": {"gnome"},
		},
		mandatory: map[Environment][]Group{
			"workstation": {"core"},
			"server":      {"core"},
		},
		hidden: map[Group]bool{"core": true},
		empty:  map[Group]bool{"empty": true},
		names: map[string]string{
			"workstation": "Workstation",
			"server":      "Server",
			"gnome":       "GNOME",
		},
	}
}

// recordingHub keeps every notification as a short string.
type recordingHub struct {
	events []string
	mu     sync.Mutex
}

func (h *recordingHub) NotReady(screen string) { h.add("not-ready " + screen) }

func (h *recordingHub) Ready(screen string, _ bool) { h.add("ready " + screen) }

func (h *recordingHub) PostMessage(screen, text string) { h.add("msg " + screen + ": " + text) }

func (h *recordingHub) add(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append(h.events, e)
}

func (h *recordingHub) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return slices.Clone(h.events)
}

func (h *recordingHub) count(e string) int {
	n := 0
	for _, got := range h.Events() {
		if got == e {
			n++
		}
	}

	return n
}

// deferredRunner queues tasks until the test runs them, in any order.
type deferredRunner struct {
	running map[string]int
	queue   []deferredTask
}

type deferredTask struct {
	fn   func(context.Context) error
	name string
}

func (r *deferredRunner) Go(name string, fn func(ctx context.Context) error) {
	if r.running == nil {
		r.running = make(map[string]int)
	}
	r.running[name]++
	r.queue = append(r.queue, deferredTask{name: name, fn: fn})
}

func (r *deferredRunner) Running(name string) bool { return r.running[name] > 0 }

func (r *deferredRunner) Wait(string) {}

// run executes the i-th queued task and returns its error.
func (r *deferredRunner) run(i int) error {
	task := r.queue[i]
	err := task.fn(context.Background())
	r.running[task.name]--

	return err
}

type recordedSelection struct {
	environment string
	txID        string
	groups      []string
}

type fakeRecorder struct {
	saved []recordedSelection
}

func (r *fakeRecorder) SaveSelection(environment string, groups []string, txID string) error {
	r.saved = append(r.saved, recordedSelection{environment: environment, groups: groups, txID: txID})
	return nil
}

// newLoadedController builds a controller over p with a synchronous
// runner, loads the catalog and performs the first refresh.
func newLoadedController(p *fakePayload, opts ...Option) *Controller {
	opts = append([]Option{WithRunner(&tasks.Inline{})}, opts...)
	c := New(p, opts...)
	if err := c.loadCatalog(); err != nil {
		panic(err)
	}
	if err := c.Refresh(); err != nil {
		panic(err)
	}

	return c
}
