package software

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/AntoineGS/swselect/internal/payload"
	"github.com/AntoineGS/swselect/internal/tasks"
)

func TestApply_NoEnvironmentIsNoop(t *testing.T) {
	p := newWorkstationPayload()
	h := &recordingHub{}
	c := New(p, WithRunner(&tasks.Inline{}), WithHub(h))
	if err := c.loadCatalog(); err != nil {
		t.Fatal(err)
	}

	launched, err := c.Apply()
	if err != nil || launched {
		t.Fatalf("Apply() = %v, %v, want no-op", launched, err)
	}

	if got := c.Applied(); got.Environment != "" || got.TxID != "" || got.Groups != nil {
		t.Errorf("Applied() = %+v, want zero record", got)
	}
	if got := c.CheckState(); got.Status != CheckIdle {
		t.Errorf("CheckState() = %v, want idle", got.Status)
	}
	if c.Mode().PackagesSeen {
		t.Error("a no-op apply must not mark packages as seen")
	}
	if p.checks != 0 || len(h.Events()) != 0 {
		t.Errorf("no check or notification expected, got %d checks, events %v", p.checks, h.Events())
	}
}

func TestApply_SubmitsSelection(t *testing.T) {
	p := newWorkstationPayload()
	h := &recordingHub{}
	rec := &fakeRecorder{}
	c := newLoadedController(p, WithHub(h), WithRecorder(rec))

	if _, err := c.ToggleAddon("games"); err != nil {
		t.Fatal(err)
	}

	launched, err := c.Apply()
	if err != nil || !launched {
		t.Fatalf("Apply() = %v, %v, want launched", launched, err)
	}

	if p.selectedEnv != "workstation" {
		t.Errorf("payload environment = %s, want workstation", p.selectedEnv)
	}
	if !slices.Equal(p.selected, []Group{"games", "gnome"}) {
		t.Errorf("payload groups = %v, want [games gnome]", p.selected)
	}

	applied := c.Applied()
	if applied.Environment != "workstation" || applied.TxID != "tx-1" {
		t.Errorf("Applied() = %+v", applied)
	}
	if !c.Completed() {
		t.Error("Completed() should be true after a clean check")
	}
	if !c.Mode().PackagesSeen {
		t.Error("Apply() should mark packages as seen")
	}

	want := []string{
		"not-ready SoftwareSelection",
		"not-ready InstallationSource",
		"msg SoftwareSelection: Checking software dependencies...",
		"ready SoftwareSelection",
		"ready InstallationSource",
	}
	if got := h.Events(); !slices.Equal(got, want) {
		t.Errorf("hub events = %v, want %v", got, want)
	}

	if len(rec.saved) != 1 {
		t.Fatalf("recorded %d selections, want 1", len(rec.saved))
	}
	if got := rec.saved[0]; got.environment != "workstation" || got.txID != "tx-1" ||
		!slices.Equal(got.groups, []string{"games", "gnome"}) {
		t.Errorf("recorded selection = %+v", got)
	}
}

func TestApply_SkipsUnchangedSelection(t *testing.T) {
	p := newWorkstationPayload()
	c := newLoadedController(p)

	if _, err := c.Apply(); err != nil {
		t.Fatal(err)
	}
	if c.Changed() {
		t.Fatal("Changed() should be false right after a clean check")
	}

	launched, err := c.Apply()
	if err != nil {
		t.Fatal(err)
	}
	if launched || p.checks != 1 {
		t.Errorf("second Apply() launched = %v with %d checks, want skip", launched, p.checks)
	}

	p.sourceChanged()
	if c.TxIDValid() {
		t.Fatal("TxIDValid() should be false once the source changed")
	}
	if !c.Changed() {
		t.Error("Changed() should report a stale transaction")
	}
	if got := c.Status(); got != StatusSourceChanged {
		t.Errorf("Status() = %q, want %q", got, StatusSourceChanged)
	}

	launched, err = c.Apply()
	if err != nil || !launched || p.checks != 2 {
		t.Errorf("Apply() after source change = %v, %v with %d checks", launched, err, p.checks)
	}
}

func TestChanged(t *testing.T) {
	c := newLoadedController(newWorkstationPayload())
	if !c.Changed() {
		t.Error("Changed() should be true before anything was applied")
	}

	if _, err := c.Apply(); err != nil {
		t.Fatal(err)
	}

	if _, err := c.ToggleAddon("office"); err != nil {
		t.Fatal(err)
	}
	if !c.Changed() {
		t.Error("Changed() should see the new add-on")
	}

	if _, err := c.ToggleAddon("office"); err != nil {
		t.Fatal(err)
	}
	if c.Changed() {
		t.Error("toggling back should restore the applied selection")
	}

	if err := c.SwitchEnvironment("server"); err != nil {
		t.Fatal(err)
	}
	if !c.Changed() {
		t.Error("Changed() should see the new environment")
	}
}

func TestApply_DependencyConflicts(t *testing.T) {
	p := newWorkstationPayload()
	p.checkErr = payload.NewDependencyError("pkg-z missing", "pkg-x conflicts with pkg-y")
	h := &recordingHub{}
	c := newLoadedController(p, WithHub(h))

	if _, err := c.Apply(); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got, want := c.ErrorMessage(), "pkg-x conflicts with pkg-y\npkg-z missing"; got != want {
		t.Errorf("ErrorMessage() = %q, want %q", got, want)
	}
	if c.Completed() {
		t.Error("Completed() should be false while conflicts remain")
	}
	if c.Applied().TxID != "" {
		t.Error("a failed check must invalidate the transaction id")
	}
	if got := c.Status(); got != StatusCheckError {
		t.Errorf("Status() = %q, want %q", got, StatusCheckError)
	}
	if got := c.Warning(); got != WarningCheckFailed {
		t.Errorf("Warning() = %q", got)
	}
	if h.count("msg SoftwareSelection: "+MsgCheckFailed) != 1 {
		t.Errorf("hub events = %v, want a check failure message", h.Events())
	}

	p.checkErr = nil
	if !c.Changed() {
		t.Fatal("Changed() should be true after a failed check")
	}
	if _, err := c.Apply(); err != nil {
		t.Fatal(err)
	}
	if !c.Completed() || c.ErrorMessage() != "" || c.Warning() != "" {
		t.Error("a clean check should clear the error")
	}
}

func TestApply_UnexpectedCheckError(t *testing.T) {
	boom := errors.New("solver crashed")
	p := newWorkstationPayload()
	p.checkErr = boom
	runner := &tasks.Inline{}
	c := newLoadedController(p, WithRunner(runner))

	if _, err := c.Apply(); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if err := runner.Err(TaskCheckSoftware); !errors.Is(err, boom) {
		t.Errorf("check task error = %v, want %v", err, boom)
	}
	if got := c.CheckState(); got.Status != CheckError || got.Message != "solver crashed" {
		t.Errorf("CheckState() = %+v", got)
	}
	if c.Completed() {
		t.Error("Completed() should be false after an unexpected error")
	}
}

func TestApply_SelectionErrorsPropagate(t *testing.T) {
	p := newWorkstationPayload()
	c := newLoadedController(p)
	c.selectedGroups = append(c.selectedGroups, "nonexistent")

	_, err := c.Apply()
	if !errors.Is(err, payload.ErrNoSuchGroup) {
		t.Fatalf("Apply() error = %v, want ErrNoSuchGroup", err)
	}
	if c.CheckState().Status != CheckIdle || p.checks != 0 {
		t.Error("no check should start when the payload rejects the selection")
	}
}

func TestApply_SkipsExcludedGroups(t *testing.T) {
	p := newWorkstationPayload()
	c := New(p, WithRunner(&tasks.Inline{}))
	c.Preselect(Snapshot{
		Environment:    "workstation",
		SelectedGroups: []Group{"web"},
		ExcludedGroups: []Group{"gnome"},
	})
	if err := c.loadCatalog(); err != nil {
		t.Fatal(err)
	}
	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Apply(); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(p.selected, []Group{"web"}) {
		t.Errorf("payload groups = %v, want [web]", p.selected)
	}
}

func TestApply_SupersededCheckIsDiscarded(t *testing.T) {
	t.Run("newer finishes first", func(t *testing.T) {
		p := newWorkstationPayload()
		r := &deferredRunner{}
		h := &recordingHub{}
		c := newLoadedController(p, WithRunner(r), WithHub(h))

		applyTwice(t, c)

		if err := r.run(1); err != nil {
			t.Fatal(err)
		}
		if got := c.CheckState().Status; got != CheckOK {
			t.Fatalf("CheckState() = %v, want ok", got)
		}

		p.checkErr = payload.NewDependencyError("late conflict")
		if err := r.run(0); err != nil {
			t.Fatal(err)
		}

		if got := c.CheckState(); got.Status != CheckOK || got.Message != "" {
			t.Errorf("stale check overwrote state: %+v", got)
		}
		if n := h.count("ready SoftwareSelection"); n != 1 {
			t.Errorf("ready sent %d times, want 1", n)
		}
		if p.checks != 1 {
			t.Errorf("payload checked %d times, want 1", p.checks)
		}
		if !c.TxIDValid() || !c.Completed() {
			t.Errorf("TxIDValid() = %v, Completed() = %v after stale check, want true", c.TxIDValid(), c.Completed())
		}
		if got := c.Status(); got == StatusSourceChanged {
			t.Errorf("Status() = %q after stale check", got)
		}

		if _, err := c.ToggleAddon("web"); err != nil {
			t.Fatal(err)
		}
		if err := c.Refresh(); err != nil {
			t.Fatal(err)
		}
		for g, want := range map[Group]AddonState{"office": AddonSelected, "web": AddonSelected} {
			if got := c.AddonState(g); got != want {
				t.Errorf("AddonState(%s) = %v after Refresh, want %v", g, got, want)
			}
		}
	})

	t.Run("older finishes first", func(t *testing.T) {
		p := newWorkstationPayload()
		r := &deferredRunner{}
		c := newLoadedController(p, WithRunner(r))

		applyTwice(t, c)

		if err := r.run(0); err != nil {
			t.Fatal(err)
		}
		if got := c.CheckState().Status; got != CheckRunning {
			t.Errorf("CheckState() = %v, the newer check is still running", got)
		}
		if c.Completed() {
			t.Error("Completed() should wait for the newer check")
		}

		if err := r.run(1); err != nil {
			t.Fatal(err)
		}
		if !c.Completed() {
			t.Error("Completed() should be true once the newer check passed")
		}
		if got := c.Applied().TxID; got != "tx-1" {
			t.Errorf("Applied().TxID = %q, want tx-1", got)
		}
		if p.checks != 1 {
			t.Errorf("payload checked %d times, want only the newer selection", p.checks)
		}
	})
}

func TestApply_WaitsForRunningCheck(t *testing.T) {
	p := newWorkstationPayload()
	p.gate = make(chan struct{})
	r := tasks.NewRegistry(context.Background())
	defer r.Close()

	c := New(p, WithRunner(r))
	if err := c.loadCatalog(); err != nil {
		t.Fatal(err)
	}
	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}

	if launched, err := c.Apply(); err != nil || !launched {
		t.Fatalf("first Apply() = %v, %v", launched, err)
	}
	if _, err := c.ToggleAddon("office"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Apply()
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("second Apply() returned (%v) while the first check was running", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(p.gate)
	if err := <-done; err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	r.Wait(TaskCheckSoftware)

	if n := p.checkCount(); n != 2 {
		t.Errorf("payload checked %d times, want 2", n)
	}
	if !c.TxIDValid() || !c.Completed() {
		t.Errorf("TxIDValid() = %v, Completed() = %v, want true", c.TxIDValid(), c.Completed())
	}
	if got := c.Applied().TxID; got != "tx-2" {
		t.Errorf("Applied().TxID = %q, want tx-2", got)
	}
	if got := c.AddonState("office"); got != AddonSelected {
		t.Errorf("AddonState(office) = %v, want selected", got)
	}
}

func applyTwice(t *testing.T, c *Controller) {
	t.Helper()

	if launched, err := c.Apply(); err != nil || !launched {
		t.Fatalf("first Apply() = %v, %v", launched, err)
	}
	if _, err := c.ToggleAddon("office"); err != nil {
		t.Fatal(err)
	}
	if launched, err := c.Apply(); err != nil || !launched {
		t.Fatalf("second Apply() = %v, %v", launched, err)
	}
}
