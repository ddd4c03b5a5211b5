package software

// TxIDValid reports whether the last applied transaction id still matches
// the payload. It turns false when the source changes or a check fails.
func (c *Controller) TxIDValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.txIDValidLocked()
}

func (c *Controller) txIDValidLocked() bool {
	return c.applied.TxID == c.payload.TxID()
}

// Completed reports whether the installer may move past the screen: no
// check is pending or failed, the transaction id is valid, and either an
// environment is selected or, for automated installs, packages were seen.
func (c *Controller) Completed() bool {
	running := c.runner.Running(TaskCheckSoftware)

	c.mu.Lock()
	defer c.mu.Unlock()

	done := !running &&
		c.check.Status != CheckRunning &&
		c.check.Status != CheckError &&
		c.txIDValidLocked()

	if c.mode.Automated {
		return done && c.mode.PackagesSeen
	}

	return c.environment != "" && done
}

// Changed reports whether applying now would differ from the last apply:
// no environment is selected, the environment or checked add-ons differ,
// or the transaction id went stale.
func (c *Controller) Changed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.environment == "" {
		return true
	}
	if c.environment != c.applied.Environment {
		return true
	}
	if !sameGroups(c.selectedAddonsLocked(), c.applied.Groups) {
		return true
	}

	return !c.txIDValidLocked()
}

func sameGroups(a, b []Group) bool {
	set := make(map[Group]bool, len(a))
	for _, g := range a {
		set[g] = true
	}
	other := make(map[Group]bool, len(b))
	for _, g := range b {
		if !set[g] {
			return false
		}
		other[g] = true
	}

	return len(set) == len(other)
}

// Ready reports whether the screen can be entered: no catalog or check work
// is pending and the payload has a base repository.
func (c *Controller) Ready() bool {
	if c.runner.Running(TaskSoftwareWatcher) ||
		c.runner.Running(TaskPayloadMetadata) ||
		c.runner.Running(TaskCheckSoftware) {
		return false
	}

	_, ok := c.payload.BaseRepo()

	return ok
}

// Showable reports whether the screen is offered at all. Live images
// install a fixed payload.
func (c *Controller) Showable() bool {
	return !c.Mode().LiveImage
}

// Status returns the one-line summary shown for the screen.
func (c *Controller) Status() string {
	if c.CheckState().Status == CheckError {
		return StatusCheckError
	}
	if !c.Ready() {
		return StatusNotSetUp
	}
	if !c.TxIDValid() {
		return StatusSourceChanged
	}

	c.mu.Lock()
	env, mode := c.environment, c.mode
	c.mu.Unlock()

	if env == "" {
		if mode.Automated && mode.PackagesSeen {
			return StatusCustom
		}
		return StatusNothing
	}

	name, _, err := c.payload.EnvironmentDescription(env)
	if err != nil || name == "" {
		return string(env)
	}

	return name
}

// Warning returns the banner text, empty when there is nothing to warn
// about.
func (c *Controller) Warning() string {
	if c.CheckState().Status == CheckError {
		return WarningCheckFailed
	}

	return ""
}
