package software

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/AntoineGS/swselect/internal/payload"
)

// Apply commits the current selection when it differs from the last applied
// one and marks packages as seen. It reports whether a dependency check was
// started. With no environment selected Apply does nothing.
func (c *Controller) Apply() (bool, error) {
	if c.Environment() == "" {
		return false, nil
	}

	c.mu.Lock()
	c.mode.PackagesSeen = true
	c.mu.Unlock()

	if !c.Changed() {
		c.logger.Debug("software selection unchanged, skipping dependency check")
		return false, nil
	}

	return c.apply()
}

// apply submits the selection to the payload and starts the dependency
// check in the background. A check still running is waited for first.
func (c *Controller) apply() (bool, error) {
	c.runner.Wait(TaskCheckSoftware)

	gen, env, groups, err := c.submit()
	if err != nil || env == "" {
		return false, err
	}

	c.runner.Go(TaskCheckSoftware, func(ctx context.Context) error {
		return c.checkSoftwareSelection(ctx, gen, env, groups)
	})

	return true, nil
}

// submit hands the selection to the payload and starts a new check
// generation. An empty environment means nothing was submitted.
func (c *Controller) submit() (uint64, Environment, []Group, error) {
	c.checkMu.Lock()
	defer c.checkMu.Unlock()

	c.mu.Lock()
	env := c.environment
	if env == "" {
		c.mu.Unlock()
		return 0, "", nil, nil
	}

	addons := c.selectedAddonsLocked()
	for _, g := range addons {
		if !slices.Contains(c.selectedGroups, g) {
			c.selectedGroups = append(c.selectedGroups, g)
		}
	}
	groups := slices.Clone(c.selectedGroups)
	excluded := slices.Clone(c.excludedGroups)
	c.mu.Unlock()

	c.payload.ResetGroups()
	if err := c.payload.SelectEnvironment(env); err != nil {
		return 0, "", nil, fmt.Errorf("selecting environment %s: %w", env, err)
	}
	for _, g := range groups {
		if slices.Contains(excluded, g) {
			continue
		}
		if err := c.payload.SelectGroup(g); err != nil {
			return 0, "", nil, fmt.Errorf("selecting group %s: %w", g, err)
		}
	}

	c.mu.Lock()
	c.applied.Environment = env
	c.applied.Groups = addons
	c.generation++
	gen := c.generation
	c.check = CheckState{Status: CheckRunning}
	c.mu.Unlock()

	c.logger.Info("applying software selection",
		slog.String("environment", string(env)),
		slog.Int("groups", len(groups)),
		slog.Uint64("generation", gen))

	c.hub.NotReady(ScreenName)
	c.hub.NotReady(SourceScreen)

	return gen, env, groups, nil
}

// checkSoftwareSelection is the dependency check task started by apply.
// A superseded generation never reaches the payload, so the transaction id
// always belongs to the latest check.
func (c *Controller) checkSoftwareSelection(ctx context.Context, gen uint64, env Environment, groups []Group) error {
	c.checkMu.Lock()
	defer c.checkMu.Unlock()

	if c.superseded(gen) {
		return nil
	}

	c.hub.PostMessage(ScreenName, MsgChecking)

	err := c.payload.CheckSoftwareSelection(ctx)
	txID := c.payload.TxID()

	return c.finishCheck(gen, txID, err, env, groups)
}

// superseded reports whether a later apply replaced check gen.
func (c *Controller) superseded(gen uint64) bool {
	c.mu.Lock()
	latest := c.generation
	c.mu.Unlock()

	if gen == latest {
		return false
	}
	c.logger.Debug("discarding superseded dependency check",
		slog.Uint64("generation", gen),
		slog.Uint64("latest", latest))

	return true
}

// finishCheck records the outcome of check gen. Outcomes of a check that a
// later apply superseded are dropped, and the screens stay not ready until
// the newer check finishes.
func (c *Controller) finishCheck(gen uint64, txID string, checkErr error, env Environment, groups []Group) error {
	c.mu.Lock()
	if gen != c.generation {
		latest := c.generation
		c.mu.Unlock()
		c.logger.Debug("discarding superseded dependency check",
			slog.Uint64("generation", gen),
			slog.Uint64("latest", latest))
		return nil
	}

	c.observedTx = txID

	var (
		depErr *payload.DependencyError
		result error
	)
	switch {
	case checkErr == nil:
		c.check = CheckState{Status: CheckOK}
		c.applied.TxID = txID
	case errors.As(checkErr, &depErr):
		c.check = CheckState{Status: CheckError, Message: depErr.Message()}
		c.applied.TxID = ""
	default:
		c.check = CheckState{Status: CheckError, Message: checkErr.Error()}
		c.applied.TxID = ""
		result = fmt.Errorf("checking software selection: %w", checkErr)
	}
	ok := checkErr == nil
	c.mu.Unlock()

	if !ok {
		c.hub.PostMessage(ScreenName, MsgCheckFailed)
	}

	if ok && c.recorder != nil {
		names := make([]string, len(groups))
		for i, g := range groups {
			names[i] = string(g)
		}
		if err := c.recorder.SaveSelection(string(env), names, txID); err != nil {
			c.logger.Warn("recording applied selection", slog.String("error", err.Error()))
		}
	}

	c.hub.Ready(ScreenName, false)
	c.hub.Ready(SourceScreen, false)

	return result
}
