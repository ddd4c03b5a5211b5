package payload

import (
	"context"
	"fmt"
	"log/slog"
)

// CheckSoftwareSelection resolves the selected groups into an install set and
// verifies every package exists, every requirement is satisfiable and no two
// packages in the set conflict. Each call issues a new transaction id, even
// when the check fails.
func (r *Repo) CheckSoftwareSelection(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.catalog == nil {
		return ErrMetadataUnavailable
	}

	txID := r.bumpTxID()
	r.logger.Info("checking software selection",
		slog.String("tx", txID),
		slog.Int("groups", len(r.selectedGroups)))

	install, problems, err := r.resolveLocked(ctx)
	if err != nil {
		return err
	}

	if len(problems) > 0 {
		r.logger.Warn("checking dependencies: failed",
			slog.String("tx", txID),
			slog.Int("problems", len(problems)))
		return NewDependencyError(problems...)
	}

	if len(install) == 0 {
		r.logger.Debug("empty transaction", slog.String("tx", txID))
	}

	r.logger.Info("checking dependencies: success",
		slog.String("tx", txID),
		slog.Int("packages", len(install)))

	return nil
}

// resolveLocked walks the selected groups and their requirements. It returns
// the install set in resolution order and the problems found on the way.
func (r *Repo) resolveLocked(ctx context.Context) ([]string, []string, error) {
	var (
		install  []string
		problems []string
		queue    []string
	)
	seen := make(map[string]bool)
	reported := make(map[string]bool)

	report := func(msg string) {
		if !reported[msg] {
			reported[msg] = true
			problems = append(problems, msg)
		}
	}

	for _, grp := range r.selectedGroups {
		g, ok := r.groups[grp]
		if !ok {
			report(fmt.Sprintf("group %s missing", grp))
			continue
		}
		for _, name := range g.Packages {
			if _, ok := r.packages[name]; !ok {
				report(fmt.Sprintf("%s missing", name))
				continue
			}
			queue = append(queue, name)
		}
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("resolving dependencies: %w", err)
		}

		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		install = append(install, name)

		for _, req := range r.packages[name].Requires {
			if _, ok := r.packages[req]; !ok {
				report(fmt.Sprintf("nothing provides %s needed by %s", req, name))
				continue
			}
			queue = append(queue, req)
		}
	}

	for _, name := range install {
		for _, other := range r.packages[name].Conflicts {
			if !seen[other] {
				continue
			}
			// Report each pair once, from whichever side sorts first.
			a, b := name, other
			if b < a {
				a, b = b, a
			}
			report(fmt.Sprintf("%s conflicts with %s", a, b))
		}
	}

	return install, problems, nil
}
