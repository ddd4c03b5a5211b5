package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kickstart is an unattended installation file. Only its package selection
// is read.
type Kickstart struct {
	Packages *PackageSelection `yaml:"packages"`
}

// PackageSelection is the packages section of a kickstart file.
type PackageSelection struct {
	Environment    string   `yaml:"environment,omitempty"`
	Groups         []string `yaml:"groups,omitempty"`
	ExcludedGroups []string `yaml:"excluded_groups,omitempty"`
}

// LoadKickstart reads the kickstart file at path. A file without a
// packages section yields a nil selection.
func LoadKickstart(path string) (*Kickstart, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided, intentional
	if err != nil {
		return nil, fmt.Errorf("reading kickstart: %w", err)
	}

	var ks Kickstart
	if err := yaml.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("parsing kickstart: %w", err)
	}

	if ks.Packages != nil {
		if err := ks.Packages.validate(path); err != nil {
			return nil, err
		}
	}

	return &ks, nil
}

func (p *PackageSelection) validate(path string) error {
	for _, g := range p.Groups {
		if strings.TrimSpace(g) == "" {
			return NewFieldError(path, "groups", g, ErrInvalidKickstart)
		}
	}

	for _, g := range p.ExcludedGroups {
		if strings.TrimSpace(g) == "" {
			return NewFieldError(path, "excluded_groups", g, ErrInvalidKickstart)
		}
		for _, sel := range p.Groups {
			if sel == g {
				return NewFieldError(path, "excluded_groups", g,
					fmt.Errorf("%w: group is both selected and excluded", ErrInvalidKickstart))
			}
		}
	}

	return nil
}
