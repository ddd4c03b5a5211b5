package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/AntoineGS/swselect/internal/config"
	"github.com/AntoineGS/swselect/internal/payload"
	"github.com/AntoineGS/swselect/internal/software"
)

const (
	testCatalog   = "testdata/catalog.yaml"
	testKickstart = "testdata/kickstart.yaml"
)

// isolate points HOME at a temp dir and clears the SWSELECT_* variables.
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{config.EnvCatalog, config.EnvStateDB, config.EnvAutomated, config.EnvLiveImage} {
		t.Setenv(name, "")
	}

	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestWriteCatalog(t *testing.T) {
	c, err := payload.LoadCatalog(testCatalog)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	var buf bytes.Buffer
	if err := writeCatalog(&buf, payload.NewRepoFromCatalog(c)); err != nil {
		t.Fatalf("writeCatalog() error = %v", err)
	}

	g := goldie.New(t)
	g.Assert(t, "list", buf.Bytes())
}

func TestRunInit(t *testing.T) {
	tests := []struct {
		name        string
		setupPath   func(t *testing.T) string
		wantErr     bool
		errContains string
	}{
		{
			name: "valid catalog",
			setupPath: func(_ *testing.T) string {
				return testCatalog
			},
		},
		{
			name: "non-existent catalog",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.yaml")
			},
			wantErr:     true,
			errContains: "catalog does not exist",
		},
		{
			name: "directory instead of file",
			setupPath: func(t *testing.T) string {
				return t.TempDir()
			},
			wantErr:     true,
			errContains: "not a file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)

			var out bytes.Buffer
			err := runInit(&out, tt.setupPath(t))

			if (err != nil) != tt.wantErr {
				t.Fatalf("runInit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("runInit() error = %q, want it to contain %q", err, tt.errContains)
				}
				return
			}

			cfg, err := config.LoadAppConfig()
			if err != nil {
				t.Fatalf("LoadAppConfig() error = %v", err)
			}
			if !filepath.IsAbs(cfg.Catalog) || filepath.Base(cfg.Catalog) != "catalog.yaml" {
				t.Errorf("saved catalog = %q", cfg.Catalog)
			}
		})
	}
}

func TestResolveConfig(t *testing.T) {
	t.Run("no configuration", func(t *testing.T) {
		isolate(t)

		_, _, err := resolveConfig(&options{})
		if !errors.Is(err, config.ErrAppConfigNotFound) {
			t.Errorf("resolveConfig() error = %v, want ErrAppConfigNotFound", err)
		}
	})

	t.Run("environment overrides app config", func(t *testing.T) {
		home := isolate(t)
		if err := runInit(&bytes.Buffer{}, testCatalog); err != nil {
			t.Fatalf("runInit() error = %v", err)
		}

		other := filepath.Join(home, "other.yaml")
		if err := os.WriteFile(other, []byte("name: other\n"), 0600); err != nil {
			t.Fatalf("writing catalog: %v", err)
		}
		t.Setenv(config.EnvCatalog, other)
		t.Setenv(config.EnvStateDB, filepath.Join(home, "state.db"))

		cfg, _, err := resolveConfig(&options{})
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if cfg.Catalog != other {
			t.Errorf("Catalog = %q, want %q", cfg.Catalog, other)
		}
		if cfg.StateDBPath() != filepath.Join(home, "state.db") {
			t.Errorf("StateDBPath() = %q", cfg.StateDBPath())
		}
	})

	t.Run("flag overrides environment", func(t *testing.T) {
		isolate(t)
		t.Setenv(config.EnvCatalog, "/nowhere/catalog.yaml")

		cfg, overrides, err := resolveConfig(&options{catalogPath: testCatalog, live: true})
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if filepath.Base(cfg.Catalog) != "catalog.yaml" || !filepath.IsAbs(cfg.Catalog) {
			t.Errorf("Catalog = %q, want absolute testdata catalog", cfg.Catalog)
		}
		if !overrides.LiveImage {
			t.Errorf("LiveImage = false with --live")
		}
	})
}

func TestSelectionSeed(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		seed, mode, err := selectionSeed(&options{})
		if err != nil || seed != nil || mode.Automated {
			t.Errorf("selectionSeed() = %v, %+v, %v", seed, mode, err)
		}
	})

	t.Run("flags", func(t *testing.T) {
		seed, mode, err := selectionSeed(&options{environment: "server", groups: []string{"web"}})
		if err != nil {
			t.Fatalf("selectionSeed() error = %v", err)
		}
		if seed.Environment != "server" || len(seed.SelectedGroups) != 1 || mode.Automated {
			t.Errorf("selectionSeed() = %+v, %+v", seed, mode)
		}
	})

	t.Run("kickstart", func(t *testing.T) {
		seed, mode, err := selectionSeed(&options{kickstartPath: testKickstart})
		if err != nil {
			t.Fatalf("selectionSeed() error = %v", err)
		}
		if !mode.Automated || !mode.PackagesSeen {
			t.Errorf("mode = %+v, want automated with packages seen", mode)
		}
		if seed.Environment != "server" || len(seed.ExcludedGroups) != 1 || seed.ExcludedGroups[0] != "games" {
			t.Errorf("seed = %+v", seed)
		}
	})

	t.Run("kickstart without packages", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ks.yaml")
		if err := os.WriteFile(path, []byte("lang: en_US\n"), 0600); err != nil {
			t.Fatalf("writing kickstart: %v", err)
		}

		seed, mode, err := selectionSeed(&options{kickstartPath: path})
		if err != nil {
			t.Fatalf("selectionSeed() error = %v", err)
		}
		if seed != nil || !mode.Automated || mode.PackagesSeen {
			t.Errorf("selectionSeed() = %v, %+v", seed, mode)
		}
	})
}

func TestCheckCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "check", "--catalog", testCatalog, "-e", "server", "-g", "web")
	if err != nil {
		t.Fatalf("check error = %v\n%s", err, out)
	}
	for _, want := range []string{"Environment: server", "Add-ons: web", "Status: Server"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q\n%s", want, out)
		}
	}

	out, err = execute(t, "check", "--catalog", testCatalog, "-g", "games", "-g", "web")
	if !errors.Is(err, errIncomplete) {
		t.Fatalf("check error = %v, want errIncomplete\n%s", err, out)
	}
	if !strings.Contains(out, software.StatusCheckError) {
		t.Errorf("check output missing %q\n%s", software.StatusCheckError, out)
	}

	out, err = execute(t, "history", "--catalog", testCatalog)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "server") || strings.Contains(out, "games") {
		t.Errorf("history should list only the passing selection\n%s", out)
	}
}

func TestCheckCommand_MissingCatalog(t *testing.T) {
	isolate(t)

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	out, err := execute(t, "check", "--catalog", missing)
	if !errors.Is(err, errIncomplete) {
		t.Fatalf("check error = %v, want errIncomplete", err)
	}
	if !strings.Contains(out, software.MsgNoSource) {
		t.Errorf("check output missing %q\n%s", software.MsgNoSource, out)
	}
}

func TestExportCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "export", "--catalog", testCatalog, "--kickstart", testKickstart)
	if err != nil {
		t.Fatalf("export error = %v\n%s", err, out)
	}

	want := "# software selection\n%packages\n@^server\n@web\n-@games\n%end\n"
	if out != want {
		t.Errorf("export output = %q, want %q", out, want)
	}
}

func TestInteractiveRequiresTerminal(t *testing.T) {
	isolate(t)

	_, err := execute(t, "--catalog", testCatalog)
	if err == nil || !strings.Contains(err.Error(), "requires a terminal") {
		t.Errorf("root command error = %v, want terminal requirement", err)
	}
}
