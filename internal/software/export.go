package software

import (
	"fmt"
	"io"
	"text/template"

	"github.com/go-sprout/sprout"
	"github.com/go-sprout/sprout/registry/std"
	sproutstrings "github.com/go-sprout/sprout/registry/strings"
)

const kickstartTemplate = `# {{ .Title | trim | default "software selection" }}
%packages
{{- if .Environment }}
@^{{ .Environment }}
{{- end }}
{{- range .Groups }}
@{{ . }}
{{- end }}
{{- range .Excluded }}
-@{{ . }}
{{- end }}
%end
`

// KickstartData is the input of RenderKickstart.
type KickstartData struct {
	Title       string
	Environment Environment
	Groups      []Group
	Excluded    []Group
}

// Kickstart returns the current selection ready for export.
func (c *Controller) Kickstart(title string) KickstartData {
	s := c.Snapshot()

	return KickstartData{
		Title:       title,
		Environment: s.Environment,
		Groups:      s.SelectedGroups,
		Excluded:    s.ExcludedGroups,
	}
}

// RenderKickstart writes data as a kickstart %packages section.
func RenderKickstart(w io.Writer, data KickstartData) error {
	handler := sprout.New()
	if err := handler.AddRegistries(std.NewRegistry(), sproutstrings.NewRegistry()); err != nil {
		return fmt.Errorf("registering template functions: %w", err)
	}

	tmpl, err := template.New("kickstart").
		Funcs(template.FuncMap(handler.Build())).
		Parse(kickstartTemplate)
	if err != nil {
		return fmt.Errorf("parsing kickstart template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering kickstart: %w", err)
	}

	return nil
}
