package jobgraph

import (
	"bytes"
	"io"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

const scriptTemplate = `{{.Shebang}}
{{range .Directives}}#SBATCH {{.}}
{{end}}{{if .Dependencies}}#SBATCH --dependency={{.Mode}}:{{join .Dependencies ","}}
{{end}}{{range .Modules}}module load {{.}}
{{end}}{{range .Commands}}srun {{.}}
{{end}}`

var scriptTpl = template.Must(template.New("script").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(scriptTemplate))

type scriptData struct {
	Shebang      string
	Directives   []Directive
	Dependencies []string
	Mode         DependencyMode
	Modules      []string
	Commands     []string
}

// Render writes the unit as a batch script. predecessorJobs are the external
// job IDs of the unit's predecessors; the dependency line is omitted when
// there are none.
func (u *Unit) Render(w io.Writer, predecessorJobs []string) error {
	err := scriptTpl.Execute(w, scriptData{
		Shebang:      u.shebang,
		Directives:   u.directives,
		Dependencies: predecessorJobs,
		Mode:         u.mode,
		Modules:      u.modules,
		Commands:     u.commands,
	})
	if err != nil {
		return errors.Wrapf(err, "unable to render unit %s", u.id)
	}

	if u.state == StateBuilt {
		u.state = StateRendered
	}

	return nil
}

// RenderString is Render into a string.
func (u *Unit) RenderString(predecessorJobs []string) (string, error) {
	var buf bytes.Buffer
	if err := u.Render(&buf, predecessorJobs); err != nil {
		return "", err
	}

	return buf.String(), nil
}
