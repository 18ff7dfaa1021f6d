// Package drawer renders a job graph in Graphviz DOT format. Nodes are filled
// by stage and outlined on a blue to red scale by how long their job ran.
package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/template"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph"
)

// Drawer writes job graphs to a DOT file.
type Drawer struct {
	fileName string
	now      func() time.Time
}

// Option configures a Drawer.
type Option func(d *Drawer)

// WithClock sets the time used to measure jobs that are still running.
func WithClock(now func() time.Time) Option {
	return func(d *Drawer) {
		d.now = now
	}
}

// New creates a drawer writing to fileName.
func New(fileName string, opts ...Option) *Drawer {
	d := &Drawer{
		fileName: fileName,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Draw writes g to the drawer's file.
func (d *Drawer) Draw(g *jobgraph.Graph) (err error) {
	file, err := os.Create(d.fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.fileName)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "unable to close %s", d.fileName)
		}
	}()

	return d.Write(file, g)
}

// Write renders g as DOT to w.
func (d *Drawer) Write(w io.Writer, g *jobgraph.Graph) error {
	desc, err := d.describe(g)
	if err != nil {
		return errors.Wrap(err, "unable to describe job graph")
	}

	return renderDOT(w, desc)
}

const maxRGB = 240

var stageRGB = map[jobgraph.Stage][3]uint8{
	jobgraph.StageClustering:  {166, 206, 227},
	jobgraph.StageAlignment:   {178, 223, 138},
	jobgraph.StageTiling:      {253, 191, 111},
	jobgraph.StageCombination: {202, 178, 214},
}

func stageColour(stage jobgraph.Stage) (string, error) {
	rgb, ok := stageRGB[stage]
	if !ok {
		rgb = [3]uint8{220, 220, 220}
	}
	c, err := colors.RGB(rgb[0], rgb[1], rgb[2]) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return c.ToHEX().String(), nil
}

// heatColour maps fraction in [0,1] from blue to red.
func heatColour(fraction float64) (string, error) {
	red := maxRGB * fraction
	blue := maxRGB - red
	c, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return c.ToHEX().String(), nil
}

func (d *Drawer) elapsed(g *jobgraph.Graph, order []string) map[string]time.Duration {
	now := d.now()
	out := make(map[string]time.Duration)
	for _, id := range order {
		if e, ok := g.Registry().Entry(id); ok {
			out[id] = e.Elapsed(now).Round(time.Second)
		}
	}

	return out
}

func (d *Drawer) describe(g *jobgraph.Graph) (description, error) {
	desc := description{
		GraphType:    "digraph",
		Attributes:   map[string]string{"rankdir": "LR"},
		EdgeOperator: "->",
	}

	order, err := g.Order()
	if err != nil {
		return desc, err
	}
	adjacencyMap, err := g.DAG().AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	elapsed := d.elapsed(g, order)
	var minElapsed, maxElapsed time.Duration
	first := true
	for _, e := range elapsed {
		if first || e < minElapsed {
			minElapsed = e
		}
		if first || e > maxElapsed {
			maxElapsed = e
		}
		first = false
	}

	for _, id := range order {
		_, props, err := g.DAG().VertexWithProperties(id)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		fill, err := stageColour(jobgraph.Stage(props.Attributes["stage"]))
		if err != nil {
			return desc, err
		}
		attrs := map[string]string{
			"style":     "filled",
			"fillcolor": fill,
		}
		html := make(map[string]string)

		if took, ok := elapsed[id]; ok {
			fraction := 1.0
			if maxElapsed > minElapsed {
				fraction = float64(took-minElapsed) / float64(maxElapsed-minElapsed)
			}
			border, err := heatColour(fraction)
			if err != nil {
				return desc, err
			}
			attrs["color"] = border
			html["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">job %s, %s</FONT>>`, id, props.Attributes["job"], took)
		}
		if props.Attributes["status"] == jobgraph.StatusFailed.String() {
			attrs["color"] = "#ff0000"
			attrs["penwidth"] = "3"
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           id,
			SourceWeight:     props.Weight,
			SourceAttributes: attrs,
			HTMLAttributes:   html,
		})

		targets := make([]string, 0, len(adjacencyMap[id]))
		for target := range adjacencyMap[id] {
			targets = append(targets, target)
		}
		sort.Strings(targets)
		for _, target := range targets {
			edge := adjacencyMap[id][target]
			desc.Statements = append(desc.Statements, statement{
				Source:         id,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
{{range $k, $v := .Attributes}}	{{$k}}="{{$v}}";
{{end}}{{range $s := .Statements}}	"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}}{{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.SourceWeight}} ]{{end}};
{{end}}}
`

var dotTpl = template.Must(template.New("dotTemplate").Parse(dotTemplate))

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func renderDOT(w io.Writer, desc description) error {
	if err := dotTpl.Execute(w, desc); err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}
