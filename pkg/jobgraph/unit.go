package jobgraph

import (
	"strings"

	"github.com/pkg/errors"
)

// Stage names the pipeline step a unit belongs to.
type Stage string

const (
	StageClustering  Stage = "clustering"
	StageAlignment   Stage = "alignment"
	StageTiling      Stage = "tiling"
	StageCombination Stage = "combination"
)

// DependencyMode is the scheduler condition a unit waits for on its
// predecessors.
type DependencyMode string

const (
	AfterAny   DependencyMode = "afterany"
	AfterOK    DependencyMode = "afterok"
	AfterNotOK DependencyMode = "afternotok"
	After      DependencyMode = "after"
)

// DefaultShebang is the interpreter line of rendered scripts.
const DefaultShebang = "#!/bin/sh"

// State is the lifecycle position of a unit.
type State int

const (
	StateBuilt State = iota
	StateRendered
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateRendered:
		return "rendered"
	case StateSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Directive is one scheduler option written to the script header.
type Directive struct {
	Key   string
	Value string
}

func (d Directive) String() string {
	if d.Value == "" {
		return d.Key
	}

	return d.Key + "=" + d.Value
}

// ParseDirective reads a directive written as "key value", for example
// "--mem 20G". Everything after the first field is the value.
func ParseDirective(s string) (Directive, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Directive{}, errors.Wrapf(ErrDirective, "%q", s)
	}

	return Directive{Key: fields[0], Value: strings.Join(fields[1:], " ")}, nil
}

// Unit is one external command to run as a scheduler job. A unit can be
// edited until it is submitted. It is not safe for concurrent use.
type Unit struct {
	id           string
	stage        Stage
	commands     []string
	directives   []Directive
	predecessors []string
	mode         DependencyMode
	modules      []string
	shebang      string
	dir          string

	state  State
	handle JobHandle
	status Status
}

// NewUnit creates a unit running command.
func NewUnit(id string, stage Stage, command string) *Unit {
	return &Unit{
		id:       id,
		stage:    stage,
		commands: []string{command},
		mode:     AfterAny,
		shebang:  DefaultShebang,
	}
}

func (u *Unit) ID() string {
	return u.id
}

func (u *Unit) Stage() Stage {
	return u.stage
}

// Commands returns the job steps in execution order.
func (u *Unit) Commands() []string {
	return append([]string(nil), u.commands...)
}

func (u *Unit) Directives() []Directive {
	return append([]Directive(nil), u.directives...)
}

// Predecessors returns the IDs of the units this unit depends on, in the
// order they were first declared.
func (u *Unit) Predecessors() []string {
	return append([]string(nil), u.predecessors...)
}

func (u *Unit) DependencyMode() DependencyMode {
	return u.mode
}

func (u *Unit) Modules() []string {
	return append([]string(nil), u.modules...)
}

func (u *Unit) Shebang() string {
	return u.shebang
}

// Dir returns the directory the job runs in; empty means the scheduler's
// default.
func (u *Unit) Dir() string {
	return u.dir
}

func (u *Unit) State() State {
	return u.state
}

// Handle returns the scheduler handle of a submitted unit.
func (u *Unit) Handle() (JobHandle, bool) {
	return u.handle, u.state == StateSubmitted
}

// Status returns the last status observed for the unit's job.
func (u *Unit) Status() Status {
	return u.status
}

func (u *Unit) mutable() error {
	if u.state == StateSubmitted {
		return errors.Wrapf(ErrUnitSubmitted, "unit %s", u.id)
	}

	return nil
}

// AddCommand appends a job step.
func (u *Unit) AddCommand(command string) error {
	if err := u.mutable(); err != nil {
		return err
	}
	u.commands = append(u.commands, command)

	return nil
}

// AddDirective appends a scheduler directive.
func (u *Unit) AddDirective(key, value string) error {
	return u.AddDirectives(Directive{Key: key, Value: value})
}

// AddDirectives appends scheduler directives in order.
func (u *Unit) AddDirectives(directives ...Directive) error {
	if err := u.mutable(); err != nil {
		return err
	}
	u.directives = append(u.directives, directives...)

	return nil
}

// AddModules appends environment modules loaded before the first job step.
func (u *Unit) AddModules(modules ...string) error {
	if err := u.mutable(); err != nil {
		return err
	}
	u.modules = append(u.modules, modules...)

	return nil
}

// DependsOn declares predecessors by unit ID. Repeated IDs are ignored. Once
// the unit is in a Graph, use Graph.DependsOn so the edge is recorded too.
func (u *Unit) DependsOn(ids ...string) error {
	if err := u.mutable(); err != nil {
		return err
	}
	for _, id := range ids {
		if u.hasPredecessor(id) {
			continue
		}
		u.predecessors = append(u.predecessors, id)
	}

	return nil
}

func (u *Unit) hasPredecessor(id string) bool {
	for _, p := range u.predecessors {
		if p == id {
			return true
		}
	}

	return false
}

func (u *Unit) SetDependencyMode(mode DependencyMode) error {
	if err := u.mutable(); err != nil {
		return err
	}
	u.mode = mode

	return nil
}

func (u *Unit) SetShebang(shebang string) error {
	if err := u.mutable(); err != nil {
		return err
	}
	u.shebang = shebang

	return nil
}

// SetDir sets the directory the job runs in.
func (u *Unit) SetDir(dir string) error {
	if err := u.mutable(); err != nil {
		return err
	}
	u.dir = dir

	return nil
}

// ScriptName returns the file name the unit's script is written to.
func (u *Unit) ScriptName() string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t':
			return '_'
		}
		return r
	}, u.id)

	return name + ".sh"
}

func (u *Unit) markSubmitted(handle JobHandle) {
	u.state = StateSubmitted
	u.handle = handle
	u.status = StatusRunning
}
