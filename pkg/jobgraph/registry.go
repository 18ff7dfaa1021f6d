package jobgraph

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Entry records one submitted unit.
type Entry struct {
	Unit        string     `yaml:"unit"`
	Stage       Stage      `yaml:"stage"`
	Job         string     `yaml:"job"`
	Status      Status     `yaml:"status"`
	SubmittedAt time.Time  `yaml:"submitted_at"`
	FinishedAt  *time.Time `yaml:"finished_at,omitempty"`
}

// Elapsed returns how long the job ran, or how long it has been running.
func (e Entry) Elapsed(now time.Time) time.Duration {
	if e.FinishedAt != nil {
		return e.FinishedAt.Sub(e.SubmittedAt)
	}

	return now.Sub(e.SubmittedAt)
}

// Manifest is the serialised form of a Registry.
type Manifest struct {
	RunID string  `yaml:"run_id"`
	Jobs  []Entry `yaml:"jobs"`
}

// Registry maps the units of one run to their scheduler jobs.
type Registry struct {
	mu      sync.RWMutex
	runID   string
	entries map[string]*Entry
	order   []string
}

// NewRegistry creates an empty registry with a fresh run ID.
func NewRegistry() *Registry {
	return &Registry{
		runID:   uuid.NewString(),
		entries: make(map[string]*Entry),
	}
}

func (r *Registry) RunID() string {
	return r.runID
}

// Record stores the handle of a newly submitted unit. A unit is recorded at
// most once.
func (r *Registry) Record(unitID string, stage Stage, handle JobHandle, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[unitID]; ok {
		return errors.Wrapf(ErrUnitSubmitted, "unit %s already recorded", unitID)
	}

	r.entries[unitID] = &Entry{
		Unit:        unitID,
		Stage:       stage,
		Job:         handle.ID,
		Status:      StatusRunning,
		SubmittedAt: at,
	}
	r.order = append(r.order, unitID)

	return nil
}

// Handle returns the job handle of unitID.
func (r *Registry) Handle(unitID string) (JobHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[unitID]
	if !ok {
		return JobHandle{}, false
	}

	return JobHandle{ID: e.Job}, true
}

// Entry returns a copy of the record of unitID.
func (r *Registry) Entry(unitID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[unitID]
	if !ok {
		return Entry{}, false
	}

	return *e, true
}

// SetStatus updates the last known status of unitID. The finish time is set
// the first time a terminal status is seen.
func (r *Registry) SetStatus(unitID string, status Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[unitID]
	if !ok {
		return errors.Wrapf(ErrNotSubmitted, "unit %s", unitID)
	}

	e.Status = status
	if status.Terminal() && e.FinishedAt == nil {
		finished := at
		e.FinishedAt = &finished
	}

	return nil
}

// Len returns the number of recorded units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Manifest returns the registry content in submission order.
func (r *Registry) Manifest() Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := Manifest{RunID: r.runID, Jobs: make([]Entry, 0, len(r.order))}
	for _, id := range r.order {
		m.Jobs = append(m.Jobs, *r.entries[id])
	}

	return m
}

// WriteManifest writes the registry as YAML.
func (r *Registry) WriteManifest(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(r.Manifest()); err != nil {
		return errors.Wrap(err, "unable to encode manifest")
	}

	return errors.Wrap(enc.Close(), "unable to flush manifest")
}

// SaveManifest writes the registry as YAML to path.
func (r *Registry) SaveManifest(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "unable to close %s", path)
		}
	}()

	return r.WriteManifest(f)
}

// LoadManifest reads a manifest written by SaveManifest.
func LoadManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, errors.Wrapf(err, "unable to read %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Manifest{}, errors.Wrapf(err, "unable to decode %s", path)
	}

	return m, nil
}

// MarshalYAML writes the status by name.
func (s Status) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML reads a status written by MarshalYAML.
func (s *Status) UnmarshalYAML(value *yaml.Node) error {
	switch value.Value {
	case "running":
		*s = StatusRunning
	case "completed":
		*s = StatusCompleted
	case "failed":
		*s = StatusFailed
	default:
		*s = StatusUnknown
	}

	return nil
}
