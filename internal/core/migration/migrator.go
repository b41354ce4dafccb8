// Package migration upgrades the payload of bulk action records in place.
//
// Each record carries an integer schema version. Steps are pure transforms
// from version N-1 to N and run in order until the record reaches the latest
// version. Versions only ever increase.
package migration

import (
	"fmt"

	"github.com/example/bulkcase/internal/core/bulkaction"
)

// Step upgrades a payload by exactly one version.
type Step struct {
	// Version is the version the payload has after this step.
	Version int
	Name    string
	Up      func(data map[string]any) map[string]any
}

// Migrator applies ordered steps to payloads.
type Migrator struct {
	steps []Step
}

// Steps returns the production upgrade steps.
func Steps() []Step {
	return []Step{
		{Version: 1, Name: "rename_hearing_court_and_init_lists", Up: upgradeV1},
	}
}

// LatestVersion is the schema version produced by Steps().
var LatestVersion = len(Steps())

// New creates a migrator. Steps must be numbered 1..n without gaps.
func New(steps []Step) (*Migrator, error) {
	for i, s := range steps {
		if s.Version != i+1 {
			return nil, fmt.Errorf("step %q has version %d, want %d", s.Name, s.Version, i+1)
		}
		if s.Up == nil {
			return nil, fmt.Errorf("step %q has no transform", s.Name)
		}
	}
	return &Migrator{steps: steps}, nil
}

// Default returns a migrator over the production steps.
func Default() *Migrator {
	m, err := New(Steps())
	if err != nil {
		panic(err)
	}
	return m
}

// Latest returns the version a fully migrated payload carries.
func (m *Migrator) Latest() int {
	return len(m.steps)
}

// Migrate returns the upgraded payload and whether anything changed. The input
// map is not modified. A payload at or above the latest version is returned
// as is.
func (m *Migrator) Migrate(data map[string]any) (map[string]any, bool) {
	current := bulkaction.IntField(data, bulkaction.FieldSchemaVersion)
	if current >= m.Latest() {
		return data, false
	}

	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	if current < 0 {
		current = 0
	}
	for _, step := range m.steps[current:] {
		out = step.Up(out)
		out[bulkaction.FieldSchemaVersion] = step.Version
	}
	return out, true
}

// upgradeV1 renames the legacy hearingCourt key and makes sure every
// reference list is present.
func upgradeV1(data map[string]any) map[string]any {
	if legacy, ok := data["hearingCourt"]; ok {
		if _, has := data[bulkaction.FieldCourt]; !has {
			data[bulkaction.FieldCourt] = legacy
		}
		delete(data, "hearingCourt")
	}
	for _, key := range []string{bulkaction.FieldPending, bulkaction.FieldErrored, bulkaction.FieldProcessed} {
		if _, ok := data[key].([]any); !ok {
			data[key] = []any{}
		}
	}
	return data
}
