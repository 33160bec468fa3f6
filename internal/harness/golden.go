package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/fragwatch/internal/ir"
)

// GoldenDir is where golden traces live, relative to the test package.
const GoldenDir = "testdata/golden"

// Snapshot renders a trace as canonical JSON. Golden files store exactly
// these bytes, so equal traces always produce equal files.
func Snapshot(scenarioName string, trace []TraceEvent) ([]byte, error) {
	events := make([]any, len(trace))
	for i, event := range trace {
		events[i] = eventToCanonical(event)
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         events,
	})
}

// eventToCanonical converts one event to a map[string]any, keeping only
// the fields that belong to its type.
func eventToCanonical(event TraceEvent) map[string]any {
	m := map[string]any{"type": event.Type}

	if event.Type == EventStep {
		m["action"] = event.Action
		m["seq"] = event.Seq
		if event.Layer != "" {
			m["layer"] = event.Layer
		}
		if len(event.IDs) > 0 {
			ids := make([]any, len(event.IDs))
			for i, id := range event.IDs {
				ids[i] = id
			}
			m["ids"] = ids
		}
		return m
	}

	m["index"] = event.Index
	m["complete"] = event.Complete
	m["previous"] = event.Previous
	m["last_complete"] = event.LastComplete
	if event.Data != nil {
		m["data"] = event.Data
	}
	if event.Missing != nil {
		m["missing"] = event.Missing
	}
	return m
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the run result so callers can also check Pass and Errors.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
