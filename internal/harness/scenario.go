package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one subscription scenario.
// A scenario seeds a store, opens one subscription, then applies a list of
// steps, asserting on the subscription after each broadcast drain.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the CUE fragment document, relative to the scenario file.
	Document string `yaml:"document"`

	// KeyFields overrides the identifying fields per typename.
	KeyFields map[string][]string `yaml:"key_fields,omitempty"`

	// Records are written before the subscription starts.
	Records []RecordSpec `yaml:"records,omitempty"`

	// Watch describes the subscription under test.
	Watch WatchSpec `yaml:"watch"`

	// Steps mutate the store in order.
	Steps []Step `yaml:"steps"`
}

// RecordSpec is a record as written in YAML. An empty ID is filled in by
// identifying the fields. References are written as {__ref: "Type:id"}.
type RecordSpec struct {
	ID       string         `yaml:"id,omitempty"`
	Typename string         `yaml:"typename"`
	Fields   map[string]any `yaml:"fields"`
}

// WatchSpec selects what the subscription observes.
type WatchSpec struct {
	// From is an id string or an object the cache can identify.
	From any `yaml:"from"`

	// Fragment names the fragment when the document has several.
	Fragment string `yaml:"fragment,omitempty"`

	Variables map[string]any `yaml:"variables,omitempty"`

	// Optimistic defaults to true.
	Optimistic *bool `yaml:"optimistic,omitempty"`

	ReturnPartialData bool `yaml:"return_partial_data,omitempty"`

	// Expect checks the result returned by Start.
	Expect *Expect `yaml:"expect,omitempty"`
}

// OptimisticSpec writes one optimistic layer.
type OptimisticSpec struct {
	Layer   string       `yaml:"layer"`
	Records []RecordSpec `yaml:"records"`
}

// Step applies exactly one mutation, then drains the broadcast queue.
type Step struct {
	Write            []RecordSpec    `yaml:"write,omitempty"`
	Evict            string          `yaml:"evict,omitempty"`
	Optimistic       *OptimisticSpec `yaml:"optimistic,omitempty"`
	RemoveOptimistic string          `yaml:"remove_optimistic,omitempty"`

	// Expect checks the subscription after the drain.
	// If nil, no validation is performed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step action names, as they appear in traces.
const (
	ActionSubscribe        = "subscribe"
	ActionWrite            = "write"
	ActionEvict            = "evict"
	ActionOptimistic       = "optimistic"
	ActionRemoveOptimistic = "remove_optimistic"
)

// Action returns the name of the step's mutation, or "" when the step
// names none.
func (s Step) Action() string {
	switch {
	case len(s.Write) > 0:
		return ActionWrite
	case s.Evict != "":
		return ActionEvict
	case s.Optimistic != nil:
		return ActionOptimistic
	case s.RemoveOptimistic != "":
		return ActionRemoveOptimistic
	default:
		return ""
	}
}

func (s Step) actionCount() int {
	n := 0
	if len(s.Write) > 0 {
		n++
	}
	if s.Evict != "" {
		n++
	}
	if s.Optimistic != nil {
		n++
	}
	if s.RemoveOptimistic != "" {
		n++
	}
	return n
}

// Expect asserts on the subscription's current result.
//
// Every field is optional. Data is a subset match; Missing is exact, and an
// empty Missing map asserts that the result has no missing tree.
type Expect struct {
	// Delivered is the number of listener calls caused by the step.
	Delivered *int `yaml:"delivered,omitempty"`

	Complete *bool          `yaml:"complete,omitempty"`
	Data     map[string]any `yaml:"data,omitempty"`
	NoData   bool           `yaml:"no_data,omitempty"`
	Missing  map[string]any `yaml:"missing,omitempty"`

	// LastComplete is the trace index of the delivery the current result's
	// LastCompleteResult points at, or -1 when it has none.
	LastComplete *int `yaml:"last_complete,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// The document path is resolved relative to the scenario file. Unknown
// fields are rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Document != "" && !filepath.IsAbs(scenario.Document) {
		scenario.Document = filepath.Join(filepath.Dir(path), scenario.Document)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Document == "" {
		return fmt.Errorf("document is required")
	}
	if _, err := os.Stat(s.Document); os.IsNotExist(err) {
		return fmt.Errorf("document not found: %s", s.Document)
	}

	if s.Watch.From == nil {
		return fmt.Errorf("watch.from is required")
	}

	for i, rec := range s.Records {
		if rec.Typename == "" {
			return fmt.Errorf("records[%d]: typename is required", i)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if n := step.actionCount(); n != 1 {
			return fmt.Errorf("steps[%d]: exactly one of write, evict, optimistic, remove_optimistic is required (got %d)", i, n)
		}
		for j, rec := range step.Write {
			if rec.Typename == "" {
				return fmt.Errorf("steps[%d].write[%d]: typename is required", i, j)
			}
		}
		if step.Optimistic != nil && step.Optimistic.Layer == "" {
			return fmt.Errorf("steps[%d].optimistic: layer is required", i)
		}
		if step.Expect != nil && step.Expect.NoData && step.Expect.Data != nil {
			return fmt.Errorf("steps[%d].expect: data and no_data are exclusive", i)
		}
	}

	return nil
}
