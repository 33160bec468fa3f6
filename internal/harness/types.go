package harness

import "github.com/roach88/fragwatch/internal/ir"

// Trace event types.
const (
	EventStep     = "step"
	EventInitial  = "initial"
	EventDelivery = "delivery"
)

// TraceEvent is one entry of a scenario trace: a step that was applied, or
// a result the subscription produced.
//
// Result events carry Index, the position of the result among all results
// of the run (the initial result is 0). Previous and LastComplete are the
// indexes the result's history links point at, -1 when absent.
type TraceEvent struct {
	Type string `json:"type"`

	// Step fields.
	Action string   `json:"action,omitempty"`
	Layer  string   `json:"layer,omitempty"`
	IDs    []string `json:"ids,omitempty"`
	Seq    int64    `json:"seq"`

	// Result fields.
	Index        int         `json:"index"`
	Complete     bool        `json:"complete"`
	Data         ir.IRObject `json:"data,omitempty"`
	Missing      ir.IRObject `json:"missing,omitempty"`
	Previous     int         `json:"previous"`
	LastComplete int         `json:"last_complete"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause matched.
	Pass bool `json:"pass"`

	// Trace contains steps and results in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Deliveries is the number of listener calls over the whole run.
	Deliveries int `json:"deliveries"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStepTrace adds an applied step to the trace.
func (r *Result) AddStepTrace(action, layer string, ids []string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventStep,
		Action: action,
		Layer:  layer,
		IDs:    ids,
		Seq:    seq,
	})
}

// AddResultTrace adds a produced result to the trace.
func (r *Result) AddResultTrace(eventType string, index int, complete bool, data, missing ir.IRObject, previous, lastComplete int) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:         eventType,
		Index:        index,
		Complete:     complete,
		Data:         data,
		Missing:      missing,
		Previous:     previous,
		LastComplete: lastComplete,
	})
}
