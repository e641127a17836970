package harness

import "github.com/RIFTIO/RIFT.ware-sub004/internal/ir"

// TraceEvent is one step, or one callback delivered during a step.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Op     string `json:"op"`
	Reg    string `json:"reg,omitempty"`
	Xact   string `json:"xact,omitempty"`
	At     string `json:"at,omitempty"`
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`

	// Body is the message returned by get.
	Body ir.Object `json:"body,omitempty"`

	// Count is set for publish, list and drain.
	Count *int `json:"count,omitempty"`

	// Keys lists what a list step returned.
	Keys []string `json:"keys,omitempty"`

	// Advised lists the queries the router accepted during the step as
	// "<xact> <action> <keyspec>".
	Advised []string `json:"advised,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
