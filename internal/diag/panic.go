package diag

import "fmt"

// InvariantViolation is raised via panic when a generator effect violates an
// invariant the pipeline guarantees elsewhere (spec §4.7.8: "a generator
// effect that violates an invariant... raises as a coding defect"). It is
// never expected to surface to a user; recovering it at the driver boundary
// turns it into a CodeInternal diagnostic instead of crashing the process.
type InvariantViolation struct {
	Component string
	Message   string
}

func (e InvariantViolation) Error() string {
	return fmt.Sprintf("internal invariant violated in %s: %s", e.Component, e.Message)
}

// PanicInvariant panics with an InvariantViolation. Callers inside a single
// file's generation are expected to recover it (see codegen.Generate) and
// turn it into a CodeInternal diagnostic without aborting the whole run.
func PanicInvariant(component, format string, args ...interface{}) {
	panic(InvariantViolation{Component: component, Message: fmt.Sprintf(format, args...)})
}
