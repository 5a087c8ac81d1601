package executor

import "fmt"

// Kind identifies what a Step does
type Kind string

const (
	KindClick Kind = "click" // click the element labelled Value
	KindType  Kind = "type"  // fill the input whose placeholder contains Target with Value
	KindWait  Kind = "wait"  // pause for Value seconds
)

// Known reports whether k is one of the supported kinds.
func (k Kind) Known() bool {
	switch k {
	case KindClick, KindType, KindWait:
		return true
	}
	return false
}

// Step represents a single browser automation step
type Step struct {
	Kind   Kind   `json:"type"`             // click, type, wait
	Value  string `json:"value"`            // label, text to enter, or seconds
	Target string `json:"target,omitempty"` // placeholder fragment (for type)
}

// String renders the step for progress output.
func (s Step) String() string {
	switch s.Kind {
	case KindType:
		return fmt.Sprintf("%s → %s (text: %q)", s.Kind, s.Target, s.Value)
	case KindWait:
		return fmt.Sprintf("%s → %ss", s.Kind, s.Value)
	default:
		return fmt.Sprintf("%s → %s", s.Kind, s.Value)
	}
}

// UnknownKindPolicy decides what Run does with a step whose kind is not Known.
type UnknownKindPolicy int

const (
	// FailUnknown aborts the run with ErrUnknownStepKind.
	FailUnknown UnknownKindPolicy = iota
	// SkipUnknown logs the step and moves on.
	SkipUnknown
)

// ParseUnknownKindPolicy maps "fail" and "skip" onto a policy.
func ParseUnknownKindPolicy(s string) (UnknownKindPolicy, error) {
	switch s {
	case "", "fail":
		return FailUnknown, nil
	case "skip":
		return SkipUnknown, nil
	default:
		return FailUnknown, fmt.Errorf("unknown step kind policy %q (supported: fail, skip)", s)
	}
}
