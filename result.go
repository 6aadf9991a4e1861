package emval

// Result is the full outcome of one email validation. It is created
// exactly once per input address, never mutated afterwards, and
// consumed by the reporting layer exactly once.
//
// IsValid is true for the valid and unknown categories: unknown means
// "couldn't disprove", not "disproved". Risk (catch-all) and invalid
// both report false.
type Result struct {
	Email    string        `json:"email"`
	IsValid  bool          `json:"is_valid"`
	Category Category      `json:"category"`
	Reason   string        `json:"reason"`
	Checks   []CheckResult `json:"checks,omitempty"`
}

// FailedChecks returns those CheckResults that did not pass.
func (r Result) FailedChecks() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// CheckFor returns the CheckResult for the given stage, if that stage
// was executed.
func (r Result) CheckFor(stage Stage) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Stage == stage {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Suggestion returns a domain correction hint if any stage produced
// one.
func (r Result) Suggestion() string {
	for _, c := range r.Checks {
		if c.Suggestion != "" {
			return c.Suggestion
		}
	}
	return ""
}
