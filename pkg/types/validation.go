// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// CheckName identifies the validator check that raised an issue.
type CheckName string

const (
	CheckSchema            CheckName = "schema"
	CheckGrounding         CheckName = "grounding"
	CheckEvidence          CheckName = "evidence"
	CheckAIFValidity       CheckName = "aif_validity"
	CheckOvergeneration    CheckName = "overgeneration"
	CheckCycles            CheckName = "cycles"
	CheckUnrelatedConflict CheckName = "unrelated_conflict"
)

// Hard reports whether failures of this check invalidate a window.
func (c CheckName) Hard() bool {
	switch c {
	case CheckSchema, CheckGrounding, CheckEvidence, CheckAIFValidity:
		return true
	case CheckOvergeneration, CheckCycles, CheckUnrelatedConflict:
		return false
	}
	return false
}

// Issue is one hard error or soft warning.
type Issue struct {
	Check   CheckName `json:"check" yaml:"check"`
	Message string    `json:"message" yaml:"message"`
	Detail  Detail    `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// String renders the issue verbatim for audit output.
func (i Issue) String() string {
	if len(i.Detail) == 0 {
		return fmt.Sprintf("[%s] %s", i.Check, i.Message)
	}
	return fmt.Sprintf("[%s] %s (%s)", i.Check, i.Message, i.Detail)
}

// ValidationResult collects every issue found in one fragment. Hard errors
// and soft warnings keep the order the checks raised them in.
type ValidationResult struct {
	IsValid      bool    `json:"is_valid" yaml:"is_valid"`
	HardErrors   []Issue `json:"hard_errors" yaml:"hard_errors"`
	SoftWarnings []Issue `json:"soft_warnings" yaml:"soft_warnings"`
}

// NewValidationResult returns a valid, empty result.
func NewValidationResult() ValidationResult {
	return ValidationResult{IsValid: true, HardErrors: []Issue{}, SoftWarnings: []Issue{}}
}

// AddHardError records a hard error and marks the result invalid.
func (r *ValidationResult) AddHardError(check CheckName, message string, detail Detail) {
	r.HardErrors = append(r.HardErrors, Issue{Check: check, Message: message, Detail: detail})
	r.IsValid = false
}

// AddSoftWarning records a soft warning. Warnings never affect IsValid.
func (r *ValidationResult) AddSoftWarning(check CheckName, message string, detail Detail) {
	r.SoftWarnings = append(r.SoftWarnings, Issue{Check: check, Message: message, Detail: detail})
}

// HasWarning reports whether a soft warning from check is present.
func (r ValidationResult) HasWarning(check CheckName) bool {
	for _, w := range r.SoftWarnings {
		if w.Check == check {
			return true
		}
	}
	return false
}

// HasError reports whether a hard error from check is present.
func (r ValidationResult) HasError(check CheckName) bool {
	for _, e := range r.HardErrors {
		if e.Check == check {
			return true
		}
	}
	return false
}
