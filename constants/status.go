package constants

// RunStatus is the canonical lifecycle status of an extraction run.
type RunStatus string

// Stable values (reported as these exact strings).
const (
	RunStatusReceived         RunStatus = "RECEIVED"          // document accepted, nothing done yet
	RunStatusTextExtracted    RunStatus = "TEXT_EXTRACTED"    // stage 1 completed (text extracted)
	RunStatusTabularParsed    RunStatus = "TABULAR_PARSED"    // control-file path produced rows
	RunStatusModelParsed      RunStatus = "MODEL_PARSED"      // provider path produced a draft
	RunStatusPropertyResolved RunStatus = "PROPERTY_RESOLVED" // alias resolution done
	RunStatusValidated        RunStatus = "VALIDATED"         // field validation done
	RunStatusAccepted         RunStatus = "ACCEPTED"          // terminal: no blocking errors
	RunStatusNeedsReview      RunStatus = "NEEDS_REVIEW"      // terminal: errors or unresolved property
	RunStatusFailed           RunStatus = "FAILED"            // terminal failure
)

// Terminal reports whether s is a terminal run status.
func Terminal(s RunStatus) bool {
	switch s {
	case RunStatusAccepted, RunStatusNeedsReview, RunStatusFailed:
		return true
	}
	return false
}

// ValidationStatus is the derived status of a validated draft:
// invalid (has errors) > warning (has warnings, no errors) > valid.
type ValidationStatus string

const (
	ValidationValid   ValidationStatus = "valid"
	ValidationWarning ValidationStatus = "warning"
	ValidationInvalid ValidationStatus = "invalid"
)
