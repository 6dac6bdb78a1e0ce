// Package triage pulls the severity score out of assistant replies and decides
// whether an urgent-care referral must be surfaced.
package triage

import (
	"regexp"
	"strconv"
)

// UrgentThreshold is the lowest severity that triggers an urgent referral.
const UrgentThreshold = 8

// The model is prompted to end every reply with "**Severity: X/10**". Emphasis
// markers and the spacing around the slash are optional.
var severityPattern = regexp.MustCompile(`(?i)\*{0,2}Severity:\s*(\d+)\s*/\s*10\*{0,2}`)

// Result is the triage outcome for a single assistant reply.
type Result struct {
	Severity int  `json:"severity,omitempty"`
	Found    bool `json:"-"`
	Urgent   bool `json:"urgent"`
}

// ExtractSeverity returns the first severity marker in text. The boolean is
// false when no marker is present, which is distinct from a zero severity.
func ExtractSeverity(text string) (int, bool) {
	match := severityPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	severity, err := strconv.Atoi(match[1])
	if err != nil {
		// digit run too long for an int
		return 0, false
	}
	return severity, true
}

// RequiresUrgentCare applies the fixed referral rule.
func RequiresUrgentCare(severity int, found bool) bool {
	return found && severity >= UrgentThreshold
}

// Assess extracts the severity and applies the referral rule in one step.
func Assess(text string) Result {
	severity, found := ExtractSeverity(text)
	return Result{
		Severity: severity,
		Found:    found,
		Urgent:   RequiresUrgentCare(severity, found),
	}
}
