package calllog

import "strings"

// outcomeRules is an ordered priority list. The provider's success evaluation
// is free-form prose and may contain several keywords ("qualified lead,
// appointment pending"); first match wins so classification is deterministic.
var outcomeRules = []struct {
	keywords []string
	outcome  Outcome
}{
	{[]string{"appointment", "booked"}, OutcomeAppointmentBooked},
	{[]string{"lead", "qualified"}, OutcomeLeadQualified},
	{[]string{"information"}, OutcomeInformationProvided},
	{[]string{"callback"}, OutcomeCallbackScheduled},
}

// ClassifyOutcome maps the provider's free-text success evaluation to an
// Outcome. Total function: empty or unrecognized input yields OutcomeOther.
func ClassifyOutcome(evaluation string) Outcome {
	e := strings.ToLower(evaluation)
	if e == "" {
		return OutcomeOther
	}
	for _, rule := range outcomeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(e, kw) {
				return rule.outcome
			}
		}
	}
	return OutcomeOther
}
