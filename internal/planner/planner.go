// Package planner decides what the assistant still needs to learn about the
// user before it can give a complete PF withdrawal answer.
package planner

import "github.com/kalambet/pfbot/internal/profile"

const (
	QuestionContribution   = "Are you currently employed and actively contributing to your PF?"
	QuestionServiceYears   = "How long have you been contributing to your PF? (e.g., 5 years, 10 years)"
	QuestionWithdrawalType = "What's the purpose of your PF withdrawal? (e.g., home loan, medical emergency, education, etc.)"
)

// State is the conversation phase derived from the profile.
type State string

const (
	StateGathering  State = "gathering"
	StateSufficient State = "sufficient"
)

type requirement struct {
	field    profile.Field
	question string
}

// required lists the fields needed for a complete answer in the order they
// are asked for.
var required = []requirement{
	{profile.FieldContribution, QuestionContribution},
	{profile.FieldServiceYears, QuestionServiceYears},
	{profile.FieldWithdrawalType, QuestionWithdrawalType},
}

// Decision is the planner output for one turn.
type Decision struct {
	Sufficient   bool
	NextQuestion string
	Missing      []profile.Field
}

// State reports the phase the decision puts the conversation in.
func (d Decision) State() State {
	if d.Sufficient {
		return StateSufficient
	}
	return StateGathering
}

// Plan evaluates p against the required fields.
func Plan(p profile.Profile) Decision {
	var d Decision
	for _, r := range required {
		if p.IsSet(r.field) {
			continue
		}
		if d.NextQuestion == "" {
			d.NextQuestion = r.question
		}
		d.Missing = append(d.Missing, r.field)
	}
	d.Sufficient = len(d.Missing) == 0
	return d
}

// NextQuestion returns the question for the first missing required field, or
// "" once all of them are known.
func NextQuestion(p profile.Profile) string {
	return Plan(p).NextQuestion
}

// HasSufficientInfo reports whether every required field is set.
func HasSufficientInfo(p profile.Profile) bool {
	return Plan(p).Sufficient
}
