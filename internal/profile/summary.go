package profile

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// ContextLines renders the set fields as bullet lines for prompt injection,
// one "\n- Label: value" entry per field. Returns "" when nothing is known.
// current_balance is never rendered.
func (p Profile) ContextLines() string {
	var sb strings.Builder
	if p.Contribution != "" {
		fmt.Fprintf(&sb, "\n- PF Contribution Status: %s", p.Contribution)
	}
	if p.ServiceYears != nil {
		fmt.Fprintf(&sb, "\n- Years of Service: %d years", *p.ServiceYears)
	}
	if p.WithdrawalType != "" {
		fmt.Fprintf(&sb, "\n- Withdrawal Type: %s", p.WithdrawalType)
	}
	if p.PreviousWithdrawals != "" {
		fmt.Fprintf(&sb, "\n- Previous Withdrawals: %s", p.PreviousWithdrawals)
	}
	return sb.String()
}

// Answers holds the free-text replies to the four-question personalization
// form. Each answer is whatever the user typed or selected.
type Answers struct {
	Contribution        string `json:"pf_contribution"`
	ServiceYears        string `json:"service_years"`
	WithdrawalType      string `json:"withdrawal_type"`
	PreviousWithdrawals string `json:"previous_withdrawals"`
}

// Years parses the first "<n> year(s)" count out of the service-years answer.
func (a Answers) Years() (int, bool) {
	return parseYears(strings.ToLower(a.ServiceYears))
}

// IsEmpty reports whether every answer is blank.
func (a Answers) IsEmpty() bool {
	return strings.TrimSpace(a.Contribution) == "" &&
		strings.TrimSpace(a.ServiceYears) == "" &&
		strings.TrimSpace(a.WithdrawalType) == "" &&
		strings.TrimSpace(a.PreviousWithdrawals) == ""
}

// Apply folds the answers into p so the form and the chat share one profile.
// The service-years and purpose answers go through Extract. The other two
// answer yes/no questions directly, so they are classified on whole words:
// a leading "yes" or "no" decides, and "renovation" never reads as "no".
// A category named in the previous-withdrawals answer does not overwrite the
// withdrawal purpose.
func (a Answers) Apply(p *Profile) []Field {
	var matched []Field
	if v, ok := contributionAnswer.classify(a.Contribution); ok {
		p.Contribution = v
		matched = append(matched, FieldContribution)
	}
	for _, text := range []string{a.ServiceYears, a.WithdrawalType} {
		matched = append(matched, Extract(p, text)...)
	}
	if v, ok := previousAnswer.classify(a.PreviousWithdrawals); ok {
		p.PreviousWithdrawals = v
		matched = append(matched, FieldPreviousWithdrawals)
	}
	return matched
}

// answerRule classifies a reply to a yes/no form question.
type answerRule[T any] struct {
	yes, no []string
	yesV    T
	noV     T
	// chat runs before the word scan when the leading word is not decisive.
	chat *cueRule[T]
	// fallback applies to any non-blank answer nothing else matched.
	fallback *T
}

func (r answerRule[T]) classify(answer string) (T, bool) {
	var zero T
	text := strings.ToLower(strings.TrimSpace(answer))
	ws := words(text)
	if len(ws) == 0 {
		return zero, false
	}

	switch {
	case slices.Contains(r.yes, ws[0]):
		return r.yesV, true
	case slices.Contains(r.no, ws[0]):
		return r.noV, true
	}
	if r.chat != nil {
		if v, ok := r.chat.match(text); ok {
			return v, true
		}
	}
	for _, w := range ws {
		if slices.Contains(r.no, w) {
			return r.noV, true
		}
	}
	for _, w := range ws {
		if slices.Contains(r.yes, w) {
			return r.yesV, true
		}
	}
	if r.fallback != nil {
		return *r.fallback, true
	}
	return zero, false
}

var contributionAnswer = answerRule[Contribution]{
	yes:  []string{"yes", "yeah", "yep", "y", "active", "still"},
	no:   []string{"no", "nope", "n", "not", "inactive", "unemployed"},
	yesV: ContributionActive,
	noV:  ContributionInactive,
	chat: &contributionRule,
}

var previousAnswer = answerRule[PreviousWithdrawals]{
	yes:      []string{"yes", "yeah", "yep", "y", "once", "twice"},
	no:       []string{"no", "nope", "n", "never", "none", "not"},
	yesV:     PreviousYes,
	noV:      PreviousNone,
	fallback: ptr(PreviousYes),
}

func words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func ptr[T any](v T) *T { return &v }
