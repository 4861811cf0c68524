package profile

import (
	"regexp"
	"strconv"
	"strings"
)

// branch assigns value when any of its cues appears in the utterance.
// A branch with no cues always matches.
type branch[T any] struct {
	cues  []string
	value T
}

// cueRule fires only when one of its triggers is present, then takes the
// first matching branch in order.
type cueRule[T any] struct {
	triggers []string
	branches []branch[T]
}

func (r cueRule[T]) match(text string) (T, bool) {
	var zero T
	if !containsAny(text, r.triggers) {
		return zero, false
	}
	for _, b := range r.branches {
		if len(b.cues) == 0 || containsAny(text, b.cues) {
			return b.value, true
		}
	}
	return zero, false
}

// keywordRule maps a purpose keyword to a withdrawal category.
type keywordRule struct {
	keyword string
	value   WithdrawalType
}

// Affirmative cues are checked before negative ones, so "not still employed"
// resolves to active.
var contributionRule = cueRule[Contribution]{
	triggers: []string{"contributing", "employed"},
	branches: []branch[Contribution]{
		{cues: []string{"yes", "still", "active"}, value: ContributionActive},
		{cues: []string{"no", "not", "unemployed"}, value: ContributionInactive},
	},
}

var previousWithdrawalsRule = cueRule[PreviousWithdrawals]{
	triggers: []string{"withdrawn", "earlier"},
	branches: []branch[PreviousWithdrawals]{
		{cues: []string{"no", "never"}, value: PreviousNone},
		{value: PreviousYes},
	},
}

// Order matters: the first keyword found wins.
var withdrawalKeywords = []keywordRule{
	{"home loan", WithdrawalHomeLoanRepayment},
	{"house", WithdrawalHousePurchase},
	{"medical", WithdrawalMedicalEmergency},
	{"education", WithdrawalEducation},
	{"marriage", WithdrawalMarriage},
	{"unemployment", WithdrawalUnemployment},
	{"renovation", WithdrawalHomeRenovation},
	{"retirement", WithdrawalRetirement},
}

var yearsPattern = regexp.MustCompile(`(\d+)\s*years?`)

// Extract scans utterance for known cues and updates p in place. It returns
// the fields that matched a cue, in rule order. Unmatched input leaves p
// unchanged; no rule ever clears a field.
func Extract(p *Profile, utterance string) []Field {
	if p == nil {
		return nil
	}
	text := strings.ToLower(utterance)
	var matched []Field

	if v, ok := contributionRule.match(text); ok {
		p.Contribution = v
		matched = append(matched, FieldContribution)
	}

	if years, ok := parseYears(text); ok {
		p.ServiceYears = &years
		matched = append(matched, FieldServiceYears)
	}

	if v, ok := matchWithdrawalType(text); ok {
		p.WithdrawalType = v
		matched = append(matched, FieldWithdrawalType)
	}

	if v, ok := previousWithdrawalsRule.match(text); ok {
		p.PreviousWithdrawals = v
		matched = append(matched, FieldPreviousWithdrawals)
	}

	return matched
}

func matchWithdrawalType(text string) (WithdrawalType, bool) {
	for _, r := range withdrawalKeywords {
		if strings.Contains(text, r.keyword) {
			return r.value, true
		}
	}
	return "", false
}

// parseYears returns the integer of the first "<n> year(s)" match. Numbers
// too large for int are treated as no match.
func parseYears(text string) (int, bool) {
	m := yearsPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func containsAny(text string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(text, c) {
			return true
		}
	}
	return false
}
