package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kalambet/pfbot/internal/profile"
)

func years(v int) *int { return &v }

func TestPlan_EmptyProfileAsksContributionFirst(t *testing.T) {
	d := Plan(profile.Profile{})

	assert.False(t, d.Sufficient)
	assert.Equal(t, StateGathering, d.State())
	assert.Equal(t, QuestionContribution, d.NextQuestion)
	assert.Equal(t, []profile.Field{
		profile.FieldContribution,
		profile.FieldServiceYears,
		profile.FieldWithdrawalType,
	}, d.Missing)
}

// Years is asked before type even when type is already known.
func TestNextQuestion_FixedPriority(t *testing.T) {
	p := profile.Profile{
		Contribution:   profile.ContributionActive,
		WithdrawalType: profile.WithdrawalEducation,
	}
	assert.Equal(t, QuestionServiceYears, NextQuestion(p))
}

func TestNextQuestion_OnlyTypeMissing(t *testing.T) {
	p := profile.Profile{
		Contribution: profile.ContributionInactive,
		ServiceYears: years(2),
	}
	assert.Equal(t, QuestionWithdrawalType, NextQuestion(p))
}

func TestPlan_Sufficient(t *testing.T) {
	p := profile.Profile{
		Contribution:   profile.ContributionActive,
		ServiceYears:   years(7),
		WithdrawalType: profile.WithdrawalEducation,
	}
	d := Plan(p)

	assert.True(t, d.Sufficient)
	assert.True(t, HasSufficientInfo(p))
	assert.Equal(t, StateSufficient, d.State())
	assert.Equal(t, "", d.NextQuestion)
	assert.Empty(t, d.Missing)
}

func TestPlan_ZeroYearsCountsAsKnown(t *testing.T) {
	p := profile.Profile{
		Contribution:   profile.ContributionActive,
		ServiceYears:   years(0),
		WithdrawalType: profile.WithdrawalMedicalEmergency,
	}
	assert.True(t, HasSufficientInfo(p))
}

func TestPlan_OptionalFieldsNeverAsked(t *testing.T) {
	balance := 1000.0
	p := profile.Profile{
		PreviousWithdrawals: profile.PreviousYes,
		CurrentBalance:      &balance,
	}
	d := Plan(p)
	assert.NotContains(t, d.Missing, profile.FieldPreviousWithdrawals)
	assert.NotContains(t, d.Missing, profile.FieldCurrentBalance)
	assert.Equal(t, QuestionContribution, d.NextQuestion)
}

// Once all required fields are present no later utterance can move the
// conversation back to gathering.
func TestPlan_SufficiencyIsOneWay(t *testing.T) {
	var p profile.Profile
	profile.Extract(&p, "yes still employed for 7 years, need it for education")
	assert.True(t, HasSufficientInfo(p))

	for _, msg := range []string{"hello", "no", "I'm not sure anymore", "not employed"} {
		profile.Extract(&p, msg)
		assert.True(t, HasSufficientInfo(p), "after %q", msg)
	}
}
