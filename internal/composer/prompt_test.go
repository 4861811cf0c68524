package composer

import (
	"strings"
	"testing"

	"github.com/kalambet/pfbot/internal/planner"
	"github.com/kalambet/pfbot/internal/profile"
	"github.com/kalambet/pfbot/internal/session"
)

func intPtr(v int) *int { return &v }

func TestComposeTurn_GatheringState(t *testing.T) {
	c := New(4000)
	p := profile.Profile{Contribution: profile.ContributionActive}

	out := c.ComposeTurn(TurnInput{
		Utterance: "yes I'm still employed",
		Profile:   p,
		History:   []session.Turn{{Role: session.RoleUser, Content: "yes I'm still employed"}},
		Decision:  planner.Plan(p),
	})

	for _, want := range []string{
		`The user is asking: "yes I'm still employed"`,
		"User Profile Context:\n- PF Contribution Status: active",
		"Previous conversation context:\nuser: yes I'm still employed\n",
		"- Has sufficient information for complete answer: false",
		"- Next question to ask: " + planner.QuestionServiceYears,
		"Response Guidelines:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q\n---\n%s", want, out)
		}
	}
}

func TestComposeTurn_SufficientState(t *testing.T) {
	c := New(4000)
	p := profile.Profile{
		Contribution:   profile.ContributionActive,
		ServiceYears:   intPtr(0),
		WithdrawalType: profile.WithdrawalMarriage,
	}

	out := c.ComposeTurn(TurnInput{Utterance: "hi", Profile: p, Decision: planner.Plan(p)})

	if !strings.Contains(out, "complete answer: true") {
		t.Error("expected sufficient=true in prompt")
	}
	if !strings.Contains(out, "- Next question to ask: None") {
		t.Error("expected next question None")
	}
	if !strings.Contains(out, "- Years of Service: 0 years") {
		t.Error("zero years should be rendered")
	}
}

func TestComposeTurn_EmptyProfile(t *testing.T) {
	c := New(4000)
	out := c.ComposeTurn(TurnInput{Utterance: "hello", Decision: planner.Plan(profile.Profile{})})
	if !strings.Contains(out, "User Profile Context:\n\nPrevious conversation context:") {
		t.Errorf("empty profile should leave the context section blank:\n%s", out)
	}
}

func TestComposeTurn_HistoryBudgetDropsOldest(t *testing.T) {
	c := New(30) // ~120 chars of history

	var history []session.Turn
	for i := range 10 {
		history = append(history, session.Turn{
			Role:    session.RoleUser,
			Content: strings.Repeat(string(rune('a'+i)), 40),
		})
	}

	out := c.ComposeTurn(TurnInput{Utterance: "x", History: history})

	if strings.Contains(out, strings.Repeat("a", 40)) {
		t.Error("oldest turn should have been dropped")
	}
	if !strings.Contains(out, strings.Repeat("j", 40)) {
		t.Error("newest turn must be kept")
	}
}

func TestComposeTurn_NewestTurnKeptOverBudget(t *testing.T) {
	c := New(1)
	long := strings.Repeat("z", 500)
	out := c.ComposeTurn(TurnInput{
		Utterance: long,
		History:   []session.Turn{{Role: session.RoleUser, Content: long}},
	})
	if !strings.Contains(out, "user: "+long) {
		t.Error("newest turn dropped despite being the only one")
	}
}

func TestComposeAdvice_AllAnswers(t *testing.T) {
	c := New(0)
	out := c.ComposeAdvice(profile.Answers{
		Contribution:        "Yes",
		ServiceYears:        "5-10 years",
		WithdrawalType:      "Home Loan",
		PreviousWithdrawals: "No",
	})

	for _, want := range []string{
		"(3-5 sentences max)",
		"- PF Contribution: Yes",
		"- Service Years: 5-10 years (10 years if specified)",
		"- Withdrawal Type: Home Loan",
		"- Previous Withdrawals: No",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("advice prompt missing %q\n---\n%s", want, out)
		}
	}
}

func TestComposeAdvice_NotSpecified(t *testing.T) {
	c := New(0)
	out := c.ComposeAdvice(profile.Answers{WithdrawalType: "Medical"})

	if strings.Count(out, "Not specified") != 3 {
		t.Errorf("expected three Not specified fallbacks:\n%s", out)
	}
	if strings.Contains(out, "years if specified") {
		t.Error("years annotation should be omitted when no count was parsed")
	}
}

func TestNew_DefaultBudget(t *testing.T) {
	if got := New(-1).MaxContextTokens; got != defaultMaxContextTokens {
		t.Errorf("MaxContextTokens = %d, want %d", got, defaultMaxContextTokens)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
