package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kalambet/pfbot/internal/composer"
	"github.com/kalambet/pfbot/internal/generator/mocks"
	"github.com/kalambet/pfbot/internal/planner"
	"github.com/kalambet/pfbot/internal/profile"
	"github.com/kalambet/pfbot/internal/session"
	"github.com/kalambet/pfbot/internal/storage"
)

type fakeRecorder struct {
	saved []storage.Interaction
	err   error
}

func (f *fakeRecorder) SaveInteraction(i storage.Interaction) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, i)
	return nil
}

func newTestAdvisor(t *testing.T) (*Advisor, *mocks.MockGenerator, *fakeRecorder) {
	t.Helper()
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	rec := &fakeRecorder{}
	return NewAdvisor(composer.New(0), gen, rec), gen, rec
}

func TestRespond_FirstTurnAsksContribution(t *testing.T) {
	a, gen, rec := newTestAdvisor(t)
	s := session.New()

	var prompt string
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "Are you currently contributing to your PF?", nil
	})

	reply := a.Respond(context.Background(), s, "I want to withdraw money")

	assert.Equal(t, "Are you currently contributing to your PF?", reply.Text)
	assert.False(t, reply.Sufficient)
	assert.Equal(t, planner.QuestionContribution, reply.NextQuestion)
	assert.False(t, reply.Failed)

	require.Len(t, s.History, 2)
	assert.Equal(t, session.RoleUser, s.History[0].Role)
	assert.Equal(t, session.RoleAssistant, s.History[1].Role)

	assert.Contains(t, prompt, `The user is asking: "I want to withdraw money"`)
	assert.Contains(t, prompt, "Has sufficient information for complete answer: false")

	require.Len(t, rec.saved, 1)
	got := rec.saved[0]
	assert.Equal(t, reply.InteractionID, got.ID)
	assert.Equal(t, s.ID, got.SessionID)
	assert.Equal(t, storage.KindTurn, got.Kind)
	assert.Equal(t, storage.StatusCompleted, got.Status)
	assert.Equal(t, planner.QuestionContribution, got.NextQuestion)
	assert.Equal(t, "unknown", got.Backend)
}

func TestRespond_BecomesSufficient(t *testing.T) {
	a, gen, _ := newTestAdvisor(t)
	s := session.New()
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("ok", nil).Times(2)

	a.Respond(context.Background(), s, "I am still employed and contributing")
	reply := a.Respond(context.Background(), s, "For 6 years. I need money for my daughter's education")

	assert.True(t, reply.Sufficient)
	assert.Empty(t, reply.NextQuestion)
	assert.Equal(t, profile.ContributionActive, reply.Profile.Contribution)
	assert.Equal(t, profile.WithdrawalEducation, reply.Profile.WithdrawalType)
	require.NotNil(t, reply.Profile.ServiceYears)
	assert.Equal(t, 6, *reply.Profile.ServiceYears)
	assert.Len(t, s.History, 4)
}

func TestRespond_GenerationFailure(t *testing.T) {
	a, gen, rec := newTestAdvisor(t)
	s := session.New()
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", errors.New("quota exceeded"))

	reply := a.Respond(context.Background(), s, "I need money for medical treatment")

	assert.True(t, reply.Failed)
	assert.Equal(t, "I apologize, but I encountered an error: quota exceeded", reply.Text)
	assert.Equal(t, profile.WithdrawalMedicalEmergency, reply.Profile.WithdrawalType, "extraction survives a failed generation")

	require.Len(t, s.History, 1, "no assistant turn on failure")
	assert.Equal(t, session.RoleUser, s.History[0].Role)

	require.Len(t, rec.saved, 1)
	assert.Equal(t, storage.StatusFailed, rec.saved[0].Status)
	assert.Equal(t, "quota exceeded", rec.saved[0].Error)
	assert.Empty(t, rec.saved[0].Response)
}

func TestRespond_RecorderErrorIsNotFatal(t *testing.T) {
	a, gen, rec := newTestAdvisor(t)
	rec.err = errors.New("disk full")
	s := session.New()
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("fine", nil)

	reply := a.Respond(context.Background(), s, "hello")
	assert.Equal(t, "fine", reply.Text)
	assert.Empty(t, reply.InteractionID)
}

func TestRespond_NilRecorder(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("fine", nil)

	a := NewAdvisor(composer.New(0), gen, nil)
	reply := a.Respond(context.Background(), session.New(), "hello")
	assert.Equal(t, "fine", reply.Text)
}

func TestAdvise_ClearsHistoryAndAppliesAnswers(t *testing.T) {
	a, gen, rec := newTestAdvisor(t)
	s := session.New()
	s.AppendAssistant("earlier chatter")

	var prompt string
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "Here is your personalized advice.", nil
	})

	reply := a.Advise(context.Background(), s, profile.Answers{
		Contribution:        "Yes, I'm currently contributing",
		ServiceYears:        "7 years",
		WithdrawalType:      "Home loan repayment",
		PreviousWithdrawals: "No previous withdrawals",
	})

	assert.Equal(t, "Here is your personalized advice.", reply.Text)
	assert.True(t, reply.Sufficient)
	assert.Equal(t, profile.WithdrawalHomeLoanRepayment, s.Profile.WithdrawalType)
	assert.Equal(t, profile.PreviousNone, s.Profile.PreviousWithdrawals)
	require.NotNil(t, s.Profile.ServiceYears)
	assert.Equal(t, 7, *s.Profile.ServiceYears)

	require.Len(t, s.History, 1)
	assert.Equal(t, session.Turn{Role: session.RoleAssistant, Content: "Here is your personalized advice."}, s.History[0])

	assert.Contains(t, prompt, "Home loan repayment")
	assert.Contains(t, prompt, "(7 years if specified)")

	require.Len(t, rec.saved, 1)
	assert.Equal(t, storage.KindAdvice, rec.saved[0].Kind)
	assert.True(t, strings.Contains(rec.saved[0].UserInput, `withdrawal_type="Home loan repayment"`))
}

func TestAdvise_FailureLeavesHistoryEmpty(t *testing.T) {
	a, gen, _ := newTestAdvisor(t)
	s := session.New()
	s.AppendAssistant("earlier chatter")
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", errors.New("timeout"))

	reply := a.Advise(context.Background(), s, profile.Answers{WithdrawalType: "Marriage"})

	assert.True(t, reply.Failed)
	assert.True(t, strings.HasPrefix(reply.Text, ApologyPrefix))
	assert.Empty(t, s.History)
	assert.Equal(t, profile.WithdrawalMarriage, s.Profile.WithdrawalType)
}

func TestAdvise_RecordsIntoStore(t *testing.T) {
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("advice", nil)

	a := NewAdvisor(composer.New(0), gen, store)
	s := session.New()
	reply := a.Advise(context.Background(), s, profile.Answers{Contribution: "Yes"})
	require.NotEmpty(t, reply.InteractionID)

	got, err := store.GetInteraction(reply.InteractionID)
	require.NoError(t, err)
	assert.Equal(t, "advice", got.Response)
	assert.Equal(t, s.ID, got.SessionID)
}

func TestAdvise_PlainYesCountsAsContributing(t *testing.T) {
	a, gen, _ := newTestAdvisor(t)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("advice", nil)

	reply := a.Advise(context.Background(), session.New(), profile.Answers{
		Contribution:   "Yes",
		ServiceYears:   "6 years",
		WithdrawalType: "Medical emergency",
	})

	assert.Equal(t, profile.ContributionActive, reply.Profile.Contribution)
	assert.True(t, reply.Sufficient)
	assert.Empty(t, reply.NextQuestion)
}

func TestRespond_StoredRecordLeavesOutProfileAndHistory(t *testing.T) {
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	var prompts []string
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p string) (string, error) {
		prompts = append(prompts, p)
		return "Noted.", nil
	}).Times(2)

	a := NewAdvisor(composer.New(0), gen, store)
	s := session.New()
	a.Respond(context.Background(), s, "I am still employed and contributing for 9 years")
	reply := a.Respond(context.Background(), s, "It is for my wedding")

	require.Len(t, prompts, 2)
	require.Contains(t, prompts[1], "User Profile Context:")
	require.Contains(t, prompts[1], "Previous conversation context:")

	got, err := store.GetInteraction(reply.InteractionID)
	require.NoError(t, err)
	dump := fmt.Sprintf("%+v", got)
	assert.NotContains(t, dump, "User Profile Context")
	assert.NotContains(t, dump, "9 years")
	assert.Equal(t, "It is for my wedding", got.UserInput)
	assert.Equal(t, planner.QuestionWithdrawalType, got.NextQuestion)
}
