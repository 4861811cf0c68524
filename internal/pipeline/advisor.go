// Package pipeline runs one assistant turn end to end: extract, plan,
// compose, generate, record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/pfbot/internal/composer"
	"github.com/kalambet/pfbot/internal/generator"
	"github.com/kalambet/pfbot/internal/planner"
	"github.com/kalambet/pfbot/internal/profile"
	"github.com/kalambet/pfbot/internal/session"
	"github.com/kalambet/pfbot/internal/storage"
)

// ApologyPrefix starts every reply produced when generation fails.
const ApologyPrefix = "I apologize, but I encountered an error: "

// Recorder persists interaction records.
type Recorder interface {
	SaveInteraction(i storage.Interaction) error
}

// Reply is what the user sees after a turn, plus the planner state behind it.
type Reply struct {
	Text          string          `json:"reply"`
	Profile       profile.Profile `json:"profile"`
	Sufficient    bool            `json:"sufficient"`
	NextQuestion  string          `json:"next_question,omitempty"`
	Failed        bool            `json:"failed,omitempty"`
	InteractionID string          `json:"interaction_id,omitempty"`
}

// Advisor ties the composer and generator together for a session. It is safe
// for concurrent use as long as each Session is used by one caller at a time.
type Advisor struct {
	composer  *composer.Composer
	generator generator.Generator
	recorder  Recorder
}

// NewAdvisor creates an Advisor. recorder may be nil to skip audit records.
func NewAdvisor(comp *composer.Composer, gen generator.Generator, recorder Recorder) *Advisor {
	return &Advisor{composer: comp, generator: gen, recorder: recorder}
}

// Respond processes one chat utterance. Generation errors never escape: the
// reply carries an apology and the history keeps only the user turn.
func (a *Advisor) Respond(ctx context.Context, s *session.Session, utterance string) Reply {
	result := s.ProcessTurn(utterance)

	prompt := a.composer.ComposeTurn(composer.TurnInput{
		Utterance: utterance,
		Profile:   s.Profile,
		History:   s.History,
		Decision:  planner.Plan(s.Profile),
	})

	reply := Reply{
		Profile:      result.Profile,
		Sufficient:   result.Sufficient,
		NextQuestion: result.NextQuestion,
	}
	a.generate(ctx, s, &reply, storage.KindTurn, utterance, prompt)
	return reply
}

// Advise answers the four-question form in one shot. The answers are folded
// into the profile and the history restarts with the advice as its first turn.
func (a *Advisor) Advise(ctx context.Context, s *session.Session, answers profile.Answers) Reply {
	answers.Apply(&s.Profile)
	s.ClearHistory()

	d := planner.Plan(s.Profile)
	reply := Reply{
		Profile:      s.Profile.Clone(),
		Sufficient:   d.Sufficient,
		NextQuestion: d.NextQuestion,
	}

	prompt := a.composer.ComposeAdvice(answers)
	a.generate(ctx, s, &reply, storage.KindAdvice, formatAnswers(answers), prompt)
	return reply
}

func (a *Advisor) generate(ctx context.Context, s *session.Session, reply *Reply, kind, input, prompt string) {
	start := time.Now()
	text, err := a.generator.Generate(ctx, prompt)
	elapsed := time.Since(start)

	rec := storage.Interaction{
		ID:           uuid.New().String(),
		SessionID:    s.ID,
		CreatedAt:    start,
		Kind:         kind,
		UserInput:    input,
		Sufficient:   reply.Sufficient,
		NextQuestion: reply.NextQuestion,
		DurationMs:   elapsed.Milliseconds(),
	}
	rec.Backend, rec.Model = generator.Describe(a.generator)

	if err != nil {
		slog.Error("generation failed", "session_id", s.ID, "kind", kind, "error", err)
		reply.Text = ApologyPrefix + err.Error()
		reply.Failed = true
		rec.Status = storage.StatusFailed
		rec.Error = err.Error()
	} else {
		s.AppendAssistant(text)
		reply.Text = text
		rec.Status = storage.StatusCompleted
		rec.Response = text
		slog.Debug("generation completed", "session_id", s.ID, "kind", kind, "duration_ms", rec.DurationMs)
	}

	if a.recorder == nil {
		return
	}
	if err := a.recorder.SaveInteraction(rec); err != nil {
		slog.Warn("failed to record interaction", "session_id", s.ID, "error", err)
		return
	}
	reply.InteractionID = rec.ID
}

func formatAnswers(a profile.Answers) string {
	return fmt.Sprintf("pf_contribution=%q service_years=%q withdrawal_type=%q previous_withdrawals=%q",
		a.Contribution, a.ServiceYears, a.WithdrawalType, a.PreviousWithdrawals)
}
