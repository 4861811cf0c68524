// Package session holds the per-conversation state: the user profile built so
// far and the ordered chat history. A Session is not safe for concurrent use;
// the Registry serializes access per session.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/pfbot/internal/planner"
	"github.com/kalambet/pfbot/internal/profile"
	"github.com/kalambet/pfbot/internal/reference"
)

// Greeting is the first assistant line shown to a new user.
const Greeting = "Hi there! 👋 I'm your personal PF assistant. Please answer a few questions to get a personalized answer."

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Session is the state of one conversation.
type Session struct {
	ID        string
	Profile   profile.Profile
	History   []Turn
	CreatedAt time.Time
	UpdatedAt time.Time

	clock Clock
}

// New creates a session with an empty profile and history.
func New() *Session {
	return newWithClock(realClock{})
}

func newWithClock(clock Clock) *Session {
	now := clock.Now()
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
		clock:     clock,
	}
}

// TurnResult is the outcome of processing one user utterance.
type TurnResult struct {
	Profile      profile.Profile
	Sufficient   bool
	NextQuestion string
	Matched      []profile.Field
}

// ProcessTurn extracts facts from utterance into the profile, records the
// user turn, and plans the next step. It never calls the generator.
func (s *Session) ProcessTurn(utterance string) TurnResult {
	matched := profile.Extract(&s.Profile, utterance)
	s.append(RoleUser, utterance)

	d := planner.Plan(s.Profile)
	return TurnResult{
		Profile:      s.Profile.Clone(),
		Sufficient:   d.Sufficient,
		NextQuestion: d.NextQuestion,
		Matched:      matched,
	}
}

// AppendAssistant records an assistant reply.
func (s *Session) AppendAssistant(content string) {
	s.append(RoleAssistant, content)
}

// ShowReference records a quick-reference lookup as a user request followed
// by the card text. The profile is not touched.
func (s *Session) ShowReference(c reference.Card) {
	s.append(RoleUser, "Tell me about "+c.Title)
	s.append(RoleAssistant, c.Body)
}

// ClearHistory drops the history but keeps the profile.
func (s *Session) ClearHistory() {
	s.History = nil
	s.touch()
}

// Reset clears both profile and history, returning the session to the
// gathering state.
func (s *Session) Reset() {
	s.Profile = profile.Profile{}
	s.History = nil
	s.touch()
}

func (s *Session) append(role Role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
	s.touch()
}

func (s *Session) touch() {
	if s.clock == nil {
		s.clock = realClock{}
	}
	s.UpdatedAt = s.clock.Now()
}

// Snapshot is a read-only copy of a session suitable for returning to callers.
type Snapshot struct {
	ID           string          `json:"id"`
	Profile      profile.Profile `json:"profile"`
	History      []Turn          `json:"history"`
	State        planner.State   `json:"state"`
	Sufficient   bool            `json:"sufficient"`
	NextQuestion string          `json:"next_question,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	history := make([]Turn, len(s.History))
	copy(history, s.History)
	d := planner.Plan(s.Profile)
	return Snapshot{
		ID:           s.ID,
		Profile:      s.Profile.Clone(),
		History:      history,
		State:        d.State(),
		Sufficient:   d.Sufficient,
		NextQuestion: d.NextQuestion,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
