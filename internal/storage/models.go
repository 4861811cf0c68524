package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction kinds.
const (
	KindTurn   = "turn"
	KindAdvice = "advice"
)

// Interaction statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Interaction is one generation call: what went in, what came back, and how
// it went. The composed prompt is not stored because it embeds the profile
// and history, which live only as long as the session.
type Interaction struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	Kind          string    `json:"kind"`
	UserInput     string    `json:"user_input"`
	Backend       string    `json:"backend"`
	Model         string    `json:"model"`
	Response      string    `json:"response"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	Sufficient    bool      `json:"sufficient"`
	NextQuestion  string    `json:"next_question,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	FeedbackScore int       `json:"feedback_score"`
	FeedbackNotes string    `json:"feedback_notes,omitempty"`
}
