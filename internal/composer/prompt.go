package composer

import (
	"fmt"
	"strings"

	"github.com/kalambet/pfbot/internal/planner"
	"github.com/kalambet/pfbot/internal/profile"
	"github.com/kalambet/pfbot/internal/session"
)

const defaultMaxContextTokens = 4000

// SystemPrompt is the assistant persona. Backends that accept a separate
// system instruction receive it alongside every prompt.
const SystemPrompt = `You are a friendly and knowledgeable Personal Finance (PF) Bot that helps users with their Provident Fund queries.

Your personality:
- Be warm, conversational, and empathetic
- Use "you" and "your" to make responses personal
- Show understanding of their financial situation
- Be encouraging and supportive
- Use simple, clear language without jargon
- Ask intelligent follow-up questions to gather missing information

You should:
1. Provide accurate and helpful financial advice based on EPFO rules
2. Be clear and concise in your responses
3. Consider the user's context and previous questions
4. Maintain a professional yet friendly tone
5. When unsure, ask for clarification rather than making assumptions
6. Personalize responses based on their specific situation
7. Proactively ask relevant questions to gather missing information

Remember to:
- Focus on personal finance topics, especially PF withdrawals
- Provide practical and actionable advice
- Consider different financial situations and contexts
- Be mindful of financial regulations and best practices
- Always mention specific amounts and eligibility criteria when possible
- Ask one question at a time to avoid overwhelming the user`

const turnInstructions = `Instructions:
1. Respond in a warm, conversational tone using "you" and "your"
2. If you have enough information, provide a complete, personalized answer about their PF withdrawal eligibility
3. If you need more information, ask the next question naturally in the conversation
4. Always mention specific EPFO rules and eligibility criteria when possible
5. Be encouraging and supportive in your tone
6. Use bullet points or numbered lists for clarity when appropriate
7. If mentioning amounts, use realistic examples (e.g., "up to ₹2-3 lakhs" for home loan withdrawal)
8. If asking a question, make it feel natural and conversational, not like an interrogation

Response Guidelines:
- If you have sufficient info: Provide complete eligibility analysis with specific rules and amounts
- If missing info: Acknowledge what you understand, then ask the next question naturally
- Always be helpful and encouraging, regardless of their situation

Remember: You're helping someone with their personal finances, so be empathetic and clear. Make them feel confident about their financial decisions.`

const adviceInstructions = `Please answer in a short, friendly, and conversational tone (3-5 sentences max).
Start with a clear eligibility statement based on the user's details.
Briefly mention the specific EPFO rule that applies.
End with a friendly nudge for the user to provide more details or ask a follow-up question.`

const notSpecified = "Not specified"

// Composer turns the planner's decision, the profile, and the conversation
// history into the instruction text sent to the generator.
type Composer struct {
	MaxContextTokens int
}

// New creates a Composer with the given token budget for conversation
// history. If maxContextTokens <= 0, the default (4000) is used.
func New(maxContextTokens int) *Composer {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{MaxContextTokens: maxContextTokens}
}

// TurnInput is everything the turn prompt is built from. History should
// already include the current user turn.
type TurnInput struct {
	Utterance string
	Profile   profile.Profile
	History   []session.Turn
	Decision  planner.Decision
}

// ComposeTurn builds the prompt for one chat turn.
func (c *Composer) ComposeTurn(in TurnInput) string {
	next := in.Decision.NextQuestion
	if next == "" {
		next = "None"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a friendly and knowledgeable PF withdrawal assistant. The user is asking: \"%s\"\n\n", in.Utterance)
	sb.WriteString("User Profile Context:")
	sb.WriteString(in.Profile.ContextLines())
	sb.WriteString("\n\nPrevious conversation context:\n")
	sb.WriteString(c.formatHistory(in.History))
	sb.WriteString("\nCurrent Situation:\n")
	fmt.Fprintf(&sb, "- Has sufficient information for complete answer: %t\n", in.Decision.Sufficient)
	fmt.Fprintf(&sb, "- Next question to ask: %s\n\n", next)
	sb.WriteString(turnInstructions)
	return sb.String()
}

// ComposeAdvice builds the one-shot questionnaire prompt. Blank answers are
// rendered as "Not specified".
func (c *Composer) ComposeAdvice(a profile.Answers) string {
	years := orNotSpecified(a.ServiceYears)
	if n, ok := a.Years(); ok {
		years = fmt.Sprintf("%s (%d years if specified)", years, n)
	}

	var sb strings.Builder
	sb.WriteString(adviceInstructions)
	sb.WriteString("\n\nUser's Profile:\n")
	fmt.Fprintf(&sb, "- PF Contribution: %s\n", orNotSpecified(a.Contribution))
	fmt.Fprintf(&sb, "- Service Years: %s\n", years)
	fmt.Fprintf(&sb, "- Withdrawal Type: %s\n", orNotSpecified(a.WithdrawalType))
	fmt.Fprintf(&sb, "- Previous Withdrawals: %s\n", orNotSpecified(a.PreviousWithdrawals))
	return sb.String()
}

// formatHistory renders "role: content" lines, dropping the oldest turns
// until the rest fit the token budget. The newest turn is always kept.
func (c *Composer) formatHistory(history []session.Turn) string {
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history))
	remaining := c.MaxContextTokens
	for i := len(history) - 1; i >= 0; i-- {
		line := fmt.Sprintf("%s: %s\n", history[i].Role, history[i].Content)
		tokens := EstimateTokens(line)
		if tokens > remaining && len(lines) > 0 {
			break
		}
		lines = append(lines, line)
		remaining -= tokens
	}

	var sb strings.Builder
	for i := len(lines) - 1; i >= 0; i-- {
		sb.WriteString(lines[i])
	}
	return sb.String()
}

func orNotSpecified(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return notSpecified
	}
	return s
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
