package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/pfbot/internal/pipeline"
	"github.com/kalambet/pfbot/internal/profile"
	"github.com/kalambet/pfbot/internal/reference"
	"github.com/kalambet/pfbot/internal/session"
	"github.com/kalambet/pfbot/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Sessions *session.Registry
	Advisor  *pipeline.Advisor
	Store    *storage.Store // optional; if nil, pf://recent is not registered
}

// NewMCPServer creates an MCP server with all pfbot tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"pfbot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("pfbot answers Provident Fund withdrawal questions. Keep the session_id from pf_chat to continue a conversation."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("pf_chat",
			mcp.WithDescription("Send a message to the PF withdrawal assistant. Omit session_id to start a new conversation."),
			mcp.WithString("message", mcp.Description("What the user said"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Conversation to continue")),
		),
		mcpChat(deps),
	)

	s.AddTool(
		mcp.NewTool("pf_advise",
			mcp.WithDescription("Get one-shot personalized PF withdrawal advice from questionnaire answers."),
			mcp.WithString("pf_contribution", mcp.Description("Are you currently contributing to PF?")),
			mcp.WithString("service_years", mcp.Description("How many years of service (e.g. 5 years)")),
			mcp.WithString("withdrawal_type", mcp.Description("Purpose of the withdrawal")),
			mcp.WithString("previous_withdrawals", mcp.Description("Have you withdrawn PF earlier?")),
			mcp.WithString("session_id", mcp.Description("Conversation to attach the advice to")),
		),
		mcpAdvise(deps),
	)

	s.AddTool(
		mcp.NewTool("pf_reset",
			mcp.WithDescription("Forget everything the assistant learned in a conversation."),
			mcp.WithString("session_id", mcp.Description("Conversation to reset"), mcp.Required()),
		),
		mcpReset(deps),
	)

	s.AddTool(
		mcp.NewTool("pf_reference",
			mcp.WithDescription("Show the quick-reference card for a withdrawal category, or list the categories."),
			mcp.WithString("title", mcp.Description("Card title, e.g. Unemployment")),
		),
		mcpReference(),
	)

	s.AddResource(
		mcp.NewResource(
			"pf://reference",
			"PF Quick Reference",
			mcp.WithResourceDescription("All withdrawal quick-reference cards as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceReference(),
	)

	if deps.Store != nil {
		s.AddResource(
			mcp.NewResource(
				"pf://recent",
				"Recent Interactions",
				mcp.WithResourceDescription("Last 10 recorded interactions (inputs only)"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecent(deps),
		)
	}

	return s
}

type mcpReply struct {
	SessionID string `json:"session_id"`
	pipeline.Reply
}

func mcpChat(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil || strings.TrimSpace(message) == "" {
			return mcpError("message is required"), nil
		}

		id := req.GetString("session_id", "")
		if id == "" {
			id = deps.Sessions.Create().ID
		}

		var reply pipeline.Reply
		err = deps.Sessions.With(id, func(s *session.Session) error {
			reply = deps.Advisor.Respond(ctx, s, message)
			return nil
		})
		if err != nil {
			return mcpSessionError(id, err), nil
		}
		return mcpJSON(mcpReply{SessionID: id, Reply: reply}), nil
	}
}

func mcpAdvise(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		answers := profile.Answers{
			Contribution:        req.GetString("pf_contribution", ""),
			ServiceYears:        req.GetString("service_years", ""),
			WithdrawalType:      req.GetString("withdrawal_type", ""),
			PreviousWithdrawals: req.GetString("previous_withdrawals", ""),
		}
		if answers.IsEmpty() {
			return mcpError("at least one answer is required"), nil
		}

		id := req.GetString("session_id", "")
		if id == "" {
			id = deps.Sessions.Create().ID
		}

		var reply pipeline.Reply
		err := deps.Sessions.With(id, func(s *session.Session) error {
			reply = deps.Advisor.Advise(ctx, s, answers)
			return nil
		})
		if err != nil {
			return mcpSessionError(id, err), nil
		}
		return mcpJSON(mcpReply{SessionID: id, Reply: reply}), nil
	}
}

func mcpReset(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		err = deps.Sessions.With(id, func(s *session.Session) error {
			s.Reset()
			return nil
		})
		if err != nil {
			return mcpSessionError(id, err), nil
		}
		return mcpText(fmt.Sprintf("Session %s reset", id)), nil
	}
}

func mcpReference() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := req.GetString("title", "")
		if title == "" {
			return mcpText("Available cards:\n- " + strings.Join(reference.Titles(), "\n- ")), nil
		}
		card, ok := reference.Lookup(title)
		if !ok {
			return mcpError(fmt.Sprintf("no reference card titled %q", title)), nil
		}
		return mcpText(card.Body), nil
	}
}

func mcpResourceReference() server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(reference.All())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reference cards: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		interactions, err := deps.Store.ListInteractions(10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent interactions: %w", err)
		}

		type interactionSummary struct {
			ID        string `json:"id"`
			SessionID string `json:"session_id"`
			CreatedAt string `json:"created_at"`
			Kind      string `json:"kind"`
			Input     string `json:"input"`
			Status    string `json:"status"`
		}

		summaries := make([]interactionSummary, len(interactions))
		for i, ix := range interactions {
			input := ix.UserInput
			if utf8.RuneCountInString(input) > 200 {
				runes := []rune(input)
				input = string(runes[:200]) + "..."
			}
			summaries[i] = interactionSummary{
				ID:        ix.ID,
				SessionID: ix.SessionID,
				CreatedAt: ix.CreatedAt.Format(time.RFC3339),
				Kind:      ix.Kind,
				Input:     input,
				Status:    ix.Status,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpSessionError(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, session.ErrNotFound) {
		return mcpError(fmt.Sprintf("session %s not found", id))
	}
	return mcpError(err.Error())
}

func mcpJSON(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcpText(string(b))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
