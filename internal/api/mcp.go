package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/eduquest/eduquest/internal/storage"
	"github.com/eduquest/eduquest/internal/synth"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     *storage.Store
	Generator Generator
}

// NewMCPServer creates an MCP server exposing question generation and
// progress tracking to local agents over stdio.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"eduquest",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("eduquest — turn study material into practice questions and track answer progress."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_questions",
			mcp.WithDescription("Generate study questions from a block of text."),
			mcp.WithString("text", mcp.Description("Source text to generate questions from"), mcp.Required()),
			mcp.WithString("type", mcp.Description("Question type: MCQ, SHORT, TRUE_FALSE, or LONG"), mcp.Required()),
			mcp.WithNumber("count", mcp.Description("Number of questions to generate (default 3)")),
			mcp.WithString("difficulty", mcp.Description("Optional difficulty: Easy, Medium, or Hard")),
			mcp.WithString("focus", mcp.Description("Optional topic to focus the questions on")),
		),
		mcpGenerateQuestions(deps),
	)

	s.AddTool(
		mcp.NewTool("record_progress",
			mcp.WithDescription("Record whether a user answered a stored question correctly."),
			mcp.WithString("username", mcp.Description("User the attempt belongs to"), mcp.Required()),
			mcp.WithString("question_id", mcp.Description("Stored question ID"), mcp.Required()),
			mcp.WithBoolean("correct", mcp.Description("Whether the answer was correct"), mcp.Required()),
		),
		mcpRecordProgress(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"study://progress",
			"Study Progress",
			mcp.WithResourceDescription("Most recent answer attempts across all users"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProgress(deps),
	)

	return s
}

func mcpGenerateQuestions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		qType, err := req.RequireString("type")
		if err != nil {
			return mcpError("type is required"), nil
		}

		count := req.GetInt("count", 3)
		if count <= 0 {
			count = 3
		}
		if count > 20 {
			count = 20
		}

		questions, err := deps.Generator.Generate(ctx, synth.Request{
			Text:       text,
			Type:       synth.QuestionType(qType),
			Count:      count,
			Difficulty: synth.Difficulty(req.GetString("difficulty", "")),
			Focus:      req.GetString("focus", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("generation failed: %v", err)), nil
		}

		b, err := json.Marshal(questions)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal questions: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRecordProgress(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := req.RequireString("username")
		if err != nil {
			return mcpError("username is required"), nil
		}
		questionID, err := req.RequireString("question_id")
		if err != nil {
			return mcpError("question_id is required"), nil
		}
		correct, err := req.RequireBool("correct")
		if err != nil {
			return mcpError("correct is required"), nil
		}

		u, err := deps.Store.GetUserByUsername(username)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("unknown user %q", username)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("looking up user: %v", err)), nil
		}
		if _, err := deps.Store.GetQuestion(questionID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return mcpError("question not found"), nil
			}
			return mcpError(fmt.Sprintf("looking up question: %v", err)), nil
		}

		entry, err := deps.Store.RecordAttempt(u.ID, questionID, correct, time.Now().UTC())
		if err != nil {
			return mcpError(fmt.Sprintf("recording attempt: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Recorded attempt %d for question %s (success rate %.2f)",
			entry.Attempts, questionID, entry.SuccessRate)), nil
	}
}

func mcpResourceProgress(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries, err := deps.Store.RecentProgress(50)
		if err != nil {
			return nil, fmt.Errorf("failed to read progress: %w", err)
		}

		type progressSummary struct {
			UserID      string  `json:"user_id"`
			QuestionID  string  `json:"question_id"`
			Attempts    int     `json:"attempts"`
			SuccessRate float64 `json:"success_rate"`
			LastAttempt string  `json:"last_attempt"`
		}
		summaries := make([]progressSummary, len(entries))
		for i, e := range entries {
			summaries[i] = progressSummary{
				UserID:      e.UserID,
				QuestionID:  e.QuestionID,
				Attempts:    e.Attempts,
				SuccessRate: e.SuccessRate,
				LastAttempt: e.LastAttempt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal progress: %w", err)
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
