package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/ggmemo/ggmemo/internal/pagination"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type listSessionsInput struct{}

type createSessionInput struct {
	Title string `json:"title" jsonschema:"session title, at most 100 characters"`
}

type updateSessionInput struct {
	SessionID string  `json:"session_id" jsonschema:"battle session id"`
	Title     *string `json:"title,omitempty" jsonschema:"new title, at most 100 characters"`
}

type sessionRefInput struct {
	SessionID string `json:"session_id" jsonschema:"battle session id"`
}

type listMemosInput struct {
	SessionID string `json:"session_id" jsonschema:"battle session id"`
	Page      int    `json:"page,omitempty" jsonschema:"1-based page number; out of range values are clamped"`
	PerPage   int    `json:"per_page,omitempty" jsonschema:"memos per page, default 5"`
}

type addMemoInput struct {
	SessionID string `json:"session_id" jsonschema:"battle session id"`
	Title     string `json:"title,omitempty" jsonschema:"short label such as the opponent or map"`
	Result    string `json:"result" jsonschema:"WIN or LOSE"`
	Rating    int    `json:"rating,omitempty" jsonschema:"self rating 1-5, omit for none"`
	Memo      string `json:"memo" jsonschema:"free text, at most 300 characters"`
}

type updateMemoInput struct {
	SessionID string `json:"session_id" jsonschema:"battle session id"`
	MemoID    string `json:"memo_id" jsonschema:"memo id"`
	Title     string `json:"title,omitempty" jsonschema:"short label"`
	Result    string `json:"result" jsonschema:"WIN or LOSE"`
	Rating    int    `json:"rating,omitempty" jsonschema:"self rating 1-5, omit for none"`
	Memo      string `json:"memo" jsonschema:"free text, at most 300 characters"`
}

type memoRefInput struct {
	SessionID string `json:"session_id" jsonschema:"battle session id"`
	MemoID    string `json:"memo_id" jsonschema:"memo id"`
}

type exportInput struct {
	SessionID  string `json:"session_id" jsonschema:"battle session id"`
	HideRating bool   `json:"hide_rating,omitempty" jsonschema:"omit ratings from the export"`
}

type tools struct {
	sessions SessionService
	memos    MemoService
	logger   *slog.Logger
}

func registerTools(server *sdkmcp.Server, services Services, logger *slog.Logger) {
	t := &tools{sessions: services.Sessions, memos: services.Memos, logger: logger}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_sessions",
		Description: "List your battle sessions, most recently updated first",
	}, t.listSessions)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_session",
		Description: fmt.Sprintf("Create a battle session (max %d per user)", session.MaxSessionsPerUser),
	}, t.createSession)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_session",
		Description: "Rename a battle session",
	}, t.updateSession)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_session",
		Description: "Delete a battle session and all of its memos",
	}, t.deleteSession)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_memos",
		Description: "List one page of a session's memos, newest first",
	}, t.listMemos)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_memo",
		Description: fmt.Sprintf("Record a match in a session (max %d memos per session)", memo.MaxMemosPerSession),
	}, t.addMemo)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_memo",
		Description: "Replace the title, result, rating and text of a memo",
	}, t.updateMemo)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_memo",
		Description: "Delete a memo; deleting a missing memo succeeds",
	}, t.deleteMemo)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "session_stats",
		Description: "Win/loss totals, win rate, average rating and rating distribution for a session",
	}, t.sessionStats)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "export_session",
		Description: "Export a session's statistics and history as Markdown",
	}, t.exportSession)
}

func (t *tools) listSessions(ctx context.Context, _ *sdkmcp.CallToolRequest, _ listSessionsInput) (*sdkmcp.CallToolResult, any, error) {
	list, err := t.sessions.List(ctx, getUserID(ctx))
	if err != nil {
		return nil, nil, t.fail(ctx, "list_sessions", err)
	}
	return jsonResult(map[string]any{"sessions": list})
}

func (t *tools) createSession(ctx context.Context, _ *sdkmcp.CallToolRequest, in createSessionInput) (*sdkmcp.CallToolResult, any, error) {
	sess, err := t.sessions.Create(ctx, session.CreateRequest{UserID: getUserID(ctx), Title: in.Title})
	if err != nil {
		return nil, nil, t.fail(ctx, "create_session", err)
	}
	return jsonResult(sess)
}

func (t *tools) updateSession(ctx context.Context, _ *sdkmcp.CallToolRequest, in updateSessionInput) (*sdkmcp.CallToolResult, any, error) {
	sess, err := t.sessions.Update(ctx, getUserID(ctx), in.SessionID, session.Patch{Title: in.Title})
	if err != nil {
		return nil, nil, t.fail(ctx, "update_session", err)
	}
	return jsonResult(sess)
}

func (t *tools) deleteSession(ctx context.Context, _ *sdkmcp.CallToolRequest, in sessionRefInput) (*sdkmcp.CallToolResult, any, error) {
	if err := t.sessions.Delete(ctx, getUserID(ctx), in.SessionID); err != nil {
		return nil, nil, t.fail(ctx, "delete_session", err)
	}
	return jsonResult(map[string]any{"deleted": in.SessionID})
}

func (t *tools) listMemos(ctx context.Context, _ *sdkmcp.CallToolRequest, in listMemosInput) (*sdkmcp.CallToolResult, any, error) {
	if err := t.authorize(ctx, in.SessionID); err != nil {
		return nil, nil, t.fail(ctx, "list_memos", err)
	}
	list, err := t.memos.List(ctx, in.SessionID)
	if err != nil {
		return nil, nil, t.fail(ctx, "list_memos", err)
	}
	return jsonResult(pagination.Paginate(list, in.PerPage, in.Page))
}

func (t *tools) addMemo(ctx context.Context, _ *sdkmcp.CallToolRequest, in addMemoInput) (*sdkmcp.CallToolResult, any, error) {
	if err := t.authorize(ctx, in.SessionID); err != nil {
		return nil, nil, t.fail(ctx, "add_memo", err)
	}
	created, err := t.memos.Add(ctx, in.SessionID, memo.FormData{
		Title:  in.Title,
		Result: memo.Result(in.Result),
		Rating: in.Rating,
		Memo:   in.Memo,
	})
	if err != nil {
		return nil, nil, t.fail(ctx, "add_memo", err)
	}
	return jsonResult(created)
}

func (t *tools) updateMemo(ctx context.Context, _ *sdkmcp.CallToolRequest, in updateMemoInput) (*sdkmcp.CallToolResult, any, error) {
	if err := t.authorize(ctx, in.SessionID); err != nil {
		return nil, nil, t.fail(ctx, "update_memo", err)
	}
	err := t.memos.Update(ctx, in.SessionID, in.MemoID, memo.FormData{
		Title:  in.Title,
		Result: memo.Result(in.Result),
		Rating: in.Rating,
		Memo:   in.Memo,
	})
	if err != nil {
		return nil, nil, t.fail(ctx, "update_memo", err)
	}
	return jsonResult(map[string]any{"updated": in.MemoID})
}

func (t *tools) deleteMemo(ctx context.Context, _ *sdkmcp.CallToolRequest, in memoRefInput) (*sdkmcp.CallToolResult, any, error) {
	if err := t.authorize(ctx, in.SessionID); err != nil {
		return nil, nil, t.fail(ctx, "delete_memo", err)
	}
	if err := t.memos.Remove(ctx, in.SessionID, in.MemoID); err != nil {
		return nil, nil, t.fail(ctx, "delete_memo", err)
	}
	return jsonResult(map[string]any{"deleted": in.MemoID})
}

func (t *tools) sessionStats(ctx context.Context, _ *sdkmcp.CallToolRequest, in sessionRefInput) (*sdkmcp.CallToolResult, any, error) {
	st, err := t.sessions.Stats(ctx, getUserID(ctx), in.SessionID)
	if err != nil {
		return nil, nil, t.fail(ctx, "session_stats", err)
	}
	return jsonResult(st)
}

func (t *tools) exportSession(ctx context.Context, _ *sdkmcp.CallToolRequest, in exportInput) (*sdkmcp.CallToolResult, any, error) {
	md, err := t.sessions.Export(ctx, getUserID(ctx), in.SessionID, in.HideRating)
	if err != nil {
		return nil, nil, t.fail(ctx, "export_session", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: md}},
	}, nil, nil
}

// authorize checks the caller owns the session before memo access.
func (t *tools) authorize(ctx context.Context, sessionID string) error {
	_, err := t.sessions.Get(ctx, getUserID(ctx), sessionID)
	return err
}

func (t *tools) fail(ctx context.Context, tool string, err error) error {
	level := slog.LevelWarn
	if code := apperr.CodeOf(err); code == apperr.CodeUnknown || apperr.IsCritical(err) {
		level = slog.LevelError
	}
	t.logger.Log(ctx, level, "tool call failed",
		"tool", tool,
		"user_id", getUserID(ctx),
		"mcp_session_id", getSessionID(ctx),
		"error", apperr.Developer(err),
	)
	return MapError(err)
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
