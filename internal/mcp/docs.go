package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `ggmemo keeps fighting-game match notes grouped into battle sessions.

Core concepts:
- Battle session: a titled container owned by one user. At most 20 per user.
- Memo: one match. result is WIN or LOSE, rating is 1-5 or 0 for unrated, memo text is at most 300 characters. At most 50 per session.
- Stats: wins, losses, win rate and average rating are computed from a session's memos on demand.

Default workflow:
1) Orient: call list_sessions. Create one with create_session if none fits.
2) Record matches with add_memo. Memos are listed newest first.
3) Browse with list_memos (paginated, 5 per page by default).
4) Review with session_stats or export_session (Markdown).

Errors carry a code (e.g. SESSION_LIMIT_EXCEEDED, NOT_FOUND) and a recovery hint.

Docs:
- ggmemo://docs/index
- ggmemo://docs/limits
- ggmemo://docs/workflows/review
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "ggmemo://docs/index",
		Name:        "docs_index",
		Title:       "ggmemo docs index",
		Description: "Entry point: tools, data model and what to read next.",
		Content: `# ggmemo: Agent Docs Index

## Tools

- ` + "`list_sessions`" + `, ` + "`create_session`" + `, ` + "`update_session`" + `, ` + "`delete_session`" + `
- ` + "`list_memos`" + `, ` + "`add_memo`" + `, ` + "`update_memo`" + `, ` + "`delete_memo`" + `
- ` + "`session_stats`" + `, ` + "`export_session`" + `

## Data model

- A session has ` + "`id`" + `, ` + "`title`" + ` and ` + "`updatedAt`" + `. Adding or editing a memo bumps ` + "`updatedAt`" + `, so the session list is ordered by recent play.
- A memo has ` + "`id`" + `, ` + "`title`" + `, ` + "`result`" + `, ` + "`rating`" + `, ` + "`memo`" + ` and ` + "`createdAt`" + `.
- Deleting a session deletes its memos.

## Docs

- ` + "`ggmemo://docs/limits`" + `: caps and validation rules.
- ` + "`ggmemo://docs/workflows/review`" + `: turning memos into a review.
`,
	},
	{
		URI:         "ggmemo://docs/limits",
		Name:        "docs_limits",
		Title:       "Limits and validation",
		Description: "Per-user and per-session caps, field lengths and the error codes they produce.",
		Content: `# Limits and validation

| Rule | Limit | Error code |
| --- | --- | --- |
| Sessions per user | 20 | SESSION_LIMIT_EXCEEDED |
| Memos per session | 50 | SESSION_LIMIT_EXCEEDED |
| Session title | 100 characters | SESSION_TITLE_TOO_LONG |
| Memo text | 300 characters | INVALID_INPUT |
| Rating | 1-5, or 0 for none | INVALID_INPUT |
| Result | WIN or LOSE | INVALID_INPUT |


Deleting a memo that does not exist succeeds. Updating one returns NOT_FOUND.
`,
	},
	{
		URI:         "ggmemo://docs/workflows/review",
		Name:        "docs_workflow_review",
		Title:       "Workflow: reviewing a session",
		Description: "How to summarize a session for the player without loading every memo.",
		Content: `# Workflow: reviewing a session

1) ` + "`session_stats(session_id)`" + ` gives totals, the win rate as a one-decimal percentage and the rating distribution. Unrated memos do not count toward the average.
2) If the player wants detail, page through ` + "`list_memos`" + ` rather than loading everything.
3) ` + "`export_session`" + ` returns the same data as a Markdown report. Pass ` + "`hide_rating=true`" + ` when sharing it.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
