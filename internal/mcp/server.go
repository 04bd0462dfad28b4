package mcp

import (
	"context"
	"log/slog"

	"github.com/ggmemo/ggmemo/internal/auth"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/ggmemo/ggmemo/internal/domain/stats"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// SessionService defines battle session operations needed by MCP.
type SessionService interface {
	List(ctx context.Context, userID string) ([]session.BattleSession, error)
	Get(ctx context.Context, userID, sessionID string) (*session.BattleSession, error)
	Create(ctx context.Context, req session.CreateRequest) (*session.BattleSession, error)
	Update(ctx context.Context, userID, sessionID string, patch session.Patch) (*session.BattleSession, error)
	Delete(ctx context.Context, userID, sessionID string) error
	Stats(ctx context.Context, userID, sessionID string) (stats.Stats, error)
	Export(ctx context.Context, userID, sessionID string, hideRating bool) (string, error)
}

// MemoService defines memo operations needed by MCP.
type MemoService interface {
	List(ctx context.Context, sessionID string) ([]memo.Memo, error)
	Add(ctx context.Context, sessionID string, form memo.FormData) (*memo.Memo, error)
	Update(ctx context.Context, sessionID, memoID string, form memo.FormData) error
	Remove(ctx context.Context, sessionID, memoID string) error
}

// Services contains all domain services needed by MCP.
type Services struct {
	Sessions SessionService
	Memos    MemoService
}

// DefaultUser owns all data when auth is disabled.
const DefaultUser = "local"

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      auth.Resolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "ggmemo",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is local only and never authenticates.
	identity := noAuthMiddleware(DefaultUser)
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		identity = authMiddleware(cfg.Resolver)
	}
	// The first middleware runs outermost.
	server.AddReceivingMiddleware(
		identity,
		sessionMiddleware(),
		trafficLoggingMiddleware(cfg.Logger, "inbound"),
	)
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services, cfg.Logger)

	return server
}
