package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ggmemo/ggmemo/internal/autosave"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/ggmemo/ggmemo/internal/domain/stats"
	"github.com/ggmemo/ggmemo/internal/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QuickMemoService is the device-local memo list.
type QuickMemoService interface {
	List(ctx context.Context) ([]memo.Memo, error)
	Add(ctx context.Context, form memo.FormData) (*memo.Memo, error)
	Update(ctx context.Context, id string, form memo.FormData) (*memo.Memo, error)
	Remove(ctx context.Context, id string) error
	RemoveAll(ctx context.Context) error
	Page(ctx context.Context, page, perPage int) (pagination.Page[memo.Memo], error)
}

// SessionService defines battle session operations needed by the REST API.
type SessionService interface {
	List(ctx context.Context, userID string) ([]session.BattleSession, error)
	Get(ctx context.Context, userID, sessionID string) (*session.BattleSession, error)
	Create(ctx context.Context, req session.CreateRequest) (*session.BattleSession, error)
	Update(ctx context.Context, userID, sessionID string, patch session.Patch) (*session.BattleSession, error)
	Delete(ctx context.Context, userID, sessionID string) error
	DeleteAll(ctx context.Context, userID string) error
	Stats(ctx context.Context, userID, sessionID string) (stats.Stats, error)
	Export(ctx context.Context, userID, sessionID string, hideRating bool) (string, error)
}

// MemoService defines session memo operations needed by the REST API.
type MemoService interface {
	List(ctx context.Context, sessionID string) ([]memo.Memo, error)
	Add(ctx context.Context, sessionID string, form memo.FormData) (*memo.Memo, error)
	Update(ctx context.Context, sessionID, memoID string, form memo.FormData) error
	Remove(ctx context.Context, sessionID, memoID string) error
	RemoveAll(ctx context.Context, sessionID string) error
	Subscribe(ctx context.Context, sessionID string) (<-chan []memo.Memo, error)
}

// Config wires the REST server.
type Config struct {
	// QuickMemos returns the quick memo list for a device namespace.
	QuickMemos func(deviceID string) QuickMemoService
	Sessions   SessionService
	Memos      MemoService
	Drafts     *autosave.Registry
	Identity   IdentityConfig
	// MCP is mounted at /mcp when set.
	MCP    http.Handler
	Logger *slog.Logger
	// KeepAlive is the SSE heartbeat interval. Zero means 25s.
	KeepAlive time.Duration
}

// Server holds handler dependencies.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// NewServer creates the gin router with middleware and all routes.
func NewServer(cfg Config) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 25 * time.Second
	}
	srv := &Server{cfg: cfg, logger: cfg.Logger}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(cfg.Logger))

	r.GET("/health", srv.handleHealth)
	if cfg.MCP != nil {
		r.Any("/mcp", gin.WrapH(cfg.MCP))
	}

	v1 := r.Group("/api/v1", Identity(cfg.Identity), Device())

	if cfg.QuickMemos != nil {
		quick := v1.Group("/quick-memos")
		quick.GET("", srv.listQuickMemos)
		quick.POST("", srv.addQuickMemo)
		quick.DELETE("", srv.clearQuickMemos)
		quick.PUT("/:memoId", srv.updateQuickMemo)
		quick.DELETE("/:memoId", srv.removeQuickMemo)
	}

	if cfg.Sessions != nil && cfg.Memos != nil {
		sessions := v1.Group("/sessions")
		sessions.GET("", srv.listSessions)
		sessions.POST("", srv.createSession)
		sessions.DELETE("", srv.deleteAllSessions)
		sessions.GET("/:sessionId", srv.getSession)
		sessions.PATCH("/:sessionId", srv.updateSession)
		sessions.DELETE("/:sessionId", srv.deleteSession)
		sessions.GET("/:sessionId/stats", srv.sessionStats)
		sessions.GET("/:sessionId/export", srv.exportSession)

		memos := sessions.Group("/:sessionId/memos", srv.requireSession)
		memos.GET("", srv.listMemos)
		memos.POST("", srv.addMemo)
		memos.DELETE("", srv.clearMemos)
		memos.GET("/stream", srv.streamMemos)
		memos.PUT("/:memoId", srv.updateMemo)
		memos.DELETE("/:memoId", srv.removeMemo)
	}

	if cfg.Drafts != nil {
		v1.GET("/draft", srv.getDraft)
		v1.PUT("/draft", srv.putDraft)
		v1.POST("/draft/flush", srv.flushDraft)
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// RequestLogger logs every request with a request id.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"user_id", GetUserID(c),
			"body_size", c.Writer.Size(),
		)
	}
}
