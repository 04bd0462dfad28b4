package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ggmemo/ggmemo/internal/auth"
	"github.com/ggmemo/ggmemo/internal/autosave"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/domain/quickmemo"
	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/ggmemo/ggmemo/internal/feed"
	"github.com/ggmemo/ggmemo/internal/kv"
	"github.com/ggmemo/ggmemo/internal/mcp"
	"github.com/ggmemo/ggmemo/internal/sqlite"
	"github.com/ggmemo/ggmemo/internal/transport"
	"github.com/gin-gonic/gin"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// Secret signs tokens issued by TestServer.Token.
const Secret = "test-secret"

type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Store    kv.Store
	Hub      *feed.Hub
	Drafts   *autosave.Registry
	Verifier *auth.Verifier
}

// New starts the full HTTP stack over an in-memory SQLite database and a
// file-backed kv store in t.TempDir().
func New(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	store, err := kv.OpenFileStore(filepath.Join(t.TempDir(), "store.json"), nil)
	require.NoError(t, err)

	hub := feed.NewHub(nil)
	sessionRepo := sqlite.NewSessionRepository(db)
	memoRepo := sqlite.NewMemoRepository(db)
	sessionSvc := session.NewService(sessionRepo, memoRepo, nil)
	memoSvc := memo.NewService(memoRepo, nil,
		memo.WithNotifier(hub),
		memo.WithSessionToucher(sessionRepo),
	)
	drafts := autosave.NewRegistry(store, autosave.Config{Delay: 20 * time.Millisecond, Limit: 50}, nil)
	verifier := auth.NewVerifier(Secret)

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      mcp.Services{Sessions: sessionSvc, Memos: memoSvc},
		Resolver:      verifier,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	var quickLocks quickmemo.Locks
	router := transport.NewServer(transport.Config{
		QuickMemos: func(deviceID string) transport.QuickMemoService {
			namespace := "device:" + deviceID + ":"
			return quickmemo.NewService(kv.WithPrefix(store, namespace), nil,
				quickmemo.WithLock(quickLocks.For(namespace)))
		},
		Sessions: sessionSvc,
		Memos:    memoSvc,
		Drafts:   drafts,
		Identity: transport.IdentityConfig{
			Resolver:        verifier,
			TrustUserHeader: true,
		},
		MCP:       mcpHandler,
		KeepAlive: 50 * time.Millisecond,
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       db,
		Store:    store,
		Hub:      hub,
		Drafts:   drafts,
		Verifier: verifier,
	}
	t.Cleanup(func() {
		server.Close()
		_ = drafts.FlushAll(context.Background())
		_ = db.Close()
	})
	return ts
}

// Token issues a bearer token for userID.
func (ts *TestServer) Token(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.Verifier.Issue(userID, time.Hour)
	require.NoError(t, err)
	return token
}

// URL joins path onto the server address.
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}
