package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/ggmemo/ggmemo/internal/auth"
	"github.com/ggmemo/ggmemo/internal/autosave"
	"github.com/ggmemo/ggmemo/internal/config"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/domain/quickmemo"
	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/ggmemo/ggmemo/internal/feed"
	"github.com/ggmemo/ggmemo/internal/firestore"
	"github.com/ggmemo/ggmemo/internal/kv"
	"github.com/ggmemo/ggmemo/internal/mcp"
	"github.com/ggmemo/ggmemo/internal/sqlite"
	"github.com/ggmemo/ggmemo/internal/transport"
	"github.com/gin-gonic/gin"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
)

var version = "0.1.0"

func main() {
	issueFor := flag.String("issue-token", "", "print a signed bearer token for the given user id and exit")
	issueTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of tokens printed by -issue-token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if *issueFor != "" {
		if cfg.Auth.Secret == "" {
			fmt.Fprintln(os.Stderr, "GGMEMO_AUTH_SECRET is required to issue tokens")
			os.Exit(1)
		}
		token, err := newVerifier(cfg).Issue(*issueFor, *issueTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = kv.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	var hubOpts []feed.Option
	if redisClient != nil {
		hubOpts = append(hubOpts, feed.WithRedis(redisClient, cfg.Feed.Channel))
	}
	hub := feed.NewHub(logger, hubOpts...)
	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error("memo feed stopped", "error", err)
		}
	}()

	sessionSvc := session.NewService(store.sessions, store.memos, logger)
	memoSvc := memo.NewService(store.memos, logger,
		memo.WithNotifier(hub),
		memo.WithSessionToucher(store.sessions),
	)

	var resolver auth.Resolver
	if cfg.Auth.Secret != "" {
		resolver = newVerifier(cfg)
	}
	mcpServer := mcp.NewServer(mcp.Config{
		Services:      mcp.Services{Sessions: sessionSvc, Memos: memoSvc},
		Resolver:      resolver,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		Logger:        logger,
	})

	if cfg.Transport.Mode == "stdio" {
		runStdioMode(ctx, logger, mcpServer)
		return
	}

	kvStore, err := openKV(cfg, redisClient, logger)
	if err != nil {
		logger.Error("failed to open kv store", "backend", cfg.KV.Backend, "error", err)
		os.Exit(1)
	}
	drafts := autosave.NewRegistry(kvStore, autosave.Config{
		Delay: cfg.Autosave.Delay,
		Limit: cfg.Autosave.Limit,
	}, logger)

	identity := transport.IdentityConfig{TrustUserHeader: cfg.Auth.DevMode}
	if cfg.Auth.Enabled {
		identity.Resolver = resolver
	} else {
		identity.DefaultUser = mcp.DefaultUser
	}

	var quickLocks quickmemo.Locks
	gin.SetMode(gin.ReleaseMode)
	router := transport.NewServer(transport.Config{
		QuickMemos: func(deviceID string) transport.QuickMemoService {
			namespace := "device:" + deviceID + ":"
			return quickmemo.NewService(kv.WithPrefix(kvStore, namespace), logger,
				quickmemo.WithLock(quickLocks.For(namespace)))
		},
		Sessions: sessionSvc,
		Memos:    memoSvc,
		Drafts:   drafts,
		Identity: identity,
		MCP: sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
		),
		Logger: logger,
	})

	runHTTPMode(ctx, logger, router, cfg.Server.Host, cfg.Server.Port)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := drafts.FlushAll(flushCtx); err != nil {
		logger.Error("failed to flush drafts", "error", err)
	}
}

func newVerifier(cfg config.Config) *auth.Verifier {
	var opts []auth.Option
	if cfg.Auth.Issuer != "" {
		opts = append(opts, auth.WithIssuer(cfg.Auth.Issuer))
	}
	return auth.NewVerifier(cfg.Auth.Secret, opts...)
}

// backend bundles the session and memo repositories of one store.
type backend struct {
	sessions interface {
		session.Repository
		memo.SessionToucher
	}
	memos memo.Repository
	close func() error
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.Store.Backend {
	case "firestore":
		client, err := firestore.NewClient(ctx, firestore.Config{
			ProjectID:       cfg.Store.ProjectID,
			CredentialsFile: cfg.Store.CredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using firestore store", "project", cfg.Store.ProjectID)
		return &backend{
			sessions: firestore.NewSessionRepository(client),
			memos:    firestore.NewMemoRepository(client, logger),
			close:    client.Close,
		}, nil
	default:
		if err := ensureDir(cfg.DB.Path); err != nil {
			return nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(cfg.DB.Path)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("using sqlite store", "path", cfg.DB.Path)
		return &backend{
			sessions: sqlite.NewSessionRepository(db),
			memos:    sqlite.NewMemoRepository(db),
			close:    db.Close,
		}, nil
	}
}

func openKV(cfg config.Config, client *redis.Client, logger *slog.Logger) (kv.Store, error) {
	if cfg.KV.Backend == "redis" {
		return kv.NewRedisStore(client, cfg.KV.Prefix, cfg.KV.TTL, logger), nil
	}
	return kv.OpenFileStore(cfg.KV.FilePath, logger)
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, handler http.Handler, host string, port int) {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a log file and keeps only its newest
// keepLogSizeBytes once it grows past maxLogSizeBytes.
type logFileWriter struct {
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	return writer, file, nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.truncateIfNeeded()
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	n, err := w.file.ReadAt(buf, size-keepLogSizeBytes)
	if err != nil && err != io.EOF {
		return err
	}
	if err := w.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes go to the new end after truncation.
	_, err = w.file.Write(buf[:n])
	return err
}
