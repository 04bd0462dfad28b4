package transport

import (
	"io"
	"net/http"
	"time"

	"github.com/ggmemo/ggmemo/internal/pagination"
	"github.com/gin-gonic/gin"
)

// requireSession rejects memo routes for sessions the caller does not own.
func (s *Server) requireSession(c *gin.Context) {
	if _, err := s.cfg.Sessions.Get(c.Request.Context(), GetUserID(c), c.Param("sessionId")); err != nil {
		fail(c, s.logger, err)
		return
	}
	c.Next()
}

// GET /api/v1/sessions/:sessionId/memos[?page=&perPage=]
func (s *Server) listMemos(c *gin.Context) {
	list, err := s.cfg.Memos.List(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	if page, perPage, ok := pageQuery(c); ok {
		respond(c, http.StatusOK, pagination.Paginate(list, perPage, page))
		return
	}
	respond(c, http.StatusOK, list)
}

// POST /api/v1/sessions/:sessionId/memos
func (s *Server) addMemo(c *gin.Context) {
	form, ok := bindMemo(c)
	if !ok {
		return
	}
	created, err := s.cfg.Memos.Add(c.Request.Context(), c.Param("sessionId"), form)
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusCreated, created)
}

// PUT /api/v1/sessions/:sessionId/memos/:memoId
func (s *Server) updateMemo(c *gin.Context) {
	form, ok := bindMemo(c)
	if !ok {
		return
	}
	if err := s.cfg.Memos.Update(c.Request.Context(), c.Param("sessionId"), c.Param("memoId"), form); err != nil {
		fail(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/v1/sessions/:sessionId/memos/:memoId
func (s *Server) removeMemo(c *gin.Context) {
	if err := s.cfg.Memos.Remove(c.Request.Context(), c.Param("sessionId"), c.Param("memoId")); err != nil {
		fail(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/v1/sessions/:sessionId/memos
func (s *Server) clearMemos(c *gin.Context) {
	if err := s.cfg.Memos.RemoveAll(c.Request.Context(), c.Param("sessionId")); err != nil {
		fail(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/sessions/:sessionId/memos/stream
//
// Server-sent events: a "memos" event with the full list on connect and after
// every change, plus "ping" heartbeats.
func (s *Server) streamMemos(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("sessionId")

	updates, err := s.cfg.Memos.Subscribe(ctx, sessionID)
	if err != nil {
		fail(c, s.logger, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(s.cfg.KeepAlive)
	defer heartbeat.Stop()

	s.logger.Debug("memo stream opened", "session_id", sessionID, "user_id", GetUserID(c))
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case list, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("memos", list)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
	s.logger.Debug("memo stream closed", "session_id", sessionID)
}
