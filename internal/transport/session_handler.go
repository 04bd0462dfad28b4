package transport

import (
	"net/http"
	"strconv"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/gin-gonic/gin"
)

type createSessionRequest struct {
	Title string `json:"title"`
}

type updateSessionRequest struct {
	Title *string `json:"title"`
}

// GET /api/v1/sessions
func (s *Server) listSessions(c *gin.Context) {
	list, err := s.cfg.Sessions.List(c.Request.Context(), GetUserID(c))
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusOK, list)
}

// POST /api/v1/sessions
func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, apperr.CodeInvalidInput, "Invalid request body")
		return
	}
	sess, err := s.cfg.Sessions.Create(c.Request.Context(), session.CreateRequest{
		UserID: GetUserID(c),
		Title:  req.Title,
	})
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusCreated, sess)
}

// GET /api/v1/sessions/:sessionId
func (s *Server) getSession(c *gin.Context) {
	sess, err := s.cfg.Sessions.Get(c.Request.Context(), GetUserID(c), c.Param("sessionId"))
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusOK, sess)
}

// PATCH /api/v1/sessions/:sessionId
func (s *Server) updateSession(c *gin.Context) {
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, apperr.CodeInvalidInput, "Invalid request body")
		return
	}
	sess, err := s.cfg.Sessions.Update(c.Request.Context(), GetUserID(c), c.Param("sessionId"), session.Patch{Title: req.Title})
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusOK, sess)
}

// DELETE /api/v1/sessions/:sessionId
func (s *Server) deleteSession(c *gin.Context) {
	if err := s.cfg.Sessions.Delete(c.Request.Context(), GetUserID(c), c.Param("sessionId")); err != nil {
		fail(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/v1/sessions
func (s *Server) deleteAllSessions(c *gin.Context) {
	if err := s.cfg.Sessions.DeleteAll(c.Request.Context(), GetUserID(c)); err != nil {
		fail(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/sessions/:sessionId/stats
func (s *Server) sessionStats(c *gin.Context) {
	st, err := s.cfg.Sessions.Stats(c.Request.Context(), GetUserID(c), c.Param("sessionId"))
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusOK, st)
}

// GET /api/v1/sessions/:sessionId/export[?hideRating=true]
func (s *Server) exportSession(c *gin.Context) {
	hideRating, _ := strconv.ParseBool(c.Query("hideRating"))
	md, err := s.cfg.Sessions.Export(c.Request.Context(), GetUserID(c), c.Param("sessionId"), hideRating)
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="battle-session.md"`)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}
