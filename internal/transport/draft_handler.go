package transport

import (
	"net/http"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/gin-gonic/gin"
)

type draftRequest struct {
	Content string `json:"content"`
}

type draftResponse struct {
	Content string `json:"content"`
	// Restored is true on the first restore of this owner's draft since
	// the server started.
	Restored bool `json:"restored"`
}

// draftOwner keys drafts by user, or by device for anonymous callers.
func draftOwner(c *gin.Context) string {
	if userID := GetUserID(c); userID != "" {
		return "user:" + userID
	}
	return "device:" + GetDeviceID(c)
}

// GET /api/v1/draft
func (s *Server) getDraft(c *gin.Context) {
	content, restored, err := s.cfg.Drafts.Restore(c.Request.Context(), draftOwner(c))
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusOK, draftResponse{Content: content, Restored: restored})
}

// PUT /api/v1/draft
//
// Schedules a debounced save and reports whether the draft is over the limit.
// Over-limit drafts are not saved.
func (s *Server) putDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, apperr.CodeInvalidInput, "Invalid request body")
		return
	}
	status := s.cfg.Drafts.For(draftOwner(c)).OnUpdate(req.Content)
	respond(c, http.StatusAccepted, status)
}

// POST /api/v1/draft/flush
func (s *Server) flushDraft(c *gin.Context) {
	coord := s.cfg.Drafts.For(draftOwner(c))
	if err := coord.Flush(c.Request.Context()); err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusOK, coord.Status())
}
