package transport

import (
	"net/http"
	"strconv"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/gin-gonic/gin"
)

// memoRequest is the body for creating or replacing a memo.
type memoRequest struct {
	Title  string      `json:"title"`
	Result memo.Result `json:"result"`
	Rating int         `json:"rating"`
	Memo   string      `json:"memo"`
}

func (r memoRequest) form() memo.FormData {
	return memo.FormData{Title: r.Title, Result: r.Result, Rating: r.Rating, Memo: r.Memo}
}

func bindMemo(c *gin.Context) (memo.FormData, bool) {
	var req memoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, apperr.CodeInvalidInput, "Invalid request body")
		return memo.FormData{}, false
	}
	return req.form(), true
}

// pageQuery reads ?page= and ?perPage=. ok is false when no page was asked for.
func pageQuery(c *gin.Context) (page, perPage int, ok bool) {
	raw, ok := c.GetQuery("page")
	if !ok {
		return 0, 0, false
	}
	page, _ = strconv.Atoi(raw)
	perPage, _ = strconv.Atoi(c.Query("perPage"))
	return page, perPage, true
}

func (s *Server) quickMemos(c *gin.Context) QuickMemoService {
	return s.cfg.QuickMemos(GetDeviceID(c))
}

// GET /api/v1/quick-memos[?page=&perPage=]
func (s *Server) listQuickMemos(c *gin.Context) {
	svc := s.quickMemos(c)
	if page, perPage, ok := pageQuery(c); ok {
		p, err := svc.Page(c.Request.Context(), page, perPage)
		if err != nil {
			fail(c, s.logger, err)
			return
		}
		respond(c, http.StatusOK, p)
		return
	}

	list, err := svc.List(c.Request.Context())
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusOK, list)
}

// POST /api/v1/quick-memos
func (s *Server) addQuickMemo(c *gin.Context) {
	form, ok := bindMemo(c)
	if !ok {
		return
	}
	created, err := s.quickMemos(c).Add(c.Request.Context(), form)
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusCreated, created)
}

// PUT /api/v1/quick-memos/:memoId
func (s *Server) updateQuickMemo(c *gin.Context) {
	form, ok := bindMemo(c)
	if !ok {
		return
	}
	updated, err := s.quickMemos(c).Update(c.Request.Context(), c.Param("memoId"), form)
	if err != nil {
		fail(c, s.logger, err)
		return
	}
	respond(c, http.StatusOK, updated)
}

// DELETE /api/v1/quick-memos/:memoId
func (s *Server) removeQuickMemo(c *gin.Context) {
	if err := s.quickMemos(c).Remove(c.Request.Context(), c.Param("memoId")); err != nil {
		fail(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/v1/quick-memos
func (s *Server) clearQuickMemos(c *gin.Context) {
	if err := s.quickMemos(c).RemoveAll(c.Request.Context()); err != nil {
		fail(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
