package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-intake-bot/internal/domain"
)

// ListLeadsResponse wraps a page of leads and pagination information.
type ListLeadsResponse struct {
	Leads      []domain.Lead `json:"leads"`
	Pagination Pagination    `json:"pagination"`
}

// ListLeads godoc
// @ID          listLeads
// @Summary     List captured leads (paginated)
// @Description Returns a page of leads, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Leads
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"leads:3:1712345678\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page (non-positive uses the default)"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListLeadsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads [get]
func (h *Handlers) ListLeads(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.leads.Stats(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"leads:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.leads.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListLeadsResponse{
		Leads:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}
