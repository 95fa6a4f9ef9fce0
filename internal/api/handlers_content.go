package api

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"studio/server/internal/model"
	"studio/server/internal/store"

	"github.com/gin-gonic/gin"
)

func (s *Server) imageSuggestion(c *gin.Context) {
	writeData(c, http.StatusOK, s.suggestions.Current())
}

func (s *Server) listContent(c *gin.Context) {
	typ := c.Query("type")
	switch typ {
	case "", "all", string(model.VariantImage), string(model.VariantVideo), string(model.VariantText):
	default:
		writeError(c, http.StatusBadRequest, "INVALID_FILTER", "Unknown content type filter", false, map[string]any{
			"type": typ,
		})
		return
	}
	sess := sessionFromContext(c)
	items := slices.Collect(sess.Content.Query(store.Filter{
		Text: c.Query("q"),
		Type: model.Variant(typ),
	}))
	if items == nil {
		items = []model.ContentItem{}
	}
	writeData(c, http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

func (s *Server) contentStats(c *gin.Context) {
	writeData(c, http.StatusOK, sessionFromContext(c).Counters())
}

func contentIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("content_id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "INVALID_CONTENT_ID", "content_id must be a positive integer", false, nil)
		return 0, false
	}
	return id, true
}

func (s *Server) getContent(c *gin.Context) {
	id, ok := contentIDParam(c)
	if !ok {
		return
	}
	item, err := sessionFromContext(c).Content.Get(id)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, item)
}

func (s *Server) downloadContent(c *gin.Context) {
	id, ok := contentIDParam(c)
	if !ok {
		return
	}
	item, err := sessionFromContext(c).Content.Get(id)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	att, err := s.exporter.Open(c.Request.Context(), item)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	defer att.Close()
	c.DataFromReader(http.StatusOK, att.Size, att.ContentType, att.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", att.Filename),
	})
}
