package api

import (
	"net/http"

	"studio/server/internal/studio"
	"studio/server/internal/view"

	"github.com/gin-gonic/gin"
)

func (s *Server) getView(c *gin.Context) {
	sess := sessionFromContext(c)
	writeData(c, http.StatusOK, gin.H{
		"active_tab": sess.View.Active(),
		"tabs":       tabList(),
	})
}

type viewRequest struct {
	Tab string `json:"tab" binding:"required"`
}

func (s *Server) putView(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req viewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "tab is required", false, nil)
		return
	}
	sess := sessionFromContext(c)
	tab, err := sess.SelectTab(view.Tab(req.Tab))
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"active_tab": tab})
}

func (s *Server) dashboard(c *gin.Context) {
	writeData(c, http.StatusOK, sessionFromContext(c).Dashboard())
}

func (s *Server) getWebhooks(c *gin.Context) {
	writeData(c, http.StatusOK, sessionFromContext(c).Webhooks())
}

func (s *Server) putWebhooks(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req studio.WebhookSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid webhook settings", false, nil)
		return
	}
	writeData(c, http.StatusOK, sessionFromContext(c).SetWebhooks(req))
}
