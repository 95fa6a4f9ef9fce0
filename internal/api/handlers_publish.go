package api

import (
	"net/http"

	"studio/server/internal/model"
	"studio/server/internal/publish"

	"github.com/gin-gonic/gin"
)

type publishRequest struct {
	ContentID    int64    `json:"content_id"`
	Platforms    []string `json:"platforms"`
	ScheduleTime string   `json:"schedule_time"`
}

func (s *Server) publishPlatforms(c *gin.Context) {
	writeData(c, http.StatusOK, gin.H{"platforms": publish.Platforms})
}

func (s *Server) publishContent(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid publish request", false, nil)
		return
	}
	sess := sessionFromContext(c)
	res, err := s.publisher.Publish(c.Request.Context(), sess.Content, publish.Request{
		ContentID:    req.ContentID,
		Platforms:    req.Platforms,
		ScheduleTime: req.ScheduleTime,
		WebhookURL:   sess.Webhooks().Publish,
	})
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	s.hub.Emit(sess.ID, model.EventPublishCompleted, map[string]any{
		"content_id": res.Content.ID,
		"platforms":  res.Platforms,
		"scheduled":  res.Scheduled,
		"delivery":   res.Delivery.Outcome,
	})
	writeData(c, http.StatusOK, res)
}
