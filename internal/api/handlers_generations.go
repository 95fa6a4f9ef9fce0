package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"studio/server/internal/generation"
	"studio/server/internal/model"
	"studio/server/internal/textgen"

	"github.com/gin-gonic/gin"
)

const (
	generationWaitLimit = 2 * time.Minute
	defaultTone         = "casual"
)

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type textRequest struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
	Tone     string `json:"tone"`
}

func (s *Server) listGenerators(c *gin.Context) {
	sess := sessionFromContext(c)
	writeData(c, http.StatusOK, gin.H{
		"generators":   sess.Controls.Snapshot(),
		"credit_costs": creditCosts(),
		"balance":      sess.Ledger.Balance(),
	})
}

func (s *Server) generateImage(c *gin.Context) {
	s.generateMedia(c, model.VariantImage)
}

func (s *Server) generateVideo(c *gin.Context) {
	s.generateMedia(c, model.VariantVideo)
}

func (s *Server) generateMedia(c *gin.Context, v model.Variant) {
	if !requireJSON(c) {
		return
	}
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid generation request", false, nil)
		return
	}
	s.submit(c, generation.Input{Variant: v, Prompt: req.Prompt})
}

func (s *Server) generateText(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid generation request", false, nil)
		return
	}
	platform := strings.TrimSpace(req.Platform)
	if platform == "" {
		platform = textgen.DefaultPlatform
	}
	tone := strings.TrimSpace(req.Tone)
	if tone == "" {
		tone = defaultTone
	}
	s.submit(c, generation.Input{
		Variant: model.VariantText,
		Text:    textgen.Request{Topic: req.Topic, Platform: platform, Tone: tone},
	})
}

// submit starts the request and answers 202 with the in-flight record, or
// with the final record when the caller asked to wait.
func (s *Server) submit(c *gin.Context, in generation.Input) {
	sess := sessionFromContext(c)
	in.TraceID = traceIDFromContext(c)
	req, err := s.generations.Submit(c.Request.Context(), sess.Target(in.Variant), in)
	if err != nil {
		s.writeSubmitError(c, in.Variant, sess.Ledger.Balance(), err)
		return
	}
	if !wantsWait(c) {
		writeData(c, http.StatusAccepted, req)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), generationWaitLimit)
	defer cancel()
	final, err := s.generations.Wait(ctx, sess.ID, req.ID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeData(c, http.StatusAccepted, req)
			return
		}
		s.writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, final)
}

func (s *Server) getGeneration(c *gin.Context) {
	sess := sessionFromContext(c)
	req, err := s.generations.Get(sess.ID, c.Param("request_id"))
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, req)
}
