package api

import (
	"errors"
	"net/http"
	"time"

	"studio/server/internal/auth"
	"studio/server/internal/model"
	"studio/server/internal/store"
	"studio/server/internal/studio"
	"studio/server/internal/view"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type userView struct {
	ID     string         `json:"id"`
	Email  string         `json:"email"`
	Role   model.UserRole `json:"role"`
	Status string         `json:"status,omitempty"`
}

// studioView is the part of the caller's studio a client needs to restore
// its screen after login or reload.
type studioView struct {
	SessionID string          `json:"session_id"`
	CreatedAt time.Time       `json:"created_at"`
	ActiveTab view.Tab        `json:"active_tab"`
	Counters  studio.Counters `json:"counters"`
}

func viewStudio(sess *studio.Session) studioView {
	return studioView{
		SessionID: sess.ID,
		CreatedAt: sess.CreatedAt,
		ActiveTab: sess.View.Active(),
		Counters:  sess.Counters(),
	}
}

func tokenPayload(tokens auth.Tokens) gin.H {
	return gin.H{
		"access_token":   tokens.AccessToken,
		"refresh_token":  tokens.RefreshToken,
		"expires_in_sec": tokens.ExpiresInSec,
	}
}

// login issues tokens and opens (or resumes) the caller's studio so the
// first screen can render without a second round trip.
func (s *Server) login(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid login payload", false, nil)
		return
	}
	user, tokens, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.log.Info("login_rejected", "trace_id", traceIDFromContext(c))
		writeError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", false, nil)
		return
	}
	sess, err := s.sessions.ForUser(user.ID)
	if err != nil {
		s.log.Error("studio_session_failed", "user_id", user.ID, "trace_id", traceIDFromContext(c), "error", err)
		writeError(c, http.StatusInternalServerError, "SESSION_UNAVAILABLE", "Failed to open studio session", true, nil)
		return
	}
	s.log.Info("user_login", "user_id", user.ID, "session_id", sess.ID, "trace_id", traceIDFromContext(c))

	resp := tokenPayload(tokens)
	resp["user"] = userView{ID: user.ID, Email: user.Email, Role: user.Role}
	resp["studio"] = viewStudio(sess)
	writeData(c, http.StatusOK, resp)
}

func (s *Server) refresh(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "refresh_token is required", false, nil)
		return
	}
	tokens, err := s.auth.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			writeError(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Refresh token expired", false, nil)
			return
		}
		writeUnauthorized(c)
		return
	}
	writeData(c, http.StatusOK, tokenPayload(tokens))
}

// logout revokes the refresh token only. The studio outlives it so credits
// and gallery are still there on the next login.
func (s *Server) logout(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "refresh_token is required", false, nil)
		return
	}
	if err := s.auth.Logout(req.RefreshToken); err != nil {
		writeUnauthorized(c)
		return
	}
	s.log.Info("user_logout", "user_id", userIDFromContext(c), "trace_id", traceIDFromContext(c))
	writeData(c, http.StatusOK, gin.H{"ok": true})
}

func (s *Server) me(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == "" {
		writeUnauthorized(c)
		return
	}
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeUnauthorized(c)
			return
		}
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user", false, nil)
		return
	}
	sess, err := s.sessions.ForUser(user.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "SESSION_UNAVAILABLE", "Failed to open studio session", true, nil)
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"user":   userView{ID: user.ID, Email: user.Email, Role: user.Role, Status: user.Status},
		"studio": viewStudio(sess),
	})
}
