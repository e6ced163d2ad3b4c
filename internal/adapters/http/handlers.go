package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/misba/aimock/internal/auth"
	"github.com/misba/aimock/internal/domain"
)

type CreateRoomRequest struct {
	Name         string `json:"name" binding:"required"`
	Participants int    `json:"participants" binding:"required,min=1"`
	Difficulty   string `json:"difficulty" binding:"required"`
}

type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid create-room request"})
		return
	}

	id, err := s.reg.CreateRoom(req.Name, req.Participants, req.Difficulty)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, CreateRoomResponse{RoomID: string(id)})
}

func (s *Server) handleListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": s.reg.List()})
}

type FeedbackRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Transcript) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transcript cannot be empty"})
		return
	}
	if s.feedback == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feedback model not configured"})
		return
	}

	fb, err := s.feedback.GenerateFeedback(c.Request.Context(), req.Transcript)
	if err != nil {
		log.Error().Err(err).Str("module", "http").Msg("feedback generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate feedback"})
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (s *Server) handleStreamingToken(c *gin.Context) {
	if s.cfg.AssemblyAIKey == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transcription api key not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":     fmt.Sprintf("%s?sample_rate=%d&model=universal-microphone", s.cfg.AssemblyAIURL, s.cfg.SampleRate),
		"api_key": s.cfg.AssemblyAIKey,
	})
}

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStreamingWS upgrades the client and hands the socket to the bridge,
// which owns it from here on.
func (s *Server) handleStreamingWS(ctx context.Context, c *gin.Context) {
	sampleRate, err := strconv.Atoi(c.DefaultQuery("sample_rate", strconv.Itoa(s.cfg.SampleRate)))
	if err != nil || sampleRate <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sample_rate"})
		return
	}
	token := c.Query("token")

	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "http").Msg("streaming ws upgrade")
		return
	}
	s.bridge.Run(ctx, conn, token, sampleRate)
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials payload"})
		return
	}

	token, err := s.auth.Signup(req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrEmailEmpty),
		errors.Is(err, domain.ErrEmailTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Str("module", "http").Msg("signup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials payload"})
		return
	}

	token, err := s.auth.Login(req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case err != nil:
		log.Error().Err(err).Str("module", "http").Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func (s *Server) handleMe(c *gin.Context) {
	claims := c.MustGet("claims").(*auth.Claims)
	user, err := s.auth.User(claims)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
