package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/internal/auth"
	"github.com/leviathanch/Google-Companion/internal/monitor"
	"github.com/leviathanch/Google-Companion/usecase"
)

// TranscriptHistory serves past conversation turns. Nil when persistence
// is disabled.
type TranscriptHistory interface {
	Recent(ctx context.Context, limit int64) ([]entities.TranscriptMessage, error)
}

// Credentials is the single monitor login accepted by the auth endpoint.
type Credentials struct {
	Username string
	Password string
}

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	svc *usecase.CompanionService,
	history TranscriptHistory,
	hub *monitor.Hub,
	issuer *auth.Issuer,
	creds Credentials,
	logger *zap.Logger,
) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "companion",
		})
	})

	v1 := e.Group("/api/v1")

	v1.POST("/auth/login", func(c echo.Context) error {
		return login(c, issuer, creds, logger)
	})

	authed := v1.Group("", requireToken(issuer, logger))

	authed.POST("/session/connect", func(c echo.Context) error {
		if err := svc.Connect(c.Request().Context()); err != nil {
			if errors.Is(err, entities.ErrSessionClosed) {
				return c.JSON(http.StatusConflict, ErrorResponse{
					Error:   "session_closed",
					Message: "Connect was cancelled by a concurrent disconnect",
				})
			}
			logger.Error("Session connect failed", zap.Error(err))
			return c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "connect_failed",
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusOK, StateResponse{State: string(svc.State())})
	})

	authed.POST("/session/disconnect", func(c echo.Context) error {
		if err := svc.Disconnect(); err != nil {
			logger.Error("Session disconnect failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "disconnect_failed",
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusOK, StateResponse{State: string(svc.State())})
	})

	authed.GET("/session/state", func(c echo.Context) error {
		resp := StateResponse{State: string(svc.State())}
		if err := svc.Controller().Err(); err != nil {
			resp.Error = err.Error()
		}
		return c.JSON(http.StatusOK, resp)
	})

	authed.POST("/session/text", func(c echo.Context) error {
		var req SendTextRequest
		if err := c.Bind(&req); err != nil || req.Text == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Text is required",
			})
		}
		if err := svc.SendText(req.Text); err != nil {
			if errors.Is(err, entities.ErrNotConnected) {
				return c.JSON(http.StatusConflict, ErrorResponse{
					Error:   "not_connected",
					Message: "No live session",
				})
			}
			logger.Error("Send text failed", zap.Error(err))
			return c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "send_failed",
				Message: err.Error(),
			})
		}
		return c.NoContent(http.StatusAccepted)
	})

	authed.GET("/transcripts", func(c echo.Context) error {
		if history == nil {
			return c.JSON(http.StatusOK, []entities.TranscriptMessage{})
		}
		limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
		messages, err := history.Recent(c.Request().Context(), limit)
		if err != nil {
			logger.Error("Transcript query failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "query_failed",
				Message: "Failed to load transcripts",
			})
		}
		return c.JSON(http.StatusOK, messages)
	})

	authed.GET("/logs", func(c echo.Context) error {
		return c.JSON(http.StatusOK, svc.Logs())
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, issuer, logger)
	})
}

func login(c echo.Context, issuer *auth.Issuer, creds Credentials, logger *zap.Logger) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Username and password are required",
		})
	}
	if req.Username != creds.Username || req.Password != creds.Password {
		logger.Warn("Login failed", zap.String("username", req.Username))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid credentials",
		})
	}

	token, err := issuer.GenerateUserToken(req.Username)
	if err != nil {
		logger.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	})
}

// requireToken guards the session and transcript endpoints.
func requireToken(issuer *auth.Issuer, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "JWT token is required in Authorization header",
				})
			}
			claims, err := issuer.ValidateToken(token)
			if err != nil {
				logger.Warn("Request rejected: invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired JWT token",
				})
			}
			c.Set("user_id", claims.UserID)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}

// websocketWithAuth handles monitor WebSocket connections with JWT
// authentication. Browsers cannot set headers on websocket upgrades, so
// the token is also accepted as a query parameter.
func websocketWithAuth(hub *monitor.Hub, c echo.Context, issuer *auth.Issuer, logger *zap.Logger) error {
	token := bearerToken(c)
	if token == "" {
		token = c.QueryParam("token")
	}
	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := issuer.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	logger.Info("Monitor websocket authenticated", zap.String("user_id", claims.UserID))
	return monitor.HandleWebSocket(hub, c, logger)
}
