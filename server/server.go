// Package server exposes the chat endpoint. Each request is fully
// self-contained: the client ships the whole conversation log and receives
// the reply as a server-sent event stream.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	contractx "github.com/prepforge/interview-agent/agent/contract"
	"github.com/prepforge/interview-agent/agent/history"
	"github.com/prepforge/interview-agent/agent/stream"
)

type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	AllowOrigins    []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Runner is the orchestrator surface the server depends on.
type Runner interface {
	Run(ctx context.Context, req contractx.ChatRequest, sink contractx.EventSink) (string, []contractx.Turn, error)
}

type Server struct {
	cfg    Config
	runner Runner
	http   *http.Server
}

func New(cfg Config, runner Runner) (*Server, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}

	s := &Server{cfg: cfg, runner: runner}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/chat", s.handleChat)

	s.http = &http.Server{Addr: cfg.Addr, Handler: router}
	return s, nil
}

// Run blocks serving requests until ctx is canceled, then drains within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("chat server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

type chatPayload struct {
	UserEmail      string          `json:"user_email"`
	Message        string          `json:"message"`
	ResumeBytesB64 string          `json:"resume_bytes_b64"`
	ChatHistory    json.RawMessage `json:"chat_history"`
}

// handleChat decodes the request, validates and windows the shipped history,
// then streams the run. Once streaming starts the HTTP status is committed,
// so later failures are reported as a terminal error event on the stream.
func (s *Server) handleChat(c *gin.Context) {
	var payload chatPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(payload.UserEmail) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_email is required"})
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	var attachment []byte
	if payload.ResumeBytesB64 != "" {
		raw, err := base64.StdEncoding.DecodeString(payload.ResumeBytesB64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resume_bytes_b64 is not valid base64"})
			return
		}
		attachment = raw
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	emitter := stream.NewEmitter(c.Writer)

	turns, err := history.Parse(payload.ChatHistory)
	if err != nil {
		log.Warn().Err(err).Str("user", payload.UserEmail).Msg("rejected malformed history")
		_ = emitter.Emit(contractx.Event{
			Type:    contractx.EventError,
			Message: fmt.Sprintf("conversation history rejected: %v", err),
		})
		return
	}
	windowed := history.Window(turns, history.MaxTurns)

	req := contractx.ChatRequest{
		UserEmail:  payload.UserEmail,
		Message:    payload.Message,
		Attachment: attachment,
		History:    windowed,
	}

	log.Info().
		Str("user", payload.UserEmail).
		Int("history_turns", len(windowed)).
		Bool("attachment", len(attachment) > 0).
		Msg("chat request")

	if _, _, err := s.runner.Run(c.Request.Context(), req, emitter); err != nil {
		log.Error().Err(err).Str("user", payload.UserEmail).Msg("chat run failed")
		_ = emitter.Emit(contractx.Event{
			Type:    contractx.EventError,
			Message: "request failed: " + err.Error(),
		})
	}
}
