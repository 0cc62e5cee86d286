// Package httpapi exposes the synthesis pipelines over HTTP: SSE streaming
// endpoints, a WebSocket transport with the same event semantics, and the
// small JSON introspection surface around them.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AlaeddineMessadi/supertonic/internal/bus"
	"github.com/AlaeddineMessadi/supertonic/internal/config"
	"github.com/AlaeddineMessadi/supertonic/internal/event"
	"github.com/AlaeddineMessadi/supertonic/internal/llm"
	"github.com/AlaeddineMessadi/supertonic/internal/session"
	"github.com/AlaeddineMessadi/supertonic/internal/stream"
	"github.com/AlaeddineMessadi/supertonic/internal/tts"
	"github.com/AlaeddineMessadi/supertonic/internal/turnlog"
)

type Server struct {
	cfg      config.Config
	orch     *stream.Orchestrator
	styles   *tts.StyleDir
	engine   tts.Engine
	chat     llm.Client
	sessions *session.Store
	turns    *turnlog.Store
	mirror   *bus.Client
	logger   *slog.Logger
}

// New assembles the API server. turns and mirror may be nil; the matching
// features simply stay off.
func New(cfg config.Config, orch *stream.Orchestrator, styles *tts.StyleDir, engine tts.Engine, chat llm.Client, sessions *session.Store, turns *turnlog.Store, mirror *bus.Client, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		orch:     orch,
		styles:   styles,
		engine:   engine,
		chat:     chat,
		sessions: sessions,
		turns:    turns,
		mirror:   mirror,
		logger:   logger,
	}
}

// Routes builds the request mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /stream", s.handleStream)
	mux.HandleFunc("POST /conversation", s.handleConversation)
	mux.HandleFunc("GET /conversation/{id}", s.handleGetConversation)
	mux.HandleFunc("DELETE /conversation/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /voices", s.handleVoices)
	mux.HandleFunc("GET /models", s.handleModels)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

type streamRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Steps int     `json:"steps"`
	Speed float64 `json:"speed"`
}

type conversationRequest struct {
	Message        string  `json:"message"`
	ConversationID string  `json:"conversationId"`
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	Steps          int     `json:"steps"`
	Speed          float64 `json:"speed"`
	SystemPrompt   string  `json:"systemPrompt"`
}

// synthesisParams resolves voice and tuning against configured defaults. The
// returned status is the HTTP code to fail with when err is non-nil.
func (s *Server) synthesisParams(voice string, steps int, speed float64) (stream.SynthesisParams, int, error) {
	if voice == "" {
		voice = s.cfg.TTS.DefaultVoice
	}
	style, err := s.styles.Load(voice)
	if err != nil {
		if errors.Is(err, tts.ErrStyleNotFound) {
			return stream.SynthesisParams{}, http.StatusBadRequest, err
		}
		return stream.SynthesisParams{}, http.StatusInternalServerError, err
	}
	if steps <= 0 {
		steps = s.cfg.TTS.DefaultSteps
	}
	if speed <= 0 {
		speed = s.cfg.TTS.DefaultSpeed
	}
	return stream.SynthesisParams{Style: style, Steps: steps, Speed: speed}, 0, nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(req.Text) > s.cfg.Stream.MaxTextLength {
		writeError(w, http.StatusRequestEntityTooLarge, "text exceeds maximum length")
		return
	}
	if !s.engine.Ready() {
		writeError(w, http.StatusServiceUnavailable, "synthesis engine not ready")
		return
	}
	params, status, err := s.synthesisParams(req.Voice, req.Steps, req.Speed)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	sink, err := event.NewSSESink(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.orch.StreamText(r.Context(), req.Text, params, s.mirror.MirrorSink(sink, uuid.NewString())); err != nil {
		// Headers are long gone; nothing to report but the log.
		s.logger.Debug("stream aborted", slog.String("error", err.Error()))
	}
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.Message) > s.cfg.Stream.MaxTextLength {
		writeError(w, http.StatusRequestEntityTooLarge, "message exceeds maximum length")
		return
	}
	if !s.engine.Ready() {
		writeError(w, http.StatusServiceUnavailable, "synthesis engine not ready")
		return
	}
	params, status, err := s.synthesisParams(req.Voice, req.Steps, req.Speed)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	sink, err := event.NewSSESink(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	convReq := stream.ConversationRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Model:          req.Model,
		SystemPrompt:   req.SystemPrompt,
		Params:         params,
	}
	if err := s.orch.Conversation(r.Context(), convReq, s.mirror.MirrorSink(sink, req.ConversationID)); err != nil {
		s.logger.Debug("conversation aborted",
			slog.String("conversation", req.ConversationID),
			slog.String("error", err.Error()))
	}
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	messages := s.sessions.Get(id)
	if messages == nil {
		// Unknown ids read as an empty history, not an error.
		messages = []llm.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": id,
		"messages":       messages,
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.sessions.Delete(id)
	if s.turns != nil {
		if err := s.turns.DeleteConversation(r.Context(), id); err != nil {
			s.logger.Warn("turn log delete failed", slog.String("conversation", id), slog.String("error", err.Error()))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.styles.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"voices":  voices,
		"default": s.cfg.TTS.DefaultVoice,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.chat.Models(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "chat backend unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  models,
		"default": s.cfg.LLM.DefaultModel,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"engineReady":         s.engine.Ready(),
		"chatReachable":       s.chat.Ping(ctx) == nil,
		"activeConversations": s.sessions.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
