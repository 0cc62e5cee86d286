package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AlaeddineMessadi/supertonic/internal/event"
	"github.com/AlaeddineMessadi/supertonic/internal/stream"
)

// The daemon binds to localhost-class deployments; cross-origin browser
// clients are expected, so the upgrader accepts any origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsRequest is one client command on the socket. The type field selects
// between one-shot synthesis and a conversation turn; the remaining fields
// mirror the corresponding HTTP bodies.
type wsRequest struct {
	Type           string  `json:"type"` // synthesize | conversation
	Text           string  `json:"text"`
	Message        string  `json:"message"`
	ConversationID string  `json:"conversationId"`
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	Steps          int     `json:"steps"`
	Speed          float64 `json:"speed"`
	SystemPrompt   string  `json:"systemPrompt"`
}

// handleWS serves the WebSocket transport. Events are the same tagged JSON
// objects the SSE endpoints emit, one per text frame. Requests on a single
// connection run sequentially; validation failures become error events rather
// than HTTP statuses since the upgrade already happened.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	sink := event.NewWSSink(conn)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if sink.Send(event.Error("invalid request: not a JSON object")) != nil {
				return
			}
			continue
		}

		switch req.Type {
		case "synthesize":
			s.wsSynthesize(r, req, sink)
		case "conversation":
			s.wsConversation(r, req, sink)
		default:
			if sink.Send(event.Error("unknown request type: "+req.Type)) != nil {
				return
			}
		}
	}
}

func (s *Server) wsSynthesize(r *http.Request, req wsRequest, sink event.Sink) {
	if strings.TrimSpace(req.Text) == "" {
		_ = sink.Send(event.Error("text is required"))
		return
	}
	if len(req.Text) > s.cfg.Stream.MaxTextLength {
		_ = sink.Send(event.Error("text exceeds maximum length"))
		return
	}
	if !s.engine.Ready() {
		_ = sink.Send(event.Error("synthesis engine not ready"))
		return
	}
	params, _, err := s.synthesisParams(req.Voice, req.Steps, req.Speed)
	if err != nil {
		_ = sink.Send(event.Error(err.Error()))
		return
	}
	if err := s.orch.StreamText(r.Context(), req.Text, params, sink); err != nil {
		s.logger.Debug("websocket stream aborted", slog.String("error", err.Error()))
	}
}

func (s *Server) wsConversation(r *http.Request, req wsRequest, sink event.Sink) {
	if strings.TrimSpace(req.Message) == "" {
		_ = sink.Send(event.Error("message is required"))
		return
	}
	if len(req.Message) > s.cfg.Stream.MaxTextLength {
		_ = sink.Send(event.Error("message exceeds maximum length"))
		return
	}
	if !s.engine.Ready() {
		_ = sink.Send(event.Error("synthesis engine not ready"))
		return
	}
	params, _, err := s.synthesisParams(req.Voice, req.Steps, req.Speed)
	if err != nil {
		_ = sink.Send(event.Error(err.Error()))
		return
	}
	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
	}
	convReq := stream.ConversationRequest{
		ConversationID: id,
		Message:        req.Message,
		Model:          req.Model,
		SystemPrompt:   req.SystemPrompt,
		Params:         params,
	}
	if err := s.orch.Conversation(r.Context(), convReq, s.mirror.MirrorSink(sink, id)); err != nil {
		s.logger.Debug("websocket conversation aborted",
			slog.String("conversation", id),
			slog.String("error", err.Error()))
	}
}
