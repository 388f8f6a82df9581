package webchat

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"lifeadmin/pkg/agent"
	"lifeadmin/pkg/store"
)

// wsInbound is a chat message from the browser.
type wsInbound struct {
	Message string `json:"message"`
}

// wsOutbound is an event pushed to the browser.
type wsOutbound struct {
	Event     string `json:"event"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
	ToolCalls int    `json:"tool_calls,omitempty"`
}

// handleWebSocket upgrades the connection and runs the chat loop. The
// session token is passed via the Authorization header or ?token= since
// browsers cannot set headers on WebSocket upgrades.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	user, err := s.store.ValidateSession(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid or expired session", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	s.logger.Info().
		Str("username", user.Username).
		Str("ip", r.RemoteAddr).
		Msg("websocket client connected")

	go s.chatLoop(conn, user)
}

// chatLoop reads chat messages and streams back agent responses until
// the client disconnects.
func (s *Server) chatLoop(conn *websocket.Conn, user store.User) {
	defer func() {
		conn.Close()
		s.logger.Info().Str("username", user.Username).Msg("websocket client disconnected")
	}()

	if err := conn.WriteJSON(wsOutbound{Event: "ready"}); err != nil {
		return
	}

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error().Err(err).Str("username", user.Username).Msg("websocket read error")
			}
			return
		}
		if in.Message == "" {
			if err := conn.WriteJSON(wsOutbound{Event: "error", Error: "message cannot be empty"}); err != nil {
				return
			}
			continue
		}

		s.inFlightReqs.Add(1)
		result, err := s.runner.Run(context.Background(), agent.RunParams{
			Prompt:     in.Message,
			SessionKey: sessionKeyFor(user),
			Config:     s.config,
		})
		s.inFlightReqs.Done()
		if err != nil {
			s.logger.Error().Err(err).Str("username", user.Username).Msg("chat run failed")
			if err := conn.WriteJSON(wsOutbound{Event: "error", Error: "assistant is unavailable, try again shortly"}); err != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(wsOutbound{
			Event:     "response",
			Response:  result.Response,
			ToolCalls: len(result.ToolCalls),
		}); err != nil {
			return
		}
	}
}
