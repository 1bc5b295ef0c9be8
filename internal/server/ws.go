package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSMessage is one websocket frame in either direction.
type WSMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// handleWebSocket serves a chat session: each {type:"message"} frame is
// submitted as the connection's user and answered with a {type:"reply"}.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	userID := orDefault(r.URL.Query().Get("user_id"), defaultChatUser)
	log := s.log.With().Str("session", uuid.NewString()).Str("user", userID).Logger()
	log.Debug().Msg("websocket session opened")

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("websocket read")
			}
			return
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Content) == "" {
			continue
		}

		out := WSMessage{Type: "reply"}
		reply, err := s.engine.SubmitMessage(userID, msg.Content)
		if err != nil {
			out = WSMessage{Type: "error", Content: err.Error()}
		} else {
			out.Content = reply
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Debug().Err(err).Msg("websocket write")
			return
		}
	}
}
