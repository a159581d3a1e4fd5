// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kraklabs/parseltongue/internal/broadcast"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
)

// writeWait bounds how long a single Event write may take before the
// connection is considered stalled and torn down.
const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientMessage is the action-discriminated envelope a subscriber sends.
type clientMessage struct {
	Action      string `json:"action"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

// handleWebSocket upgrades the connection and runs the subscribe/unsubscribe/
// ping protocol until the client disconnects or the connection goes idle.
func (s *wsServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.app.logger.Warn("ws.upgrade_failed", "error", err)
		return
	}
	defer conn.Close()

	var sub *broadcast.Subscriber
	defer func() {
		if sub != nil {
			_ = s.app.hub.Unsubscribe(sub)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(broadcast.IdleTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(broadcast.IdleTimeout))
		return nil
	})

	// The reader goroutine only decodes frames and hands them to the main
	// loop below; every write to conn happens from a single goroutine so
	// subscription state and outbound frames never race.
	msgs := make(chan clientMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if msgType != websocket.TextMessage {
				msgs <- clientMessage{Action: "__invalid_frame__"}
				continue
			}
			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				msgs <- clientMessage{Action: "__invalid_json__"}
				continue
			}
			msgs <- msg
		}
	}()

	for {
		var events <-chan broadcast.Event
		if sub != nil {
			events = sub.Events()
		}

		select {
		case err := <-readErr:
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.writeEvent(conn, broadcast.Event{Type: broadcast.EventErrorOccurred, Timestamp: time.Now().UTC(),
					Code: string(parserrors.CodeConnectionTimeout), Message: "no client activity within the idle timeout"})
			}
			return

		case msg := <-msgs:
			conn.SetReadDeadline(time.Now().Add(broadcast.IdleTimeout))
			switch msg.Action {
			case "__invalid_frame__":
				if !s.writeEvent(conn, broadcast.Event{Type: broadcast.EventErrorOccurred, Timestamp: time.Now().UTC(),
					Code: string(parserrors.CodeInvalidMessageType), Message: "only text frames carrying JSON are accepted"}) {
					return
				}
			case "__invalid_json__":
				if !s.writeEvent(conn, broadcast.Event{Type: broadcast.EventErrorOccurred, Timestamp: time.Now().UTC(),
					Code: string(parserrors.CodeInvalidJSONMessage), Message: "malformed JSON message"}) {
					return
				}
			case "subscribe":
				if sub != nil {
					if !s.writeEvent(conn, broadcast.Event{Type: broadcast.EventErrorOccurred, Timestamp: time.Now().UTC(),
						Code: string(parserrors.CodeAlreadySubscribed), Message: "connection is already subscribed"}) {
						return
					}
					continue
				}
				newSub, err := s.app.hub.Subscribe(msg.WorkspaceID)
				if err != nil {
					if !s.writeEvent(conn, errEvent(err)) {
						return
					}
					continue
				}
				sub = newSub
			case "unsubscribe":
				if sub == nil {
					if !s.writeEvent(conn, broadcast.Event{Type: broadcast.EventErrorOccurred, Timestamp: time.Now().UTC(),
						Code: string(parserrors.CodeNotSubscribed), Message: "connection has no active subscription"}) {
						return
					}
					continue
				}
				_ = s.app.hub.Unsubscribe(sub)
				sub = nil
			case "ping":
				if sub == nil {
					if !s.writeEvent(conn, broadcast.Event{Type: broadcast.EventErrorOccurred, Timestamp: time.Now().UTC(),
						Code: string(parserrors.CodeNotSubscribed), Message: "connection has no active subscription"}) {
						return
					}
					continue
				}
				s.app.hub.Pong(sub)
			default:
				if !s.writeEvent(conn, broadcast.Event{Type: broadcast.EventErrorOccurred, Timestamp: time.Now().UTC(),
					Code: string(parserrors.CodeUnknownActionType), Message: "unknown action: " + msg.Action}) {
					return
				}
			}

		case ev, ok := <-events:
			if !ok {
				sub = nil
				continue
			}
			if !s.writeEvent(conn, ev) {
				return
			}
		}
	}
}

func (s *wsServer) writeEvent(conn *websocket.Conn, ev broadcast.Event) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(ev); err != nil {
		return false
	}
	return true
}

func errEvent(err error) broadcast.Event {
	var de *parserrors.Error
	code := parserrors.CodeInternalError
	if errors.As(err, &de) {
		code = de.Code
	}
	return broadcast.Event{Type: broadcast.EventErrorOccurred, Timestamp: time.Now().UTC(), Code: string(code), Message: err.Error()}
}
