// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/lobby"
	"github.com/jason-s-yu/spyparty/internal/middleware"
	"github.com/jason-s-yu/spyparty/internal/models"
)

const defaultPushInterval = 2 * time.Second

type wsFrame struct {
	Type string `json:"type"`
}

type wsMessage struct {
	Type   string      `json:"type"`
	Room   *lobby.View `json:"room,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

// RoomWSHandler streams the caller's room view. A client may send
// {"type":"heartbeat"} or {"type":"status"}; every room change and every
// push interval also produces a fresh view.
//
// Browsers cannot set headers on a websocket, so initData and token are also
// read from the query string.
func (s *Server) RoomWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code := q.Get("room_code")
		creds := credentials(r, q.Get("initData"))
		if token := q.Get("token"); token != "" && creds.Authorization == "" {
			creds.Authorization = "Bearer " + token
		}
		u, authErr := s.Auth.Authenticate(creds)

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: s.Origins,
		})
		if err != nil {
			s.Log.WithError(err).Warn("websocket accept error")
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if authErr != nil {
			c.Close(InvalidAuthError, authErr.Error())
			return
		}
		view, err := s.Rooms.Status(code, u)
		if err != nil {
			c.Close(closeCodeFor(err), err.Error())
			return
		}

		sub := s.Hub.Subscribe(view.RoomCode, u.ID)
		defer s.Hub.Unsubscribe(sub)
		middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, view.RoomCode, s.Hub.Count(view.RoomCode))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		frames := make(chan string, 4)
		readErr := make(chan error, 1)
		go readPump(ctx, c, frames, readErr)

		err = s.writePump(ctx, c, u, sub, view, frames, readErr)
		middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, view.RoomCode, err)
	}
}

// readPump forwards the type of every client frame until the connection fails.
func readPump(ctx context.Context, c *websocket.Conn, frames chan<- string, readErr chan<- error) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			readErr <- err
			return
		}
		var f wsFrame
		if typ != websocket.MessageText || json.Unmarshal(data, &f) != nil {
			f.Type = ""
		}
		select {
		case frames <- f.Type:
		case <-ctx.Done():
			return
		}
	}
}

// writePump owns every write on c. It returns nil when the peer closed normally.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, u models.User, sub *lobby.Subscriber, first lobby.View, frames <-chan string, readErr <-chan error) error {
	log := s.Log.WithFields(logrus.Fields{"room": sub.Code, "user": u.ID})
	if err := send(ctx, c, wsMessage{Type: "room", Room: &first}); err != nil {
		return err
	}

	interval := s.PushInterval
	if interval <= 0 {
		interval = defaultPushInterval
	}
	ticker := s.Clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		var (
			view lobby.View
			err  error
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return err
		case typ := <-frames:
			switch typ {
			case "heartbeat":
				view, err = s.Rooms.Heartbeat(sub.Code, u)
			case "status":
				view, err = s.Rooms.Status(sub.Code, u)
			default:
				if err := send(ctx, c, wsMessage{Type: "error", Detail: "unknown message type"}); err != nil {
					return err
				}
				continue
			}
		case <-sub.Wake:
			view, err = s.Rooms.Status(sub.Code, u)
		case <-ticker.Chan():
			view, err = s.Rooms.Status(sub.Code, u)
		}

		if err != nil {
			if code := closeCodeFor(err); code != websocket.StatusInternalError {
				log.WithError(err).Info("closing room socket")
				c.Close(code, err.Error())
				return nil
			}
			return err
		}
		if err := send(ctx, c, wsMessage{Type: "room", Room: &view}); err != nil {
			return err
		}
	}
}

func send(ctx context.Context, c *websocket.Conn, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}

func closeCodeFor(err error) websocket.StatusCode {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return RoomNotFoundError
	case errors.Is(err, game.ErrForbidden):
		return NotInRoomError
	case errors.Is(err, game.ErrUnauthorized):
		return InvalidAuthError
	default:
		return websocket.StatusInternalError
	}
}
