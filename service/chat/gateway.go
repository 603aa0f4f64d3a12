package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"ChatBuddy/logger"
	model "ChatBuddy/module/chat/model"
	"ChatBuddy/service/storage"
	"ChatBuddy/tools/decode"
	"ChatBuddy/tools/errs"
	"ChatBuddy/tools/ids"
	"ChatBuddy/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	readLimit    = 1 << 20 // 1MB
	readDeadline = 60 * time.Second
	storeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the connection gateway: it owns the websocket upgrade, the
// authentication handshake, and the per-connection read loop, and feeds
// authenticated traffic into the relay.
type Server struct {
	conns    *Manager
	rooms    *RoomManager
	relay    *Relay
	presence storage.Presence
	verifier security.Verifier
}

func NewServer(conns *Manager, rooms *RoomManager, relay *Relay, presence storage.Presence, verifier security.Verifier) *Server {
	return &Server{
		conns:    conns,
		rooms:    rooms,
		relay:    relay,
		presence: presence,
		verifier: verifier,
	}
}

// HandleWS upgrades the request and runs the connection until the transport
// closes. One read loop per connection; a single writer goroutine drains the
// outbound queue.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[gateway] upgrade failed: %v", err)
		return
	}

	conn := newConn(ids.GenerateString(), ws)
	s.conns.Register(conn)
	go conn.writePump()

	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(readDeadline))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readDeadline))
	})

	// challenge first: the client must answer with set-user
	conn.SendEvent(EventVerifyUser, nil)

	s.readLoop(conn, ws)
	s.disconnect(conn)
}

func (s *Server) readLoop(conn *Conn, ws *websocket.Conn) {
	for {
		mt, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[gateway] peer closed conn=%s", conn.ID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[gateway] read timeout conn=%s", conn.ID)
			} else {
				logger.Infof("[gateway] read error conn=%s err=%v", conn.ID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		env, err := DecodeEnvelope(raw)
		if err != nil {
			sample := raw
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[gateway] bad frame conn=%s err=%v sample=%q", conn.ID, err, sample)
			continue
		}

		s.dispatch(conn, env)
	}
}

// dispatch runs one inbound event. Everything except set-user requires an
// authenticated connection; frames from strangers are dropped.
func (s *Server) dispatch(conn *Conn, env *Envelope) {
	if env.Name == EventSetUser {
		s.handleSetUser(conn, env.Data)
		return
	}

	userID, displayName, room, ok := s.conns.Identity(conn.ID)
	if !ok {
		logger.Infof("[gateway] drop %s from unauthenticated conn=%s", env.Name, conn.ID)
		return
	}

	switch env.Name {
	case EventChatMsg:
		msg, err := decode.Any[model.ChatMessage](env.Data)
		if err != nil {
			logger.Infof("[gateway] bad chat-msg conn=%s err=%v", conn.ID, err)
			return
		}
		s.relay.Direct(msg)
	case EventRoomChatMsg:
		msg, err := decode.Any[model.ChatMessage](env.Data)
		if err != nil {
			logger.Infof("[gateway] bad room-chat-msg conn=%s err=%v", conn.ID, err)
			return
		}
		s.relay.Room(msg)
	case EventTyping:
		name, err := decode.String(env.Data)
		if err != nil || name == "" {
			name = displayName
		}
		s.relay.Typing(conn, room, name)
	default:
		logger.Infof("[gateway] unknown event %q conn=%s user=%s", env.Name, conn.ID, userID)
	}
}

// handleSetUser runs the credential half of the handshake. Verification may
// block on the external verifier; that only stalls this connection's own read
// loop. Failure keeps the connection open for a retry until the handshake
// deadline fires.
func (s *Server) handleSetUser(conn *Conn, data any) {
	payload, err := decode.Any[SetUserPayload](data)
	token := ""
	if err == nil {
		token = payload.AuthToken
	} else if str, serr := decode.String(data); serr == nil {
		// older clients emit the raw token string instead of an object
		token = str
	}

	identity, verr := s.verifier.Verify(token)
	if verr != nil {
		logger.Infof("[gateway] auth failed conn=%s err=%v", conn.ID, verr)
		conn.SendEvent(EventAuthError, AuthErrorPayload{
			Status: errs.ErrTokenInvalid.Code,
			Error:  errs.ErrTokenInvalid.Msg,
		})
		return
	}

	displayName := identity.FullName()
	if err := s.conns.Bind(conn.ID, identity.UserID, displayName, GlobalRoom); err != nil {
		logger.Errorf("[gateway] bind conn=%s user=%s: %v", conn.ID, identity.UserID, err)
		return
	}

	// each registry call gets its own timeout so a slow upsert cannot eat
	// the list's budget
	uctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	uerr := s.presence.Upsert(uctx, storage.OnlineUsersHash, identity.UserID, displayName)
	cancel()
	if uerr != nil {
		// user stays bound but invisible until the next successful update
		logger.Errorf("[gateway] presence upsert user=%s: %v", identity.UserID, uerr)
		return
	}

	s.rooms.Join(conn, GlobalRoom)
	logger.Infof("[gateway] %s is online conn=%s", displayName, conn.ID)

	lctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	list, err := s.presence.List(lctx, storage.OnlineUsersHash)
	if err != nil {
		// presence is written; the announce round is skipped
		logger.Errorf("[gateway] presence list: %v", err)
		return
	}
	conn.SendEvent(EventOnlineList, list)
	s.rooms.BroadcastToRoom(GlobalRoom, EventOnlineList, list)
}

// disconnect tears down one connection. An authenticated departure is
// announced to the room with a fresh online list; scheduled persistence jobs
// for messages this connection sent are unaffected.
func (s *Server) disconnect(conn *Conn) {
	userID, _, room, authorized := s.conns.Remove(conn.ID)
	s.rooms.LeaveAll(conn)

	if authorized {
		rctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		rerr := s.presence.Remove(rctx, storage.OnlineUsersHash, userID)
		cancel()

		if rerr != nil {
			logger.Errorf("[gateway] presence remove user=%s: %v", userID, rerr)
		} else {
			lctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			list, lerr := s.presence.List(lctx, storage.OnlineUsersHash)
			cancel()
			if lerr != nil {
				logger.Errorf("[gateway] presence list after remove: %v", lerr)
			} else {
				s.rooms.BroadcastToRoom(room, EventOnlineList, list)
				// best effort towards the departing transport
				conn.SendEvent(EventOnlineList, list)
			}
		}
	}

	conn.Close()
	logger.Infof("[gateway] conn=%s gone user=%s", conn.ID, userID)
}
