package chat

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Named events exchanged over the socket. Direct deliveries use the receiver's
// userId as the envelope name, so that contract has no constant here.
const (
	EventVerifyUser  = "verify-user"
	EventSetUser     = "set-user"
	EventAuthError   = "auth-error"
	EventOnlineList  = "online-user-list"
	EventChatMsg     = "chat-msg"
	EventRoomChatMsg = "room-chat-msg"
	EventMessage     = "message"
	EventTyping      = "typing"
)

// GlobalRoom is the well-known room every authenticated connection joins.
const GlobalRoom = "Chat-O-Buddy-Group"

// Envelope is the wire framing: a named event plus an arbitrary JSON payload.
type Envelope struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// SetUserPayload carries the opaque credential of the handshake.
type SetUserPayload struct {
	AuthToken string `json:"authToken"`
}

// AuthErrorPayload is the only error shape that ever reaches a client.
type AuthErrorPayload struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// EncodeEvent renders one envelope for the wire.
func EncodeEvent(name string, data any) ([]byte, error) {
	b, err := json.Marshal(Envelope{Name: name, Data: data})
	if err != nil {
		return nil, errors.Wrapf(err, "encode event %s", name)
	}
	return b, nil
}

// DecodeEnvelope parses a raw frame; Data stays generically typed and is
// narrowed per event via tools/decode.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	if env.Name == "" {
		return nil, errors.New("envelope has no event name")
	}
	return &env, nil
}
