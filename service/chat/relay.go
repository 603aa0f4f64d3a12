package chat

import (
	"ChatBuddy/logger"
	model "ChatBuddy/module/chat/model"
	"ChatBuddy/tools/ids"
)

// Sink is where the relay hands finished messages for durable storage.
// Enqueue must never block; false means the job was dropped.
type Sink interface {
	Enqueue(m model.ChatMessage) bool
}

// Relay turns one inbound chat event into its outbound deliveries and a
// persistence job. Delivery is synchronous and at most once; persistence is
// strictly off the hot path.
type Relay struct {
	conns *Manager
	rooms *RoomManager
	sink  Sink
}

func NewRelay(conns *Manager, rooms *RoomManager, sink Sink) *Relay {
	return &Relay{conns: conns, rooms: rooms, sink: sink}
}

// Direct relays a one-to-one message. The envelope is named by the receiver's
// userId, which is the channel the receiving client listens on. A receiver
// with no live connection is simply not reached; the durable copy still gets
// written.
func (r *Relay) Direct(msg *model.ChatMessage) {
	msg.ChatID = ids.GenerateString()

	payload, err := EncodeEvent(msg.ReceiverID, msg)
	if err != nil {
		logger.Errorf("[relay] encode direct chat=%s: %v", msg.ChatID, err)
		return
	}
	if !r.conns.SendToUser(msg.ReceiverID, payload) {
		logger.Infof("[relay] receiver %s not connected, chat=%s delivered to history only", msg.ReceiverID, msg.ChatID)
	}

	r.schedule(msg)
}

// Room relays a message to every member of its room under the "message" event.
func (r *Relay) Room(msg *model.ChatMessage) {
	msg.ChatID = ids.GenerateString()

	r.rooms.BroadcastToRoom(msg.ChatRoomID, EventMessage, msg)

	r.schedule(msg)
}

// Typing fans the ephemeral indicator out to the sender's room, excluding the
// sender. Never persisted.
func (r *Relay) Typing(sender *Conn, roomID, displayName string) {
	r.rooms.EmitToRoomExcept(sender, roomID, EventTyping, displayName)
}

func (r *Relay) schedule(msg *model.ChatMessage) {
	if !r.sink.Enqueue(*msg) {
		logger.Warnf("[relay] persistence pipeline full, dropping chat=%s", msg.ChatID)
	}
}
