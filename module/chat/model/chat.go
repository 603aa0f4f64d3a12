package model

import "time"

// ChatTableName is the durable chat history collection, keyed by chat_id.
const ChatTableName = "chats"

// ChatMessage is one relayed chat event. Exactly one of ReceiverID (direct)
// or ChatRoomID (room broadcast) drives delivery; both fields are carried on
// the wire and in storage, absent ones as empty strings.
type ChatMessage struct {
	ChatID       string    `json:"chatId" bson:"chat_id"`
	SenderID     string    `json:"senderId" bson:"sender_id"`
	SenderName   string    `json:"senderName" bson:"sender_name"`
	ReceiverID   string    `json:"receiverId" bson:"receiver_id"`
	ReceiverName string    `json:"receiverName" bson:"receiver_name"`
	Message      string    `json:"message" bson:"message"`
	ChatRoomID   string    `json:"chatRoomId" bson:"chat_room_id"`
	CreatedOn    time.Time `json:"createdOn" bson:"created_on"`
}

// IsRoom reports whether the message targets a broadcast room.
func (m *ChatMessage) IsRoom() bool { return m.ChatRoomID != "" }
