package chat

import (
	"testing"
	"time"

	model "ChatBuddy/module/chat/model"
)

func relayFixture(t *testing.T) (*Relay, *Manager, *RoomManager, *captureSink) {
	t.Helper()
	m := newTestManager(nil)
	t.Cleanup(m.Close)
	rm := NewRoomManager()
	sink := &captureSink{}
	return NewRelay(m, rm, sink), m, rm, sink
}

func TestRelayDirectDelivery(t *testing.T) {
	relay, m, _, sink := relayFixture(t)

	b := testConn("cb")
	m.Register(b)
	_ = m.Bind("cb", "user-b", "Bob Roe", GlobalRoom)

	msg := &model.ChatMessage{
		SenderID:   "user-a",
		SenderName: "Alice Doe",
		ReceiverID: "user-b",
		Message:    "hi",
		CreatedOn:  time.Now().UTC().Truncate(time.Second),
	}
	relay.Direct(msg)

	env := recvEvent(t, b)
	if env.Name != "user-b" {
		t.Fatalf("direct envelope named %q, want receiver id", env.Name)
	}
	got := decodeChat(t, env)
	if got.Message != "hi" || got.ChatID == "" {
		t.Fatalf("delivered message = %+v", got)
	}

	jobs := sink.all()
	if len(jobs) != 1 {
		t.Fatalf("sink jobs = %d, want 1", len(jobs))
	}
	if jobs[0] != *msg {
		t.Errorf("persisted message differs from relayed one:\n got %+v\nwant %+v", jobs[0], *msg)
	}
	if jobs[0].ChatID != got.ChatID {
		t.Errorf("persisted chatId %s != delivered chatId %s", jobs[0].ChatID, got.ChatID)
	}
}

func TestRelayDirectMissIsNotAnError(t *testing.T) {
	relay, _, _, sink := relayFixture(t)

	msg := &model.ChatMessage{SenderID: "a", ReceiverID: "offline", Message: "hello?"}
	relay.Direct(msg)

	// durable copy is still scheduled
	if len(sink.all()) != 1 {
		t.Fatalf("offline receiver suppressed persistence")
	}
}

func TestRelayRoomDelivery(t *testing.T) {
	relay, m, rm, sink := relayFixture(t)

	in, in2, out := testConn("c1"), testConn("c2"), testConn("c3")
	for id, c := range map[string]*Conn{"u1": in, "u2": in2, "u3": out} {
		m.Register(c)
		_ = m.Bind(c.ID, id, id, GlobalRoom)
	}
	rm.Join(in, "room-9")
	rm.Join(in2, "room-9")
	rm.Join(out, "room-8")

	msg := &model.ChatMessage{SenderID: "u1", SenderName: "u1", ChatRoomID: "room-9", Message: "yo"}
	relay.Room(msg)

	var chatID string
	for _, c := range []*Conn{in, in2} {
		env := recvEvent(t, c)
		if env.Name != EventMessage {
			t.Fatalf("room envelope named %q, want %q", env.Name, EventMessage)
		}
		got := decodeChat(t, env)
		if got.Message != "yo" || got.ChatRoomID != "room-9" {
			t.Fatalf("room message = %+v", got)
		}
		if chatID == "" {
			chatID = got.ChatID
		} else if got.ChatID != chatID {
			t.Errorf("members saw different chatIds: %s vs %s", chatID, got.ChatID)
		}
	}
	expectSilent(t, out)

	jobs := sink.all()
	if len(jobs) != 1 || jobs[0].ChatID != chatID {
		t.Fatalf("sink = %+v, want one job with chatId %s", jobs, chatID)
	}
}

func TestRelayChatIDsUnique(t *testing.T) {
	relay, _, _, sink := relayFixture(t)

	for i := 0; i < 200; i++ {
		relay.Direct(&model.ChatMessage{SenderID: "a", ReceiverID: "b", Message: "m"})
	}

	seen := make(map[string]bool)
	for _, j := range sink.all() {
		if seen[j.ChatID] {
			t.Fatalf("chatId %s assigned twice", j.ChatID)
		}
		seen[j.ChatID] = true
	}
	if len(seen) != 200 {
		t.Fatalf("unique chatIds = %d, want 200", len(seen))
	}
}

func TestRelayTypingNeverPersisted(t *testing.T) {
	relay, m, rm, sink := relayFixture(t)

	a, b := testConn("ca"), testConn("cb")
	m.Register(a)
	m.Register(b)
	rm.Join(a, GlobalRoom)
	rm.Join(b, GlobalRoom)

	relay.Typing(a, GlobalRoom, "Alice Doe")

	env := recvEvent(t, b)
	if env.Name != EventTyping || env.Data != "Alice Doe" {
		t.Fatalf("typing event = %+v", env)
	}
	expectSilent(t, a)
	if len(sink.all()) != 0 {
		t.Fatal("typing indicator was scheduled for persistence")
	}
}

func TestRelayFullSinkDoesNotBlockDelivery(t *testing.T) {
	relay, m, _, sink := relayFixture(t)
	sink.full = true

	b := testConn("cb")
	m.Register(b)
	_ = m.Bind("cb", "user-b", "Bob Roe", GlobalRoom)

	relay.Direct(&model.ChatMessage{SenderID: "a", ReceiverID: "user-b", Message: "hi"})

	// delivered in real time even though the durable copy was dropped
	env := recvEvent(t, b)
	if env.Name != "user-b" {
		t.Fatalf("delivery suppressed by full sink")
	}
}
