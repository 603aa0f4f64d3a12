package chat

import "testing"

func TestRoomJoinBroadcast(t *testing.T) {
	rm := NewRoomManager()
	a, b, c := testConn("a"), testConn("b"), testConn("c")

	rm.Join(a, "room-1")
	rm.Join(b, "room-1")
	rm.Join(c, "room-2")

	if got := rm.Members("room-1"); got != 2 {
		t.Fatalf("room-1 members = %d, want 2", got)
	}

	rm.BroadcastToRoom("room-1", EventOnlineList, map[string]string{"u1": "User One"})

	for _, conn := range []*Conn{a, b} {
		env := recvEvent(t, conn)
		if env.Name != EventOnlineList {
			t.Errorf("conn %s got event %q, want %q", conn.ID, env.Name, EventOnlineList)
		}
	}
	expectSilent(t, c)
}

func TestRoomEmitExceptSkipsSender(t *testing.T) {
	rm := NewRoomManager()
	a, b := testConn("a"), testConn("b")
	rm.Join(a, GlobalRoom)
	rm.Join(b, GlobalRoom)

	rm.EmitToRoomExcept(a, GlobalRoom, EventTyping, "Alice Doe")

	env := recvEvent(t, b)
	if env.Name != EventTyping {
		t.Fatalf("event = %q, want typing", env.Name)
	}
	if name, ok := env.Data.(string); !ok || name != "Alice Doe" {
		t.Errorf("typing payload = %v, want display name", env.Data)
	}
	expectSilent(t, a)
}

func TestRoomLeave(t *testing.T) {
	rm := NewRoomManager()
	a, b := testConn("a"), testConn("b")
	rm.Join(a, "r")
	rm.Join(b, "r")

	rm.Leave(a, "r")
	rm.BroadcastToRoom("r", EventMessage, "x")

	recvEvent(t, b)
	expectSilent(t, a)

	// leaving twice is a no-op
	rm.Leave(a, "r")
	if got := rm.Members("r"); got != 1 {
		t.Fatalf("members = %d, want 1", got)
	}
}

func TestRoomLeaveAll(t *testing.T) {
	rm := NewRoomManager()
	a := testConn("a")
	rm.Join(a, "r1")
	rm.Join(a, "r2")

	rm.LeaveAll(a)

	if rm.Members("r1") != 0 || rm.Members("r2") != 0 {
		t.Fatalf("conn still member after LeaveAll")
	}
}
