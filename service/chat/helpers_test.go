package chat

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	model "ChatBuddy/module/chat/model"
)

// fakeTransport satisfies the transport interface without a socket.
type fakeTransport struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeTransport) WriteMessage(int, []byte) error   { return nil }
func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// testConn builds a Conn whose outbound frames stay in its queue, so tests
// can read them deterministically without a writer goroutine.
func testConn(id string) *Conn {
	return newConn(id, &fakeTransport{})
}

func recvEvent(t *testing.T, c *Conn) *Envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		env, err := DecodeEnvelope(raw)
		if err != nil {
			t.Fatalf("decode queued frame: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatalf("conn %s received nothing", c.ID)
		return nil
	}
}

func expectSilent(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("conn %s unexpectedly received %s", c.ID, raw)
	default:
	}
}

func decodeChat(t *testing.T, env *Envelope) *model.ChatMessage {
	t.Helper()
	b, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("re-marshal payload: %v", err)
	}
	var m model.ChatMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal chat payload: %v", err)
	}
	return &m
}

// captureSink records everything the relay schedules.
type captureSink struct {
	mu   sync.Mutex
	jobs []model.ChatMessage
	full bool
}

func (s *captureSink) Enqueue(m model.ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.jobs = append(s.jobs, m)
	return true
}

func (s *captureSink) all() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.jobs))
	copy(out, s.jobs)
	return out
}
