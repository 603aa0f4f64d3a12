package chat

import (
	"sync"
	"time"

	"ChatBuddy/tools/errs"
)

// ManagerConf tunes connection bookkeeping.
type ManagerConf struct {
	HandshakeTTL time.Duration    // how long an unauthenticated connection may linger
	SweepEvery   time.Duration    // sweeper period
	Clock        func() time.Time // injectable clock for tests; nil => time.Now
}

func (c *ManagerConf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.HandshakeTTL <= 0 {
		c.HandshakeTTL = 60 * time.Second
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 10 * time.Second
	}
}

// connState is the mutable session record for one Conn. Owned by the Manager;
// only copies of its fields ever leave the lock.
type connState struct {
	conn        *Conn
	userID      string
	displayName string
	room        string
	authorized  bool
	createdAt   time.Time
	expireAt    time.Time // zero once authorized
}

// Manager tracks live connections and the userId binding established by the
// handshake. An unauthenticated connection is force-closed by the sweeper once
// its handshake deadline passes.
type Manager struct {
	mu     sync.RWMutex
	byID   map[string]*connState
	byUser map[string]map[string]*Conn // userID -> connID -> conn

	conf     ManagerConf
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewManager(conf ManagerConf) *Manager {
	conf.norm()
	m := &Manager{
		byID:   make(map[string]*connState),
		byUser: make(map[string]map[string]*Conn),
		conf:   conf,
		stopCh: make(chan struct{}),
	}
	go m.sweeper()
	return m
}

// Register books a fresh, unauthenticated connection and arms its handshake
// deadline.
func (m *Manager) Register(c *Conn) {
	now := m.conf.Clock()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[c.ID] = &connState{
		conn:      c,
		createdAt: now,
		expireAt:  now.Add(m.conf.HandshakeTTL),
	}
}

// Bind promotes a connection to authenticated and indexes it by user. A second
// login under the same userId keeps both connections live (multi-session); the
// presence entry is last-writer-wins at the registry.
func (m *Manager) Bind(connID, userID, displayName, room string) error {
	if connID == "" || userID == "" {
		return errs.New("empty connID or userID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.byID[connID]
	if !ok {
		return errs.ErrConnNotFound.WithDetail(connID)
	}

	// re-authentication under a different user moves the index
	if st.authorized && st.userID != "" && st.userID != userID {
		m.unindexUserLocked(st.userID, connID)
	}

	st.userID = userID
	st.displayName = displayName
	st.room = room
	st.authorized = true
	st.expireAt = time.Time{}

	mm := m.byUser[userID]
	if mm == nil {
		mm = make(map[string]*Conn)
		m.byUser[userID] = mm
	}
	mm[connID] = st.conn
	return nil
}

// Identity returns the binding of a connection, if authenticated.
func (m *Manager) Identity(connID string) (userID, displayName, room string, authorized bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.byID[connID]
	if !ok || !st.authorized {
		return "", "", "", false
	}
	return st.userID, st.displayName, st.room, true
}

// Remove drops a connection from all indexes and reports the binding it had.
// The socket itself is closed by the caller.
func (m *Manager) Remove(connID string) (userID, displayName, room string, authorized bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.byID[connID]
	if !ok {
		return "", "", "", false
	}
	delete(m.byID, connID)
	if st.authorized && st.userID != "" {
		m.unindexUserLocked(st.userID, connID)
	}
	return st.userID, st.displayName, st.room, st.authorized
}

// SendToUser delivers a frame to every live connection of the user. Returns
// false when nothing was delivered; an offline receiver is not an error.
func (m *Manager) SendToUser(userID string, payload []byte) bool {
	m.mu.RLock()
	conns := make([]*Conn, 0, len(m.byUser[userID]))
	for _, c := range m.byUser[userID] {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	delivered := false
	for _, c := range conns {
		if c.Send(payload) {
			delivered = true
		}
	}
	return delivered
}

// Len reports the number of tracked connections.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Close stops the sweeper and closes every connection.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })

	m.mu.Lock()
	conns := make([]*Conn, 0, len(m.byID))
	for _, st := range m.byID {
		conns = append(conns, st.conn)
	}
	m.byID = map[string]*connState{}
	m.byUser = map[string]map[string]*Conn{}
	m.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func (m *Manager) unindexUserLocked(userID, connID string) {
	if mm := m.byUser[userID]; mm != nil {
		delete(mm, connID)
		if len(mm) == 0 {
			delete(m.byUser, userID)
		}
	}
}

func (m *Manager) sweeper() {
	t := time.NewTicker(m.conf.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-t.C:
			m.sweepOnce(m.conf.Clock())
		}
	}
}

// sweepOnce closes unauthenticated connections whose handshake deadline has
// passed. Sockets are closed outside the lock; the read loop then runs the
// normal disconnect path, which calls Remove.
func (m *Manager) sweepOnce(now time.Time) {
	var expired []*Conn
	m.mu.RLock()
	for _, st := range m.byID {
		if !st.authorized && now.After(st.expireAt) {
			expired = append(expired, st.conn)
		}
	}
	m.mu.RUnlock()

	for _, c := range expired {
		c.Close()
	}
}
