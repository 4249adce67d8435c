package handlers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cory-johannsen/hysbakstryd/internal/frontend/telnet"
	"github.com/cory-johannsen/hysbakstryd/internal/game/session"
)

// ErrNoConnection is returned when a delivery names a connection that is not
// in the directory.
var ErrNoConnection = errors.New("no such connection")

// ConnDirectory maps connection handles to live Telnet connections and
// implements session.Deliverer.
type ConnDirectory struct {
	mu    sync.RWMutex
	conns map[session.ConnID]*telnet.Conn
}

// NewConnDirectory returns an empty directory.
func NewConnDirectory() *ConnDirectory {
	return &ConnDirectory{conns: make(map[session.ConnID]*telnet.Conn)}
}

// Add registers conn under its handle.
func (d *ConnDirectory) Add(conn *telnet.Conn) session.ConnID {
	id := session.ConnID(conn.ID())
	d.mu.Lock()
	d.conns[id] = conn
	d.mu.Unlock()
	return id
}

// Remove drops the handle.
func (d *ConnDirectory) Remove(id session.ConnID) {
	d.mu.Lock()
	delete(d.conns, id)
	d.mu.Unlock()
}

// Len returns the number of connections in the directory.
func (d *ConnDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.conns)
}

// Deliver implements session.Deliverer by writing the rendered message line.
func (d *ConnDirectory) Deliver(id session.ConnID, msg session.Message) error {
	d.mu.RLock()
	conn, ok := d.conns[id]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoConnection, id)
	}
	return conn.WriteLine(RenderMessage(msg))
}
