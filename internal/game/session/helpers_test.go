package session

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

type delivery struct {
	Conn ConnID
	Msg  Message
}

type recordingDeliverer struct {
	mu   sync.Mutex
	sent []delivery
	fail map[ConnID]error
}

func (d *recordingDeliverer) Deliver(conn ConnID, msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[conn]; err != nil {
		return err
	}
	d.sent = append(d.sent, delivery{Conn: conn, Msg: msg})
	return nil
}

func (d *recordingDeliverer) to(conn ConnID) []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Message
	for _, s := range d.sent {
		if s.Conn == conn {
			out = append(out, s.Msg)
		}
	}
	return out
}

func (d *recordingDeliverer) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = nil
}

type fakeHooks struct {
	mu       sync.Mutex
	greeting string
	ticks    []uint64
}

func (h *fakeHooks) Greeting(username string) string {
	if h.greeting == "" {
		return ""
	}
	return h.greeting + " " + username
}

func (h *fakeHooks) OnTick(tick uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ticks = append(h.ticks, tick)
}

type countingSinks struct {
	mu      sync.Mutex
	loggers map[string]*zap.Logger
	created int
}

func (s *countingSinks) For(username string) *zap.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggers == nil {
		s.loggers = make(map[string]*zap.Logger)
	}
	if l, ok := s.loggers[username]; ok {
		return l
	}
	s.created++
	l := zap.NewNop().Named(username)
	s.loggers[username] = l
	return l
}

func newTestRegistry(t testing.TB, d Deliverer) *Registry {
	t.Helper()
	return NewRegistry(Options{
		Deliverer:  d,
		Logger:     zaptest.NewLogger(t),
		BcryptCost: bcrypt.MinCost,
	})
}
