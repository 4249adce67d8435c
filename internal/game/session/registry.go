// Package session provides the player session registry: credential checks,
// per-user game state, connection bindings, the tick/pause controller and the
// hot-reload migration between registry generations.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// MasterID is the sender id of messages that originate from the server itself.
const MasterID = "__master__"

// KindWelcome is the message type of the rules greeting sent after Register.
const KindWelcome = "WELCOME"

// ConnID is an opaque handle naming one live transport connection.
type ConnID string

// Message is one outbound delivery.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	From    string `json:"from"`
}

// Deliverer sends messages to connections. It is implemented by the transport.
type Deliverer interface {
	Deliver(conn ConnID, msg Message) error
}

// SinkProvider hands out the diagnostic logger for a username. Implementations
// must return the same logger for repeated calls with the same username.
type SinkProvider interface {
	For(username string) *zap.Logger
}

// Hooks are the replaceable game-logic callbacks of a rules generation.
type Hooks interface {
	// Greeting returns a welcome text for a user who just registered, or "".
	Greeting(username string) string
	// OnTick runs once per unpaused tick after due events.
	OnTick(tick uint64)
}

// Options configures a Registry.
type Options struct {
	// Schema is the client schema of this generation. An empty Version
	// becomes DefaultVersion.
	Schema     Schema
	Hooks      Hooks
	Deliverer  Deliverer
	Sinks      SinkProvider
	Logger     *zap.Logger
	BcryptCost int
}

// Registry owns the credential store, the game client states and the
// bidirectional connection bindings of one game generation.
// All methods are safe for concurrent use; a single mutex serializes them.
//
// Invariant: usernames with a binding ⊆ usernames with a GameClient ⊆
// usernames with a credential record.
type Registry struct {
	mu        sync.Mutex
	version   string
	schema    Schema
	hooks     Hooks
	deliverer Deliverer
	sinks     SinkProvider
	logger    *zap.Logger

	credentials *CredentialStore
	clients     map[string]*GameClient
	userToConn  map[string]ConnID
	connToUser  map[ConnID]string

	tick   uint64
	paused bool
	events *Schedule
}

// NewRegistry creates an empty registry.
//
// Postcondition: Returns a registry with empty collections, tick 0 and not paused.
func NewRegistry(opts Options) *Registry {
	schema := opts.Schema
	if schema.Version == "" {
		schema.Version = DefaultVersion
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("version", schema.Version))
	logger.Info("new registry instantiated")

	return &Registry{
		version:     schema.Version,
		schema:      schema,
		hooks:       opts.Hooks,
		deliverer:   opts.Deliverer,
		sinks:       opts.Sinks,
		logger:      logger,
		credentials: NewCredentialStore(opts.BcryptCost),
		clients:     make(map[string]*GameClient),
		userToConn:  make(map[string]ConnID),
		connToUser:  make(map[ConnID]string),
		events:      NewSchedule(),
	}
}

// Register authenticates username and binds it to conn.
//
// A new username gets a credential record and a GameClient built from attrs.
// A known username must present the matching password; its existing GameClient
// is reused, marked online, and any different connection still bound to it is
// released first. attrs are only used when the GameClient is created.
//
// The bcrypt check runs under the registry lock, so a login stalls every other
// operation, ticks included, for one hash. A credential check and the binding
// it authorizes must not interleave with other registry operations.
//
// Postcondition: Returns the user's GameClient, or ErrWrongPassword with no
// state changed. The returned GameClient is the registry's own instance; read
// it through View when Dispatch may run concurrently.
func (r *Registry) Register(conn ConnID, username, password string, attrs map[string]any) (*GameClient, error) {
	r.mu.Lock()
	client, err := r.register(conn, username, password, attrs)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if r.hooks != nil {
		if greeting := r.hooks.Greeting(username); greeting != "" {
			r.deliver(conn, Message{Type: KindWelcome, Payload: greeting, From: MasterID})
		}
	}
	return client, nil
}

func (r *Registry) register(conn ConnID, username, password string, attrs map[string]any) (*GameClient, error) {
	r.logger.Info("register", zap.String("username", username), zap.String("conn", string(conn)))

	if err := r.credentials.SetOrVerify(username, password); err != nil {
		if errors.Is(err, ErrWrongPassword) {
			r.logger.Warn("old password is different", zap.String("username", username))
		}
		return nil, err
	}

	// conn switching users: release its previous user so both directions stay consistent.
	if prev, ok := r.connToUser[conn]; ok && prev != username {
		r.logger.Info("connection changes user",
			zap.String("conn", string(conn)),
			zap.String("previous", prev),
			zap.String("username", username),
		)
		r.unbind(conn)
	}

	client, exists := r.clients[username]
	if !exists {
		sink := r.sinkFor(username)
		var ignored []string
		client, ignored = newGameClient(username, r.schema, attrs, sink)
		r.clients[username] = client
		sink.Info("hello client", zap.String("name", username))
		if len(ignored) > 0 {
			sort.Strings(ignored)
			r.logger.Warn("ignored undeclared or mistyped attributes",
				zap.String("username", username),
				zap.Strings("attributes", ignored),
			)
		}
	} else if stale, bound := r.userToConn[username]; bound && stale != conn {
		if !r.unbind(stale) {
			r.logger.Info("unregister of stale connection on relogin failed",
				zap.String("username", username),
				zap.String("stale_conn", string(stale)),
			)
		}
	}
	client.online = true

	r.userToConn[username] = conn
	r.connToUser[conn] = username
	return client, nil
}

// Unregister releases conn's binding and marks its user offline. The user's
// GameClient is kept for a later reconnect.
//
// Postcondition: Returns ErrUnknownConnection if conn has no binding.
func (r *Registry) Unregister(conn ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("bye", zap.String("conn", string(conn)))
	if !r.unbind(conn) {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, conn)
	}
	return nil
}

// UnregisterIfBound is Unregister for callers that do not care whether conn
// was bound.
//
// Postcondition: Returns true if a binding was released.
func (r *Registry) UnregisterIfBound(conn ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unbind(conn)
}

// unbind removes both directions of conn's binding. Caller must hold r.mu.
func (r *Registry) unbind(conn ConnID) bool {
	username, ok := r.connToUser[conn]
	if !ok {
		return false
	}
	if c, ok := r.clients[username]; ok {
		c.online = false
	}
	if r.userToConn[username] == conn {
		delete(r.userToConn, username)
	}
	delete(r.connToUser, conn)
	return true
}

// Broadcast delivers (msgType, data, fromID) to every bound connection.
// An empty fromID is sent as MasterID. Delivery order is unspecified.
func (r *Registry) Broadcast(msgType string, data any, fromID string) {
	if fromID == "" {
		fromID = MasterID
	}
	msg := Message{Type: msgType, Payload: data, From: fromID}
	for _, conn := range r.Connections() {
		r.deliver(conn, msg)
	}
}

func (r *Registry) deliver(conn ConnID, msg Message) {
	if r.deliverer == nil {
		return
	}
	if err := r.deliverer.Deliver(conn, msg); err != nil {
		r.logger.Warn("delivery failed",
			zap.String("conn", string(conn)),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
	}
}

func (r *Registry) sinkFor(username string) *zap.Logger {
	if r.sinks == nil {
		return zap.NewNop()
	}
	return r.sinks.For(username)
}

// Version returns the registry's version tag.
func (r *Registry) Version() string {
	return r.version
}

// Schema returns the client schema of this generation.
func (r *Registry) Schema() Schema {
	return r.schema
}

// Client returns the GameClient for username. It exposes identity and getters
// only; mutation goes through Dispatch.
func (r *Registry) Client(username string) (*GameClient, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[username]
	return c, ok
}

// View returns a snapshot of username's GameClient.
func (r *Registry) View(username string) (ClientView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[username]
	if !ok {
		return ClientView{}, false
	}
	return c.View(), true
}

// Username returns the username bound to conn.
func (r *Registry) Username(conn ConnID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.connToUser[conn]
	return u, ok
}

// Conn returns the connection currently bound to username.
func (r *Registry) Conn(username string) (ConnID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.userToConn[username]
	return c, ok
}

// Connections returns every bound connection in no particular order.
func (r *Registry) Connections() []ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConnID, 0, len(r.connToUser))
	for conn := range r.connToUser {
		out = append(out, conn)
	}
	return out
}

// OnlineUsers returns the usernames with a bound connection, sorted.
func (r *Registry) OnlineUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.userToConn))
	for u := range r.userToConn {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// ClientCount returns the number of GameClients owned by the registry.
func (r *Registry) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// BoundCount returns the number of bound connections.
func (r *Registry) BoundCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connToUser)
}
