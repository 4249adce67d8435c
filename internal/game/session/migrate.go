package session

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Migrate builds the registry of the next game generation described by opts
// and moves old's state into it: every GameClient is rebuilt under the new
// schema, then credentials, bindings, tick, pause flag and deferred events are
// moved across. The version tag is not carried; the new registry keeps its own.
// Carried credentials keep their hashes; new records use opts.BcryptCost.
// Nil Deliverer, Sinks and Logger in opts are inherited from old.
//
// Migrate is stop-the-world for old: it holds old's lock throughout, and the
// caller must not publish the new registry before Migrate returns.
//
// Postcondition: On success old owns no clients, bindings or credentials and
// every GameClient is owned by exactly the returned registry. On error old is
// unchanged and fully usable.
func Migrate(old *Registry, opts Options) (*Registry, error) {
	start := time.Now()

	if opts.Deliverer == nil {
		opts.Deliverer = old.deliverer
	}
	if opts.Sinks == nil {
		opts.Sinks = old.sinks
	}
	if opts.Logger == nil {
		opts.Logger = old.logger
	}
	next := NewRegistry(opts)

	old.mu.Lock()
	defer old.mu.Unlock()
	next.mu.Lock()
	defer next.mu.Unlock()

	next.logger.Info("init from old registry",
		zap.String("old_version", old.version),
		zap.String("new_version", next.version),
		zap.Int("clients", len(old.clients)),
	)

	// Build every successor before touching old so a failure leaves it intact.
	staged := make(map[string]*GameClient, len(old.clients))
	for name, oc := range old.clients {
		nc, err := migrateClient(oc, next.schema, next.sinkFor(name))
		if err != nil {
			next.logger.Error("migration aborted", zap.String("username", name), zap.Error(err))
			return nil, fmt.Errorf("migrating %s to %s: %w", old.version, next.version, err)
		}
		staged[name] = nc
	}

	// Stored hashes embed their own cost and keep verifying; new records
	// hash at the next generation's cost.
	oldCost := old.credentials.cost
	carried := old.credentials
	carried.cost = next.credentials.cost

	next.clients = staged
	next.credentials = carried
	next.userToConn = old.userToConn
	next.connToUser = old.connToUser
	next.tick = old.tick
	next.paused = old.paused
	next.events = old.events

	old.clients = make(map[string]*GameClient)
	old.credentials = NewCredentialStore(oldCost)
	old.userToConn = make(map[string]ConnID)
	old.connToUser = make(map[ConnID]string)
	old.events = NewSchedule()

	for _, c := range staged {
		c.sink.Info("hello client", zap.String("name", c.name))
		c.sink.Info("renew client",
			zap.String("name", c.name),
			zap.String("old_version", old.version),
			zap.String("new_version", next.version),
		)
	}

	next.logger.Info("migration complete",
		zap.Int("clients", len(staged)),
		zap.Int("bound", len(next.connToUser)),
		zap.Uint64("tick", next.tick),
		zap.Duration("elapsed", time.Since(start)),
	)
	return next, nil
}
