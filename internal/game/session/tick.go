package session

import "go.uber.org/zap"

// Pause stops Tick from advancing until Resume is called.
func (r *Registry) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
	r.logger.Info("paused", zap.Uint64("tick", r.tick))
}

// Resume lets Tick advance again.
func (r *Registry) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
	r.logger.Info("resumed", zap.Uint64("tick", r.tick))
}

// Paused reports whether the registry is paused.
func (r *Registry) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// CurrentTick returns the tick counter.
func (r *Registry) CurrentTick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick
}

// ScheduleAt defers ev until the tick counter reaches tick. Events for a tick
// that has already passed run on the next Tick.
//
// Precondition: ev must be non-nil.
func (r *Registry) ScheduleAt(tick uint64, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events.At(tick, ev)
}

// PendingEvents returns the number of deferred events not yet run.
func (r *Registry) PendingEvents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events.Len()
}

// Tick runs every event due at the current tick, calls the OnTick hook and
// advances the counter. Events and hooks run outside the registry lock, so
// they may call back into the registry.
//
// Postcondition: Returns false with no effect when paused.
func (r *Registry) Tick() bool {
	r.mu.Lock()
	if r.paused {
		r.mu.Unlock()
		return false
	}
	now := r.tick
	due := r.events.PopDue(now)
	r.tick++
	r.mu.Unlock()

	for _, ev := range due {
		ev(now)
	}
	if r.hooks != nil {
		r.hooks.OnTick(now)
	}
	return true
}
