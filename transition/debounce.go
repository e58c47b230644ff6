package transition

import (
	"strings"
	"time"
)

// transitionKey is the directed pair of states a debounce entry is keyed by,
// the typed equivalent of the "FROM_to_TO" string key described in the
// design notes.
type transitionKey struct {
	From State
	To   State
}

// Registry tracks in-flight debounced transition requests. Zero value is a
// ready-to-use empty registry.
type Registry struct {
	entries map[transitionKey]time.Time
}

// NewRegistry returns an empty debounce registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[transitionKey]time.Time)}
}

// Load builds a registry from persisted entries, used when the engine
// restores its state at startup. Same-state and zero-time entries are
// dropped.
func Load(persisted map[string]time.Time) *Registry {
	r := NewRegistry()
	for k, v := range persisted {
		from, to, ok := splitKey(k)
		if !ok || from == to || v.IsZero() {
			continue
		}
		r.entries[transitionKey{From: from, To: to}] = v
	}
	return r
}

// Snapshot returns the registry's contents as the string-keyed map used for
// persistence (key format "FROM_to_TO", matching the design notes).
func (r *Registry) Snapshot() map[string]time.Time {
	out := make(map[string]time.Time, len(r.entries))
	for k, v := range r.entries {
		out[joinKey(k.From, k.To)] = v
	}
	return out
}

// Outcome describes what happened when a transition was requested.
type Outcome int

const (
	// OutcomeStarted means no entry existed yet; one was created.
	OutcomeStarted Outcome = iota
	// OutcomePending means an entry existed but the debounce period has not
	// elapsed yet.
	OutcomePending
	// OutcomeApproved means the debounce period elapsed; the transition may
	// proceed and every other pending entry was cleared.
	OutcomeApproved
)

// Request records a request for the transition (from, to) made at time now,
// and reports what should happen with it given debounceTime. from must not
// equal to - the caller should short-circuit same-state requests before
// calling Request.
func (r *Registry) Request(from, to State, now time.Time, debounceTime time.Duration) (Outcome, time.Duration) {
	key := transitionKey{From: from, To: to}

	firstRequestedAt, exists := r.entries[key]
	if !exists {
		if r.entries == nil {
			r.entries = make(map[transitionKey]time.Time)
		}
		r.entries[key] = now
		return OutcomeStarted, debounceTime
	}

	elapsed := now.Sub(firstRequestedAt)
	if elapsed >= debounceTime {
		delete(r.entries, key)
		r.ClearAll()
		return OutcomeApproved, 0
	}

	return OutcomePending, debounceTime - elapsed
}

// ClearAll wipes every pending debounce entry. Used both when an approved
// transition invalidates other candidates, and when a debounce-bypassing
// override (battery protection) forces a transition.
func (r *Registry) ClearAll() {
	r.entries = make(map[transitionKey]time.Time)
}

func joinKey(from, to State) string {
	return string(from) + "_to_" + string(to)
}

func splitKey(key string) (from, to State, ok bool) {
	const sep = "_to_"
	idx := strings.Index(key, sep)
	if idx < 0 {
		return "", "", false
	}
	return State(key[:idx]), State(key[idx+len(sep):]), true
}
