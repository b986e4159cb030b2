package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// Sender is a live connection handle held by a registry.
type Sender interface {
	Send(payload []byte) error
	Close() error
}

// Registry maps scope -> participant -> connection. It backs the chat channel,
// where the scope is the chat id. Sends marshal once and enqueue outside the
// lock, so a slow participant never holds up registration elsewhere.
type Registry struct {
	kind   string
	mu     sync.RWMutex
	scopes map[uuid.UUID]map[uuid.UUID]Sender
}

// NewRegistry creates an empty registry. kind labels its metrics.
func NewRegistry(kind string) *Registry {
	return &Registry{
		kind:   kind,
		scopes: make(map[uuid.UUID]map[uuid.UUID]Sender),
	}
}

// Register stores conn under (scope, participant). A previous handle for the
// same key is replaced and closed.
func (r *Registry) Register(scope, participant uuid.UUID, conn Sender) {
	r.mu.Lock()
	participants, ok := r.scopes[scope]
	if !ok {
		participants = make(map[uuid.UUID]Sender)
		r.scopes[scope] = participants
	}
	prev := participants[participant]
	participants[participant] = conn
	r.mu.Unlock()

	if prev != nil && prev != conn {
		_ = prev.Close()
	}
}

// Deregister removes (scope, participant) whatever handle it holds.
func (r *Registry) Deregister(scope, participant uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(scope, participant, nil)
}

// DeregisterHandle removes (scope, participant) only while it still holds conn.
// It reports whether an entry was removed.
func (r *Registry) DeregisterHandle(scope, participant uuid.UUID, conn Sender) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(scope, participant, conn)
}

func (r *Registry) removeLocked(scope, participant uuid.UUID, conn Sender) bool {
	participants, ok := r.scopes[scope]
	if !ok {
		return false
	}
	current, ok := participants[participant]
	if !ok || (conn != nil && current != conn) {
		return false
	}
	delete(participants, participant)
	if len(participants) == 0 {
		delete(r.scopes, scope)
	}
	return true
}

// Send delivers env to one participant. No connection is not an error.
func (r *Registry) Send(scope, participant uuid.UUID, env models.Envelope) error {
	r.mu.RLock()
	conn := r.scopes[scope][participant]
	r.mu.RUnlock()
	if conn == nil {
		return nil
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Type, err)
	}
	return r.deliver(participant, conn, payload)
}

// Broadcast delivers env to every participant of scope.
func (r *Registry) Broadcast(scope uuid.UUID, env models.Envelope) error {
	return r.broadcast(scope, uuid.Nil, false, env)
}

// BroadcastExcept delivers env to every participant of scope except exclude.
func (r *Registry) BroadcastExcept(scope, exclude uuid.UUID, env models.Envelope) error {
	return r.broadcast(scope, exclude, true, env)
}

func (r *Registry) broadcast(scope, exclude uuid.UUID, skip bool, env models.Envelope) error {
	targets := r.snapshot(scope, exclude, skip)
	if len(targets) == 0 {
		return nil
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Type, err)
	}

	var errs error
	for participant, conn := range targets {
		errs = multierr.Append(errs, r.deliver(participant, conn, payload))
	}
	return errs
}

func (r *Registry) snapshot(scope, exclude uuid.UUID, skip bool) map[uuid.UUID]Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()
	participants := r.scopes[scope]
	out := make(map[uuid.UUID]Sender, len(participants))
	for id, conn := range participants {
		if skip && id == exclude {
			continue
		}
		out[id] = conn
	}
	return out
}

func (r *Registry) deliver(participant uuid.UUID, conn Sender, payload []byte) error {
	if err := conn.Send(payload); err != nil {
		observability.IncWSDelivery(r.kind, "dropped")
		return fmt.Errorf("deliver to %s: %w", participant, err)
	}
	observability.IncWSDelivery(r.kind, "queued")
	return nil
}

// Participants returns the ids registered under scope.
func (r *Registry) Participants(scope uuid.UUID) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.scopes[scope]))
	for id := range r.scopes[scope] {
		ids = append(ids, id)
	}
	return ids
}

// ScopeCount returns the number of non-empty scopes.
func (r *Registry) ScopeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes)
}

// UserRegistry is the flat participant -> connection registry behind the
// notification channel.
type UserRegistry struct {
	inner *Registry
}

// NewUserRegistry creates an empty user registry.
func NewUserRegistry() *UserRegistry {
	return &UserRegistry{inner: NewRegistry("notifications")}
}

// everyone is the single scope of a UserRegistry.
var everyone = uuid.Nil

// Register opens userID's notification socket, replacing any earlier one.
func (u *UserRegistry) Register(userID uuid.UUID, conn Sender) {
	u.inner.Register(everyone, userID, conn)
}

// Deregister drops userID's notification socket.
func (u *UserRegistry) Deregister(userID uuid.UUID) {
	u.inner.Deregister(everyone, userID)
}

// DeregisterHandle drops userID's socket only if it is still conn.
func (u *UserRegistry) DeregisterHandle(userID uuid.UUID, conn Sender) bool {
	return u.inner.DeregisterHandle(everyone, userID, conn)
}

// Send queues env on userID's notification socket.
func (u *UserRegistry) Send(userID uuid.UUID, env models.Envelope) error {
	return u.inner.Send(everyone, userID, env)
}

// Broadcast queues env for every connected user.
func (u *UserRegistry) Broadcast(env models.Envelope) error {
	return u.inner.Broadcast(everyone, env)
}

// BroadcastExcept queues env for every connected user but exclude.
func (u *UserRegistry) BroadcastExcept(exclude uuid.UUID, env models.Envelope) error {
	return u.inner.BroadcastExcept(everyone, exclude, env)
}

// Connected returns the ids of users with an open notification socket.
func (u *UserRegistry) Connected() []uuid.UUID {
	return u.inner.Participants(everyone)
}
