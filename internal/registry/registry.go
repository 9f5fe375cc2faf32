// Package registry holds the concurrent client-to-channel membership map
// shared by every connection handler and the introspection HTTP API.
package registry

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// QuarantineChannel is the channel every client occupies immediately
// after authentication. No fan-out ever crosses it.
const QuarantineChannel uint32 = 0

// Client is the minimal capability set the registry needs from a
// connected client: a stable ID plus the fields its introspection
// snapshots report. Anything satisfying this — including a test double —
// can be registered.
type Client interface {
	ID() uint32
	Alias() string
	RemoteAddr() string
}

// ClientInfo is the per-client projection returned by ClientInfos.
type ClientInfo struct {
	Alias   string `json:"alias"`
	Channel uint32 `json:"channel"`
	Remote  string `json:"remote"`
}

// StoreInfo is the aggregate snapshot returned by StoreInfo.
type StoreInfo struct {
	ChannelCount  int           `json:"channel_count"`
	ClientCount   int           `json:"client_count"`
	NextClientID  uint32        `json:"next_client_id"`
	Uptime        time.Duration `json:"uptime"`
}

// Registry maps clients to channels and channels to their member sets.
// A single coarse lock guards both maps; critical sections are small and
// cardinality is low, so this is not a contention concern.
type Registry struct {
	mu         sync.RWMutex
	clientChan map[uint32]uint32
	channelSet map[uint32]map[uint32]Client
	clients    map[uint32]Client

	nextID    atomic.Uint32
	createdAt time.Time
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		clientChan: make(map[uint32]uint32),
		channelSet: make(map[uint32]map[uint32]Client),
		clients:    make(map[uint32]Client),
		createdAt:  time.Now(),
	}
}

// AllocateID returns a process-unique monotonically increasing ID,
// starting at 0 and wrapping on overflow.
func (r *Registry) AllocateID() uint32 {
	return r.nextID.Add(1) - 1
}

// Add assigns client to channelID. If the client is already mapped to
// channelID this is a no-op returning false. Otherwise the client is
// removed from any previous channel (collapsing that channel's entry if
// it becomes empty) and inserted into the new one. Returns true if any
// mutation occurred.
func (r *Registry) Add(client Client, channelID uint32) bool {
	id := client.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.clientChan[id]; ok && cur == channelID {
		return false
	}

	r.removeLocked(id)

	r.clientChan[id] = channelID
	r.clients[id] = client
	set, ok := r.channelSet[channelID]
	if !ok {
		set = make(map[uint32]Client)
		r.channelSet[channelID] = set
	}
	set[id] = client

	slog.Debug("registry: client assigned", "client_id", id, "channel", channelID)
	return true
}

// Remove erases client's membership entirely. Returns false if the
// client had no entry.
func (r *Registry) Remove(client Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.removeLocked(client.ID())
	if removed {
		delete(r.clients, client.ID())
		slog.Debug("registry: client removed", "client_id", client.ID())
	}
	return removed
}

// removeLocked deletes id's forward-map entry and its membership in the
// reverse map, collapsing the channel entry if it becomes empty. Caller
// must hold mu for writing.
func (r *Registry) removeLocked(id uint32) bool {
	channelID, ok := r.clientChan[id]
	if !ok {
		return false
	}
	delete(r.clientChan, id)
	if set, ok := r.channelSet[channelID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.channelSet, channelID)
		}
	}
	return true
}

// Clear empties the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clientChan = make(map[uint32]uint32)
	r.channelSet = make(map[uint32]map[uint32]Client)
	r.clients = make(map[uint32]Client)
}

// PeersOnSameChannel returns a snapshot of every client sharing client's
// channel, excluding client itself. If ignoreChannelZero is true and
// client is on QuarantineChannel, or if client is not registered, it
// returns an empty (nil) slice.
func (r *Registry) PeersOnSameChannel(client Client, ignoreChannelZero bool) []Client {
	id := client.ID()

	r.mu.RLock()
	defer r.mu.RUnlock()

	channelID, ok := r.clientChan[id]
	if !ok {
		return nil
	}
	if ignoreChannelZero && channelID == QuarantineChannel {
		return nil
	}

	set := r.channelSet[channelID]
	peers := make([]Client, 0, len(set))
	for peerID, c := range set {
		if peerID == id {
			continue
		}
		peers = append(peers, c)
	}
	return peers
}

// StoreInfo returns a consistent snapshot of registry sizes.
func (r *Registry) StoreInfo() StoreInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return StoreInfo{
		ChannelCount: len(r.channelSet),
		ClientCount:  len(r.clientChan),
		NextClientID: r.nextID.Load(),
		Uptime:       time.Since(r.createdAt),
	}
}

// ClientInfos returns a consistent snapshot of every registered client.
func (r *Registry) ClientInfos() map[uint32]ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[uint32]ClientInfo, len(r.clients))
	for id, c := range r.clients {
		out[id] = ClientInfo{
			Alias:   c.Alias(),
			Channel: r.clientChan[id],
			Remote:  c.RemoteAddr(),
		}
	}
	return out
}
