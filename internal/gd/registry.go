package gd

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/misba/aimock/internal/domain"
)

const (
	// DefaultDuration is the discussion length, in seconds, sent with gd_started.
	DefaultDuration = 300

	// FallbackTopic is broadcast when the topic source fails: the room
	// still starts, the participants just get a canned prompt.
	FallbackTopic = "Topic unavailable due to API error."

	roomIDPrefix = "GD-"
	roomIDLen    = 5
)

var ErrBadCapacity = errors.New("required participants must be positive")

type Config struct {
	Duration int           // seconds, DefaultDuration when zero
	IdleTTL  time.Duration // reap empty waiting rooms older than this; zero disables
}

// room is one discussion room. Its mutex serializes every mutation of the
// room, including the fill transition, so independent rooms progress in
// parallel while joins/leaves on the same room never interleave.
type room struct {
	mu           sync.Mutex
	meta         domain.Room
	participants map[domain.ConnID]struct{}
	createdAt    time.Time
	gone         bool // removed from the registry; late events treat it as unknown
}

// Callers of the member helpers hold rm.mu.

func (rm *room) memberIDs() []domain.ConnID {
	return lo.Keys(rm.participants)
}

func (rm *room) memberSIDs() []string {
	return lo.Map(lo.Keys(rm.participants), func(c domain.ConnID, _ int) string {
		return string(c)
	})
}

func (rm *room) membersExcept(conn domain.ConnID) []domain.ConnID {
	return lo.Reject(lo.Keys(rm.participants), func(c domain.ConnID, _ int) bool {
		return c == conn
	})
}

// Registry tracks which connections belong to which discussion room and
// starts the discussion when a room fills. All state is in-process; rooms
// die with the process. Lock order: room.mu before Registry.mu, never the
// other way around.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*room
	byConn map[domain.ConnID]domain.RoomID

	emitter Emitter
	topics  TopicSource
	cfg     Config
}

func NewRegistry(emitter Emitter, topics TopicSource, cfg Config) *Registry {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	return &Registry{
		rooms:   make(map[domain.RoomID]*room),
		byConn:  make(map[domain.ConnID]domain.RoomID),
		emitter: emitter,
		topics:  topics,
		cfg:     cfg,
	}
}

// Start launches the idle-room janitor, if configured. The janitor covers
// rooms that were created over HTTP but never joined; occupied rooms are
// reclaimed by the leave-triggered deletion instead.
func (r *Registry) Start(ctx context.Context) {
	if r.cfg.IdleTTL <= 0 {
		return
	}
	go r.janitor(ctx)
}

func newRoomID() domain.RoomID {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return domain.RoomID(roomIDPrefix + strings.ToUpper(hex[:roomIDLen]))
}

// CreateRoom allocates a fresh room in waiting status with no participants.
func (r *Registry) CreateRoom(name string, required int, difficulty string) (domain.RoomID, error) {
	if required < 1 {
		return "", ErrBadCapacity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var id domain.RoomID
	for {
		id = newRoomID()
		if _, taken := r.rooms[id]; !taken {
			break
		}
	}

	r.rooms[id] = &room{
		meta: domain.Room{
			ID:         id,
			Name:       name,
			Difficulty: difficulty,
			Required:   required,
			Status:     domain.StatusWaiting,
		},
		participants: make(map[domain.ConnID]struct{}),
		createdAt:    time.Now(),
	}
	log.Info().Str("module", "gd").Str("room", string(id)).Str("name", name).Int("required", required).Msg("room created")
	return id, nil
}

func (r *Registry) lookup(id domain.RoomID) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[id]
}

// RoomOf reports which room a connection currently belongs to.
func (r *Registry) RoomOf(conn domain.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[conn]
	return id, ok
}

// Join adds a connection to a room. Unknown rooms are logged no-ops: the
// client may hold a stale id and that must never take the transport down.
func (r *Registry) Join(ctx context.Context, id domain.RoomID, conn domain.ConnID) {
	// A connection belongs to at most one room; a second join moves it.
	if prev, ok := r.RoomOf(conn); ok && prev != id {
		r.Leave(conn)
	}

	rm := r.lookup(id)
	if rm == nil {
		log.Warn().Str("module", "gd").Str("room", string(id)).Str("sid", string(conn)).Msg("join to unknown room")
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.gone {
		log.Warn().Str("module", "gd").Str("room", string(id)).Str("sid", string(conn)).Msg("join raced room deletion")
		return
	}
	if _, in := rm.participants[conn]; in {
		log.Debug().Str("module", "gd").Str("room", string(id)).Str("sid", string(conn)).Msg("duplicate join")
		return
	}

	rm.participants[conn] = struct{}{}
	r.mu.Lock()
	r.byConn[conn] = id
	r.mu.Unlock()

	count := len(rm.participants)
	log.Info().Str("module", "gd").Str("room", string(id)).Str("sid", string(conn)).
		Int("count", count).Int("required", rm.meta.Required).Msg("joined room")

	r.emitter.Emit(rm.memberIDs(), EvParticipantUpdate, ParticipantUpdate{
		Participants: rm.memberSIDs(),
		Count:        count,
	})

	if count == rm.meta.Required && rm.meta.Status == domain.StatusWaiting {
		r.startDiscussion(ctx, rm)
		return
	}

	if rm.meta.Status == domain.StatusInProgress {
		// Late joiner to a running discussion (typically a reconnect):
		// hand it the topic privately, never re-fire the room broadcast.
		r.emitter.Emit([]domain.ConnID{conn}, EvDiscussionStarted, DiscussionStarted{
			Topic:    rm.meta.Topic,
			Duration: r.cfg.Duration,
		})
		return
	}

	// Signaling handshake so participants can establish direct peer links.
	r.emitter.Emit([]domain.ConnID{conn}, EvExistingUsers, ExistingUsers{
		SIDs: lo.Map(rm.membersExcept(conn), func(c domain.ConnID, _ int) string { return string(c) }),
	})
	r.emitter.Emit(rm.membersExcept(conn), EvUserJoined, UserJoined{SID: string(conn)})
}

// startDiscussion flips the room to in_progress and broadcasts the topic.
// The caller holds rm.mu, which is what makes the transition one-shot: a
// concurrent join on the same room parks on the lock and then observes
// in_progress. The topic call blocks only this room.
func (r *Registry) startDiscussion(ctx context.Context, rm *room) {
	rm.meta.Status = domain.StatusInProgress

	topic, err := r.topics.GenerateTopic(ctx)
	if err != nil || topic == "" {
		log.Error().Err(err).Str("module", "gd").Str("room", string(rm.meta.ID)).Msg("topic generation failed, using fallback")
		topic = FallbackTopic
	}
	rm.meta.Topic = topic

	log.Info().Str("module", "gd").Str("room", string(rm.meta.ID)).Str("topic", topic).Msg("discussion started")
	r.emitter.Emit(rm.memberIDs(), EvDiscussionStarted, DiscussionStarted{
		Topic:    topic,
		Duration: r.cfg.Duration,
	})
}

// Leave removes a connection from its room, if any. Leaving the last
// participant deletes the room. Safe to call for connections that never
// joined anything (plain disconnects).
func (r *Registry) Leave(conn domain.ConnID) {
	r.mu.RLock()
	id, ok := r.byConn[conn]
	r.mu.RUnlock()
	if !ok {
		log.Debug().Str("module", "gd").Str("sid", string(conn)).Msg("leave without membership")
		return
	}

	rm := r.lookup(id)
	if rm == nil {
		r.dropConn(conn)
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, in := rm.participants[conn]; !in {
		r.dropConn(conn)
		return
	}

	delete(rm.participants, conn)
	empty := len(rm.participants) == 0

	r.mu.Lock()
	delete(r.byConn, conn)
	if empty {
		delete(r.rooms, id)
		rm.gone = true
	}
	r.mu.Unlock()

	if empty {
		log.Info().Str("module", "gd").Str("room", string(id)).Msg("deleted empty room")
		return
	}

	log.Info().Str("module", "gd").Str("room", string(id)).Str("sid", string(conn)).
		Int("count", len(rm.participants)).Msg("left room")
	r.emitter.Emit(rm.memberIDs(), EvParticipantUpdate, ParticipantUpdate{
		Participants: rm.memberSIDs(),
		Count:        len(rm.participants),
	})
	r.emitter.Emit(rm.memberIDs(), EvUserLeft, UserLeft{SID: string(conn)})
}

func (r *Registry) dropConn(conn domain.ConnID) {
	r.mu.Lock()
	delete(r.byConn, conn)
	r.mu.Unlock()
}

type RoomInfo struct {
	domain.Room
	Count int `json:"count"`
}

// Snapshot returns a copy of one room's meta plus its live count.
func (r *Registry) Snapshot(id domain.RoomID) (RoomInfo, bool) {
	rm := r.lookup(id)
	if rm == nil {
		return RoomInfo{}, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.gone {
		return RoomInfo{}, false
	}
	return RoomInfo{Room: rm.meta, Count: len(rm.participants)}, true
}

// List returns a snapshot of every live room, for the lobby.
func (r *Registry) List() []RoomInfo {
	r.mu.RLock()
	rooms := lo.Values(r.rooms)
	r.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, rm := range rooms {
		rm.mu.Lock()
		if !rm.gone {
			out = append(out, RoomInfo{Room: rm.meta, Count: len(rm.participants)})
		}
		rm.mu.Unlock()
	}
	return out
}

func (r *Registry) janitor(ctx context.Context) {
	interval := r.cfg.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "gd").Msg("janitor stopped")
			return
		case <-t.C:
			r.reapIdle(time.Now())
		}
	}
}

// reapIdle deletes rooms that sat in waiting with zero participants for
// longer than IdleTTL. Occupied and in-progress rooms are never touched.
func (r *Registry) reapIdle(now time.Time) int {
	r.mu.RLock()
	type cand struct {
		id domain.RoomID
		rm *room
	}
	cands := make([]cand, 0, len(r.rooms))
	for id, rm := range r.rooms {
		cands = append(cands, cand{id, rm})
	}
	r.mu.RUnlock()

	reaped := 0
	for _, c := range cands {
		c.rm.mu.Lock()
		idle := !c.rm.gone &&
			c.rm.meta.Status == domain.StatusWaiting &&
			len(c.rm.participants) == 0 &&
			now.Sub(c.rm.createdAt) > r.cfg.IdleTTL
		if idle {
			c.rm.gone = true
			r.mu.Lock()
			delete(r.rooms, c.id)
			r.mu.Unlock()
			reaped++
			log.Info().Str("module", "gd").Str("room", string(c.id)).Msg("reaped idle room")
		}
		c.rm.mu.Unlock()
	}
	return reaped
}
