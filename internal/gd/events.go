package gd

import (
	"context"

	"github.com/misba/aimock/internal/domain"
)

// Event names delivered to room members over the signaling transport.
const (
	EvParticipantUpdate = "participant_update"
	EvExistingUsers     = "existing_users"
	EvUserJoined        = "user_joined"
	EvUserLeft          = "user_left"
	EvDiscussionStarted = "gd_started"
)

type ParticipantUpdate struct {
	Participants []string `json:"participants"`
	Count        int      `json:"count"`
}

// ExistingUsers is sent to a new member only, so it can dial
// peer connections to everyone already in the room.
type ExistingUsers struct {
	SIDs []string `json:"sids"`
}

type UserJoined struct {
	SID string `json:"sid"`
}

type UserLeft struct {
	SID string `json:"sid"`
}

type DiscussionStarted struct {
	Topic    string `json:"topic"`
	Duration int    `json:"duration"`
}

// Emitter delivers one event to a set of connections.
// Implementations must not block; a slow receiver is the
// transport's problem, not the registry's.
type Emitter interface {
	Emit(targets []domain.ConnID, event string, payload any)
}

// TopicSource produces a discussion topic when a room fills.
// Called at most once per room, while that room is locked.
type TopicSource interface {
	GenerateTopic(ctx context.Context) (string, error)
}
