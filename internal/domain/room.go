// Package domain contains entity without logic, just meta-data
package domain

type (
	RoomID string
	ConnID string
)

type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusInProgress RoomStatus = "in_progress"
)

// Room is the shareable meta of a group-discussion room.
// Membership and lifecycle live in the gd registry.
type Room struct {
	ID         RoomID     `json:"room_id"`
	Name       string     `json:"name"`
	Difficulty string     `json:"difficulty"`
	Required   int        `json:"required_participants"`
	Status     RoomStatus `json:"status"`
	Topic      string     `json:"topic,omitempty"`
}
