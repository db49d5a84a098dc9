package domain

import "time"

type TripStatus string

const (
	TripStatusQueued   TripStatus = "queued"
	TripStatusPlanning TripStatus = "planning"
	TripStatusReady    TripStatus = "ready"
	TripStatusFailed   TripStatus = "failed"
)

// Trip is the persisted record of one planning request and its outcome.
type Trip struct {
	ID           string      `json:"trip_id"`
	Status       TripStatus  `json:"status"`
	Request      UserRequest `json:"request"`
	State        *AgentState `json:"state,omitempty"`
	Itinerary    *Itinerary  `json:"itinerary,omitempty"`
	Issues       []string    `json:"issues"`
	ErrorMessage string      `json:"error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
