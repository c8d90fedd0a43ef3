package room

import "time"

type Status string

const (
	StatusWaiting    Status = "Waiting"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
)

const DefaultDisplayName = "Unknown User"

type Participant struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Room is a snapshot of a contest room at Version. Versions start at 1 and
// grow by one with every accepted mutation.
type Room struct {
	Code              string        `json:"code"`
	OwnerID           string        `json:"ownerId"`
	Participants      []Participant `json:"participants"`
	Status            Status        `json:"status"`
	AssignedProblemID *string       `json:"assignedProblemId"`
	CreatedAt         time.Time     `json:"createdAt"`
	StartedAt         *time.Time    `json:"startedAt"`
	Version           uint64        `json:"version"`
}

func (r Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares no memory with r.
func (r Room) Clone() Room {
	c := r
	c.Participants = make([]Participant, len(r.Participants))
	copy(c.Participants, r.Participants)
	if r.AssignedProblemID != nil {
		id := *r.AssignedProblemID
		c.AssignedProblemID = &id
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	return c
}

func (r Room) ProblemID() string {
	if r.AssignedProblemID == nil {
		return ""
	}
	return *r.AssignedProblemID
}
