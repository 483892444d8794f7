package entity

import "time"

// Event lifecycle statuses. Deleted is terminal; finished is set by
// admin edits, never automatically.
const (
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
	StatusDeleted  = "deleted"
)

// Event-scoped participant roles, each with its own capacity cap.
const (
	RoleInstructor        = "instructor"
	RoleTeachingAssistant = "teaching_assistant"
)

// Participant statuses. Attended is terminal and one-way.
const (
	ParticipantRegistered = "registered"
	ParticipantAttended   = "attended"
)

// Event represents a scheduled class event on a given day, spanning a
// range of class periods.
type Event struct {
	ID                   int64     `db:"event_id" json:"event_id"`
	Name                 string    `db:"name" json:"name"`
	DayStart             time.Time `db:"day_start" json:"day_start"`
	StartPeriod          int       `db:"start_period" json:"start_period"`
	EndPeriod            int       `db:"end_period" json:"end_period"`
	NumberOfStudent      int       `db:"number_of_student" json:"number_of_student"`
	Status               string    `db:"status" json:"status"`
	SchoolName           *string   `db:"school_name" json:"school_name,omitempty"`
	MaxUserJoined        int       `db:"max_user_joined" json:"max_user_joined"`
	MaxInstructor        int       `db:"max_instructor" json:"max_instructor"`
	MaxTeachingAssistant int       `db:"max_teaching_assistant" json:"max_teaching_assistant"`
	IsLocked             bool      `db:"is_locked" json:"is_locked"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// IsDeleted reports whether the event was soft-deleted.
func (e *Event) IsDeleted() bool {
	return e.Status == StatusDeleted
}

// RoleCap returns the configured cap for an event-scoped role.
func (e *Event) RoleCap(role string) int {
	switch role {
	case RoleInstructor:
		return e.MaxInstructor
	case RoleTeachingAssistant:
		return e.MaxTeachingAssistant
	default:
		return 0
	}
}

// Participant links an account to an event with a role and attendance
// status. (account_id, event_id) is the composite key.
type Participant struct {
	EventID   int64     `db:"event_id" json:"event_id"`
	AccountID int64     `db:"account_id" json:"account_id"`
	Role      string    `db:"role" json:"role"`
	Status    string    `db:"status" json:"status"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

// Attended reports whether attendance has been marked.
func (p *Participant) Attended() bool {
	return p.Status == ParticipantAttended
}
